package session

import "time"

// SetClock replaces the signer's time source.
func SetClock(s *Signer, now func() time.Time) { s.now = now }
