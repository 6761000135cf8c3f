package cache

import (
	"context"
	"time"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
)

// SessionStore keeps conversation contexts in process memory. Sessions idle
// for longer than the TTL are forgotten.
type SessionStore struct {
	items *InMemory[domain.ConversationContext]
}

// NewSessionStore creates an in-memory session store.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{items: New[domain.ConversationContext](ttl)}
}

// Load returns the stored context, or an empty one for unknown sessions.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (domain.ConversationContext, error) {
	if err := ctx.Err(); err != nil {
		return domain.ConversationContext{}, err
	}
	cc, _ := s.items.Get(sessionID)
	return cc, nil
}

// Save stores cc and refreshes the session's expiry.
func (s *SessionStore) Save(ctx context.Context, sessionID string, cc domain.ConversationContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.items.Set(sessionID, cc)
	return nil
}

// Delete forgets a session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.items.Delete(sessionID)
	return nil
}

// Ping always succeeds; the store lives in-process.
func (s *SessionStore) Ping(context.Context) error {
	return nil
}

// Close stops the expiry sweeper.
func (s *SessionStore) Close() error {
	s.items.Close()
	return nil
}
