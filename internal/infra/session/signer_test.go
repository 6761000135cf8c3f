package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s, err := session.NewSigner("secret", time.Hour)
	require.NoError(t, err)

	token, err := s.Issue("abc-123")
	require.NoError(t, err)

	sid, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", sid)
}

func TestNewSigner_RejectsEmptySecret(t *testing.T) {
	_, err := session.NewSigner("", time.Hour)
	assert.Error(t, err)
}

func TestSigner_Rejects(t *testing.T) {
	s, _ := session.NewSigner("secret", time.Hour)
	other, _ := session.NewSigner("other-secret", time.Hour)
	foreign, _ := other.Issue("abc")

	wrongType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		Sid:  "abc",
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "alts-concierge-bfa",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"empty":        "",
		"wrong secret": foreign,
		"wrong type":   wrongType,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(token)
			var unauth *domain.ErrUnauthorized
			assert.True(t, errors.As(err, &unauth), "expected ErrUnauthorized, got %v", err)
		})
	}
}

func TestSigner_Expiry(t *testing.T) {
	s, _ := session.NewSigner("secret", time.Minute)
	start := time.Now()
	session.SetClock(s, func() time.Time { return start })

	token, err := s.Issue("abc")
	require.NoError(t, err)

	session.SetClock(s, func() time.Time { return start.Add(2 * time.Minute) })
	_, err = s.Verify(token)

	var unauth *domain.ErrUnauthorized
	require.True(t, errors.As(err, &unauth))
	assert.Equal(t, "session expired", unauth.Message)
}
