// Package session issues the signed session tokens handed to the chat widget.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenType = "chat_session"
	issuer    = "alts-concierge-bfa"
)

// Claims are the custom claims carried by a session token.
type Claims struct {
	Sid  string `json:"sid"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Signer implements port.SessionTokens with HS256 JWTs.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner builds a Signer. An empty secret is rejected.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("session secret must not be empty")
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for sessionID.
func (s *Signer) Issue(sessionID string) (string, error) {
	now := s.now()
	claims := Claims{
		Sid:  sessionID,
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify returns the session ID carried by token, or ErrUnauthorized.
func (s *Signer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", &domain.ErrUnauthorized{Message: "session expired"}
		}
		return "", &domain.ErrUnauthorized{Message: "invalid session token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", &domain.ErrUnauthorized{Message: "invalid session token"}
	}
	if claims.Type != tokenType || claims.Sid == "" {
		return "", &domain.ErrUnauthorized{Message: "invalid session token type"}
	}
	return claims.Sid, nil
}
