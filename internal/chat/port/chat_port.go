// Package port defines the interfaces (ports) the chat service depends on.
//
// Following the hexagonal layout, ChatService depends on these interfaces and
// not on the concrete Redis / in-memory / JWT adapters, which keeps the
// service testable with fakes.
package port

import (
	"context"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
)

// SessionStore persists the ConversationContext of each chat session.
// Load of an unknown session returns an empty context and no error.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (domain.ConversationContext, error)
	Save(ctx context.Context, sessionID string, cc domain.ConversationContext) error
	Delete(ctx context.Context, sessionID string) error
}

// SessionTokens issues and verifies the opaque token handed to the widget.
type SessionTokens interface {
	Issue(sessionID string) (string, error)
	Verify(token string) (sessionID string, err error)
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}
