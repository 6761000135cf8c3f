// Package service implements ChatService, the caller that owns the
// conversation state around the stateless intent router.
//
// One chat turn:
//  1. resolve the session (new uuid + signed token, or verify the given token)
//  2. load the ConversationContext from the session store
//  3. route the utterance
//  4. remember the service the reply talked about, refreshing the store TTL
//  5. record metrics and hand the reply back with a refreshed session token
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/port"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/router"
	maindomain "github.com/boddenberg/alts-concierge-bfa-go/internal/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chatTracer = otel.Tracer("chat/service")

// DefaultMaxMessageLength caps an utterance, in bytes.
const DefaultMaxMessageLength = 2000

// Options tunes ChatService.
type Options struct {
	MaxMessageLength int
}

// ChatService threads the ConversationContext between turns.
type ChatService struct {
	router   *router.Router
	sessions port.SessionStore
	tokens   port.SessionTokens
	metrics  *observability.Metrics
	logger   *zap.Logger
	maxLen   int
}

// NewChatService creates the ChatService with its dependencies injected.
func NewChatService(
	r *router.Router,
	sessions port.SessionStore,
	tokens port.SessionTokens,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts Options,
) *ChatService {
	maxLen := opts.MaxMessageLength
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	return &ChatService{
		router:   r,
		sessions: sessions,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
		maxLen:   maxLen,
	}
}

// ProcessMessage routes one utterance within its session.
//
// Session store failures never fail the turn: a failed load routes with an
// empty context and a failed save still returns the reply.
func (s *ChatService) ProcessMessage(ctx context.Context, req *domain.ChatRequest) (*domain.ChatReply, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.ProcessMessage")
	defer span.End()
	start := time.Now()

	if req == nil {
		return nil, &maindomain.ErrValidation{Field: "body", Message: "request body is required"}
	}
	if len(req.Message) > s.maxLen {
		return nil, &maindomain.ErrValidation{
			Field:   "message",
			Message: fmt.Sprintf("message exceeds %d bytes", s.maxLen),
		}
	}

	sessionID, token, err := s.resolveSession(req.SessionToken)
	if err != nil {
		span.SetStatus(codes.Error, "invalid session")
		return nil, err
	}
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	cc, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		s.metrics.IncrStoreError("load")
		s.logger.Warn("session load failed, continuing without context",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		cc = domain.ConversationContext{}
	}

	resp, trace := s.router.RouteTrace(req.Message, cc)

	if resp.Service != "" {
		cc.LastService = resp.Service
	}
	// Saving on every turn slides the store TTL, so only idle sessions expire.
	// An empty context is the same as a missing one and is not written.
	if cc != (domain.ConversationContext{}) {
		if err := s.sessions.Save(ctx, sessionID, cc); err != nil {
			s.metrics.IncrStoreError("save")
			s.logger.Warn("session save failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	s.metrics.RecordMessage(resp.Intent, string(trace.Stage), time.Since(start))
	span.SetAttributes(
		attribute.String("chat.intent", resp.Intent),
		attribute.String("chat.stage", string(trace.Stage)),
	)
	observability.AnnotateRequest(ctx,
		zap.String("session_id", sessionID),
		zap.String("intent", resp.Intent),
		zap.String("stage", string(trace.Stage)),
	)
	s.logger.Info("chat message routed",
		zap.String("session_id", sessionID),
		zap.String("intent", resp.Intent),
		zap.String("stage", string(trace.Stage)),
		zap.Int("score", trace.Score),
		zap.Int("message_length", len(req.Message)),
	)

	return &domain.ChatReply{SessionToken: token, Response: resp}, nil
}

// ResetSession forgets the conversation context behind token.
func (s *ChatService) ResetSession(ctx context.Context, token string) error {
	ctx, span := chatTracer.Start(ctx, "ChatService.ResetSession")
	defer span.End()

	if token == "" {
		return &maindomain.ErrUnauthorized{Message: "missing session token"}
	}
	sessionID, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.metrics.IncrStoreError("delete")
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("reset session %s: %w", sessionID, err)
	}

	s.logger.Info("chat session reset", zap.String("session_id", sessionID))
	return nil
}

// resolveSession opens a new session when token is empty. Otherwise it
// verifies the token and hands back a freshly signed one, so the token expires
// with the idle session rather than a fixed time after the first message.
func (s *ChatService) resolveSession(token string) (sessionID, outToken string, err error) {
	if token != "" {
		sessionID, err = s.tokens.Verify(token)
		if err != nil {
			return "", "", err
		}
		outToken, err = s.tokens.Issue(sessionID)
		if err != nil {
			s.logger.Warn("session token refresh failed, keeping the current token",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			return sessionID, token, nil
		}
		return sessionID, outToken, nil
	}

	sessionID = uuid.NewString()
	outToken, err = s.tokens.Issue(sessionID)
	if err != nil {
		return "", "", fmt.Errorf("issue session token: %w", err)
	}
	s.metrics.IncrSessionStarted()
	s.logger.Debug("chat session started", zap.String("session_id", sessionID))
	return sessionID, outToken, nil
}
