// Package handler exposes the chat widget endpoints:
//
//	POST   /v1/chat                 one chat turn
//	DELETE /v1/chat/session         forget the conversation (X-Session-Token)
//	GET    /v1/chat/quick-replies   button labels the widget may render
//	GET    /v1/knowledge            service list
//	GET    /v1/knowledge/{service}  one knowledge entry
//
// Handlers are thin: decode, delegate to ChatService or the knowledge base,
// map domain errors to status codes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/knowledge"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/service"
	maindomain "github.com/boddenberg/alts-concierge-bfa-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("chat/handler")

// SessionTokenHeader carries the session token on DELETE /v1/chat/session.
const SessionTokenHeader = "X-Session-Token"

// ChatHandler handles POST /v1/chat.
//
// Request:
//
//	{"message": "Tell me about your services", "sessionToken": "eyJ..."}
//
// The token is optional on the first turn; the reply always carries the one
// to send next time. An empty message is valid and gets the fallback reply.
func ChatHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat")
		defer span.End()

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, `invalid request body: expected {"message": "..."}`)
			return
		}
		span.SetAttributes(attribute.Bool("chat.has_session", req.SessionToken != ""))

		reply, err := chatSvc.ProcessMessage(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.String("chat.intent", reply.Intent))
		writeJSON(w, http.StatusOK, reply)
	}
}

// ResetSessionHandler handles DELETE /v1/chat/session.
func ResetSessionHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/chat/session")
		defer span.End()

		if err := chatSvc.ResetSession(ctx, r.Header.Get(SessionTokenHeader)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type quickRepliesResponse struct {
	QuickReplies []domain.QuickReply `json:"quickReplies"`
}

// QuickRepliesHandler handles GET /v1/chat/quick-replies.
func QuickRepliesHandler(kb *knowledge.Base) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, quickRepliesResponse{QuickReplies: kb.QuickReplies()})
	}
}

type serviceSummary struct {
	Key   domain.ServiceKey `json:"key"`
	Title string            `json:"title"`
}

type knowledgeListResponse struct {
	Services []serviceSummary `json:"services"`
}

// KnowledgeListHandler handles GET /v1/knowledge.
func KnowledgeListHandler(kb *knowledge.Base) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := kb.Services()
		out := knowledgeListResponse{Services: make([]serviceSummary, 0, len(keys))}
		for _, key := range keys {
			entry, _ := kb.Entry(key)
			out.Services = append(out.Services, serviceSummary{Key: key, Title: entry.Title})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// KnowledgeEntryHandler handles GET /v1/knowledge/{service}.
func KnowledgeEntryHandler(kb *knowledge.Base, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "service")
		entry, ok := kb.Entry(domain.ServiceKey(key))
		if !ok {
			handleServiceError(w, &maindomain.ErrNotFound{Resource: "service", ID: key}, logger)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleServiceError maps domain errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *maindomain.ErrNotFound
	var validation *maindomain.ErrValidation
	var unauthorized *maindomain.ErrUnauthorized
	var circuitOpen *maindomain.ErrCircuitOpen
	var timeout *maindomain.ErrTimeout
	var external *maindomain.ErrExternalService

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(external.Err))
		writeError(w, http.StatusBadGateway, "external service unavailable: "+external.Service)
	default:
		logger.Error("unexpected error in chat handler", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
