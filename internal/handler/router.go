// Package handler builds the BFA's HTTP surface: middleware, operational
// endpoints and the chat API mounted under /v1.
package handler

import (
	"net/http"
	"time"

	chathandler "github.com/boddenberg/alts-concierge-bfa-go/internal/chat/handler"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/knowledge"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/port"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/service"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes caps request bodies on the API routes.
const DefaultMaxBodyBytes = 64 << 10

// Options tunes the router.
type Options struct {
	// AllowedOrigins lists the sites allowed to embed the widget. Empty
	// means any origin.
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// NewRouter creates the HTTP router with all routes and middleware.
// sessions may be nil when the store cannot report its health.
func NewRouter(
	chatSvc *service.ChatService,
	kb *knowledge.Base,
	sessions port.Pinger,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts Options,
) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", chathandler.SessionTokenHeader, "traceparent"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(kb, sessions))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequestSize(opts.MaxBodyBytes))

		r.Post("/chat", chathandler.ChatHandler(chatSvc, logger))
		r.Delete("/chat/session", chathandler.ResetSessionHandler(chatSvc, logger))
		r.Get("/chat/quick-replies", chathandler.QuickRepliesHandler(kb))

		r.Get("/knowledge", chathandler.KnowledgeListHandler(kb))
		r.Get("/knowledge/{service}", chathandler.KnowledgeEntryHandler(kb, logger))

		r.Get("/metrics/chat", chatMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(kb *knowledge.Base, sessions port.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		kbStatus := "healthy"
		if len(kb.Rules()) == 0 {
			kbStatus = "unhealthy"
		}
		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
			{Name: "knowledge", Status: kbStatus, LastChecked: now},
		}

		if sessions != nil {
			start := time.Now()
			err := sessions.Ping(r.Context())
			h := domain.ServiceHealth{
				Name:        "session-store",
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				h.Status = "degraded"
				h.Detail = err.Error()
			}
			services = append(services, h)
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus(services),
			Services: services,
		})
	}
}

func overallStatus(services []domain.ServiceHealth) string {
	status := "healthy"
	for _, s := range services {
		if s.Status == "unhealthy" {
			return "unhealthy"
		}
		if s.Status == "degraded" {
			status = "degraded"
		}
	}
	return status
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func chatMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetChatSnapshot())
	}
}
