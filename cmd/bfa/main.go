package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/knowledge"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/port"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/router"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/service"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/config"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/handler"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/cache"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/observability"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/redisstore"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/session"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// sessionBackend is what main needs from a session store.
type sessionBackend interface {
	port.SessionStore
	port.Pinger
	Close() error
}

func main() {
	os.Exit(run())
}

// run wires and serves the BFA. It returns the process exit code so deferred
// cleanup runs before main exits.
func run() int {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "failed to read .env:", err)
		return 1
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("session_backend", cfg.SessionBackend),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.String("knowledge_path", cfg.KnowledgePath),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
	)
	if cfg.SessionSecret == config.DevSessionSecret {
		logger.Warn("SESSION_SECRET not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "alts-concierge-bfa",
	})
	if err != nil {
		logger.Error("failed to init tracer", zap.Error(err))
		return 1
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Knowledge base ---
	kb, err := knowledge.Load(cfg.KnowledgePath)
	if err != nil {
		logger.Error("failed to load knowledge base", zap.String("path", cfg.KnowledgePath), zap.Error(err))
		return 1
	}
	logger.Info("knowledge base loaded",
		zap.Int("services", len(kb.Services())),
		zap.Int("intents", len(kb.Rules())),
	)

	// --- Sessions ---
	store := newSessionStore(ctx, cfg, logger)
	defer store.Close()

	signer, err := session.NewSigner(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		logger.Error("failed to create session signer", zap.Error(err))
		return 1
	}

	// --- Services ---
	chatSvc := service.NewChatService(
		router.New(kb),
		store,
		signer,
		metrics,
		logger,
		service.Options{MaxMessageLength: cfg.MaxMessageLength},
	)

	// --- Router ---
	mux := handler.NewRouter(chatSvc, kb, store, metrics, logger, handler.Options{
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return 1
	}
	logger.Info("server stopped")
	return 0
}

// newSessionStore builds the configured backend. An unreachable Redis at
// startup is logged, not fatal: the chat keeps answering without context.
func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) sessionBackend {
	if cfg.SessionBackend != config.BackendRedis {
		logger.Info("using in-memory session store")
		return cache.NewSessionStore(cfg.SessionTTL)
	}

	client := redisstore.NewClient(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	guard := resilience.NewGuard("redis", resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}, resilience.NewCircuitBreaker("redis", logger))
	store := redisstore.New(client, cfg.SessionTTL, guard)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
	}
	return store
}
