// Package observability wires logging, metrics and tracing for the BFA.
package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a structured zap logger.
// Always uses production base (no stacktraces on Warn).
// debug level → colorized console; otherwise → compact JSON.
// Unrecognised levels fall back to info.
func NewLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	if lvl == zapcore.DebugLevel {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger
}

// opsPaths are health check and scrape endpoints; their access lines go to debug.
var opsPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
	"/ping":    true,
}

type accessLogKey struct{}

// accessLog collects fields a handler adds to its request's access line.
type accessLog struct {
	mu     sync.Mutex
	fields []zap.Field
}

// AnnotateRequest adds fields to the access line of the request carried by
// ctx. Outside ZapLoggerMiddleware it does nothing.
func AnnotateRequest(ctx context.Context, fields ...zap.Field) {
	al, ok := ctx.Value(accessLogKey{}).(*accessLog)
	if !ok {
		return
	}
	al.mu.Lock()
	al.fields = append(al.fields, fields...)
	al.mu.Unlock()
}

// ZapLoggerMiddleware writes one access line per request. The route is the
// chi pattern when there is one, so /v1/knowledge/{service} stays a single
// series in log queries. Chat turns carry the session and intent added through
// AnnotateRequest. Levels: Error for 5xx, Warn for 4xx, Debug for ops
// endpoints, Info otherwise.
func ZapLoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			al := &accessLog{}
			r = r.WithContext(context.WithValue(r.Context(), accessLogKey{}, al))

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("route", routeOf(r)),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				}
				if origin := r.Header.Get("Origin"); origin != "" {
					fields = append(fields, zap.String("origin", origin))
				}
				al.mu.Lock()
				fields = append(fields, al.fields...)
				al.mu.Unlock()

				switch {
				case status >= 500:
					logger.Error("http request", fields...)
				case status >= 400:
					logger.Warn("http request", fields...)
				case opsPaths[r.URL.Path]:
					logger.Debug("http request", fields...)
				default:
					logger.Info("http request", fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// TracingMiddleware extracts trace context from incoming requests.
func TracingMiddleware(next http.Handler) http.Handler {
	propagator := otel.GetTextMapPropagator()
	if propagator == nil {
		propagator = propagation.TraceContext{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
