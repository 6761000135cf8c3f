// Package resilience provides fault-tolerance patterns for calls to backing
// services: retry with exponential backoff, circuit breaker, and bulkhead,
// plus a Guard that chains the three.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/domain"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// permanentError marks an error that must not be retried.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so RetryWithBackoff returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation and stops early on Permanent errors.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(cfg.InitialBackoff, attempt)):
			}
		}
	}
	return lastErr
}

func backoff(initial time.Duration, attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt))) * initial
	if base < 2 {
		return base
	}
	return base + time.Duration(rand.Int63n(int64(base/2)))
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
// State transitions are logged.
func NewCircuitBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}

// Guard protects one backing service: a call first takes a bulkhead slot,
// then runs through the circuit breaker, which wraps the retry loop.
type Guard struct {
	service  string
	cfg      Config
	cb       *gobreaker.CircuitBreaker
	bulkhead *Bulkhead
}

// NewGuard builds a Guard for service.
func NewGuard(service string, cfg Config, cb *gobreaker.CircuitBreaker) *Guard {
	return &Guard{
		service:  service,
		cfg:      cfg,
		cb:       cb,
		bulkhead: NewBulkhead(cfg.MaxConcurrency),
	}
}

// Do runs fn under the guard. Failures come back as domain errors:
// ErrCircuitOpen when the breaker rejects the call, ErrTimeout when the
// context expires, ErrExternalService otherwise. Permanent errors are
// returned unwrapped and do not count against the breaker.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: g.service + ": waiting for a free slot"}
	}
	defer g.bulkhead.Release()

	var permanent error
	_, err := g.cb.Execute(func() (any, error) {
		return nil, RetryWithBackoff(ctx, g.cfg, func() error {
			err := fn(ctx)
			var perm *permanentError
			if errors.As(err, &perm) {
				permanent = perm.err
				return nil
			}
			return err
		})
	})
	if permanent != nil {
		return permanent
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: g.service}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: g.service}
	default:
		return &domain.ErrExternalService{Service: g.service, Err: err}
	}
}
