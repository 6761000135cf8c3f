package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     2,
		InitialBackoff: 10 * time.Millisecond,
	}

	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
}

func TestRetryWithBackoff_PermanentStopsImmediately(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 10 * time.Millisecond,
	}
	sentinel := errors.New("bad payload")

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return resilience.Permanent(sentinel)
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_ZeroBackoff(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2}

	callCount := 0
	_ = resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return errors.New("error")
	})
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	// Third acquire should block; test with a timeout context.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	if err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func newGuard(name string) *resilience.Guard {
	cfg := resilience.Config{MaxRetries: 0, MaxConcurrency: 4}
	return resilience.NewGuard(name, cfg, resilience.NewCircuitBreaker(name, zap.NewNop()))
}

func TestGuard_WrapsFailures(t *testing.T) {
	g := newGuard("redis")

	err := g.Do(context.Background(), func(context.Context) error {
		return errors.New("connection refused")
	})

	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %T %v", err, err)
	}
	if ext.Service != "redis" {
		t.Errorf("expected service 'redis', got %q", ext.Service)
	}
}

func TestGuard_OpensCircuit(t *testing.T) {
	g := newGuard("redis")
	fail := func(context.Context) error { return errors.New("down") }

	for i := 0; i < 5; i++ {
		_ = g.Do(context.Background(), fail)
	}

	called := false
	err := g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})

	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %T %v", err, err)
	}
	if called {
		t.Error("expected breaker to reject the call without running it")
	}
}

func TestGuard_PermanentErrorsDoNotTrip(t *testing.T) {
	g := newGuard("redis")
	sentinel := errors.New("corrupt value")

	for i := 0; i < 10; i++ {
		err := g.Do(context.Background(), func(context.Context) error {
			return resilience.Permanent(sentinel)
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("attempt %d: expected sentinel, got %v", i, err)
		}
	}

	if err := g.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected breaker to stay closed, got %v", err)
	}
}
