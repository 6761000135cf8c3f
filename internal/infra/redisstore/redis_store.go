// Package redisstore keeps chat sessions in Redis so several BFA replicas can
// serve the same widget.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/resilience"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session keys.
const KeyPrefix = "chat:session:"

// Client is the subset of go-redis used by Store.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store implements port.SessionStore on Redis. Every call goes through the
// resilience guard.
type Store struct {
	client Client
	ttl    time.Duration
	guard  *resilience.Guard
}

// NewClient builds a go-redis client. Connections open lazily on the first
// command.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// New builds a Store around an existing client.
func New(client Client, ttl time.Duration, guard *resilience.Guard) *Store {
	return &Store{client: client, ttl: ttl, guard: guard}
}

func key(sessionID string) string {
	return KeyPrefix + sessionID
}

// Load returns the stored context. A missing key yields an empty context.
func (s *Store) Load(ctx context.Context, sessionID string) (domain.ConversationContext, error) {
	var cc domain.ConversationContext
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
		if errors.Is(err, redis.Nil) {
			cc = domain.ConversationContext{}
			return nil
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &cc); err != nil {
			return resilience.Permanent(fmt.Errorf("decode session %s: %w", sessionID, err))
		}
		return nil
	})
	if err != nil {
		return domain.ConversationContext{}, err
	}
	return cc, nil
}

// Save writes cc and refreshes the key's TTL.
func (s *Store) Save(ctx context.Context, sessionID string, cc domain.ConversationContext) error {
	raw, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	return s.guard.Do(ctx, func(ctx context.Context) error {
		return s.client.Set(ctx, key(sessionID), raw, s.ttl).Err()
	})
}

// Delete removes the session. Deleting an unknown session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.guard.Do(ctx, func(ctx context.Context) error {
		return s.client.Del(ctx, key(sessionID)).Err()
	})
}

// Ping checks connectivity without going through the breaker, so readiness
// reflects the real backend state.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
