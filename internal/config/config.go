// Package config loads BFA settings from the environment (and an optional
// .env file) through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DevSessionSecret is the default signing secret. It is accepted with the
// in-memory backend only.
const DevSessionSecret = "alts-concierge-dev-secret-change-me"

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Sites allowed to call the API from the browser; empty allows any.
	AllowedOrigins []string

	// Knowledge base document on disk; the embedded copy is used when absent.
	KnowledgePath string

	// Chat
	MaxMessageLength int

	// Sessions
	SessionBackend string
	SessionTTL     time.Duration
	SessionSecret  string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool
}

var defaults = map[string]any{
	"PORT":                        8080,
	"LOG_LEVEL":                   "info",
	"CORS_ALLOWED_ORIGINS":        "",
	"KNOWLEDGE_PATH":              "knowledge.yaml",
	"MAX_MESSAGE_LENGTH":          2000,
	"SESSION_BACKEND":             BackendMemory,
	"SESSION_TTL":                 30 * time.Minute,
	"SESSION_SECRET":              DevSessionSecret,
	"REDIS_ADDR":                  "localhost:6379",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"MAX_RETRIES":                 2,
	"INITIAL_BACKOFF":             50 * time.Millisecond,
	"MAX_CONCURRENCY":             50,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
	"TRACING_ENABLED":             false,
}

// Load reads configuration from environment variables with defaults and
// validates it.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		KnowledgePath: v.GetString("KNOWLEDGE_PATH"),

		MaxMessageLength: v.GetInt("MAX_MESSAGE_LENGTH"),

		SessionBackend: v.GetString("SESSION_BACKEND"),
		SessionTTL:     v.GetDuration("SESSION_TTL"),
		SessionSecret:  v.GetString("SESSION_SECRET"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		MaxRetries:     v.GetInt("MAX_RETRIES"),
		InitialBackoff: v.GetDuration("INITIAL_BACKOFF"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),

		OTLPEndpoint:   v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracingEnabled: v.GetBool("TRACING_ENABLED"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("config: SESSION_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.SessionBackend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT out of range: %d", c.Port)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("config: MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("config: SESSION_SECRET must not be empty")
	}
	if c.SessionBackend == BackendRedis && c.SessionSecret == DevSessionSecret {
		return fmt.Errorf("config: SESSION_SECRET must be set when SESSION_BACKEND is %q", BackendRedis)
	}
	return nil
}

// splitList parses a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
