// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	SeedFixtures    bool
	RateLimit       int
	RateLimitWindow time.Duration
}

// PostgresConfig captures the backing database configuration. An empty URL
// selects the in-memory stores.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig captures the policy cache configuration. An empty URL disables
// caching.
type RedisConfig struct {
	URL            string
	PoolSize       int
	MinIdleConns   int
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PolicyCacheTTL time.Duration
}

// KafkaConfig captures the audit event pipeline configuration. Empty brokers
// disable publishing; audit events then go to the log only.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
}

// Config aggregates all runtime configuration.
type Config struct {
	Server   Server
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// FromEnv builds a Config from ATTESTA_* environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envOr("ATTESTA_ADDR", ":8080"),
			JWTSigningKey:   envOr("ATTESTA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:       envOr("ATTESTA_JWT_ISSUER", "attesta"),
			JWTAudience:     envOr("ATTESTA_JWT_AUDIENCE", "attesta-api"),
			SeedFixtures:    os.Getenv("ATTESTA_SEED_FIXTURES") == "true",
			RateLimit:       envIntOr("ATTESTA_RATE_LIMIT", 0),
			RateLimitWindow: envDurationOr("ATTESTA_RATE_LIMIT_WINDOW", time.Minute),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("ATTESTA_POSTGRES_URL"),
			MaxOpenConns:    envIntOr("ATTESTA_POSTGRES_MAX_OPEN_CONNS", 25),
			ConnMaxLifetime: envDurationOr("ATTESTA_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:            os.Getenv("ATTESTA_REDIS_URL"),
			PoolSize:       envIntOr("ATTESTA_REDIS_POOL_SIZE", 10),
			MinIdleConns:   envIntOr("ATTESTA_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:    envDurationOr("ATTESTA_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:    envDurationOr("ATTESTA_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:   envDurationOr("ATTESTA_REDIS_WRITE_TIMEOUT", 3*time.Second),
			PolicyCacheTTL: envDurationOr("ATTESTA_POLICY_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:      envList("ATTESTA_KAFKA_BROKERS"),
			Topic:        envOr("ATTESTA_KAFKA_TOPIC", "attesta.audit.events"),
			PollInterval: envDurationOr("ATTESTA_OUTBOX_POLL_INTERVAL", 2*time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
