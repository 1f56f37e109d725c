package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. Built from environment
// variables so main stays lean; empty backend URLs mean in-process fallbacks
// (memory stores, in-memory locks, memory audit sink).
type Config struct {
	Addr          string
	PostgresURL   string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string
	JWTSigningKey string
	// ServiceSecret seeds derived keys (receipt signing).
	ServiceSecret string
	// LockWait bounds per-item lock acquisition for custody operations.
	LockWait time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("CUSTODIA_ADDR", ":8080"),
		PostgresURL:   os.Getenv("CUSTODIA_POSTGRES_URL"),
		RedisURL:      os.Getenv("CUSTODIA_REDIS_URL"),
		KafkaTopic:    envOr("CUSTODIA_AUDIT_TOPIC", "custodia.audit"),
		JWTSigningKey: envOr("CUSTODIA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ServiceSecret: envOr("CUSTODIA_SERVICE_SECRET", "dev-service-secret-change-in-production"),
		LockWait:      3 * time.Second,
	}
	if brokers := os.Getenv("CUSTODIA_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if wait := os.Getenv("CUSTODIA_LOCK_WAIT"); wait != "" {
		if d, err := time.ParseDuration(wait); err == nil && d > 0 {
			cfg.LockWait = d
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
