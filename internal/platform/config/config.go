package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// Hosted backend (relational store for profiles and activity logs).
	DatabaseURL string

	// Secondary document store and local provider session cache.
	RedisURL string

	// Auth provider. Mode selects the implementation: "hosted" talks to the
	// external auth service at AuthURL with AuthAnonKey; "local" runs the
	// in-process provider (dev and tests).
	AuthMode      string
	AuthURL       string
	AuthAnonKey   string
	JWTSigningKey string

	// Optional activity event stream.
	KafkaBrokers  []string
	ActivityTopic string

	// Guard timing. SettleDelay tolerates asynchronous session propagation
	// after redirect-based sign-in; GraceDelay avoids redirect flicker while
	// a session is still establishing.
	SettleDelay time.Duration
	GraceDelay  time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:          getenv("OPSDESK_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		AuthMode:      getenv("AUTH_MODE", "local"),
		AuthURL:       os.Getenv("AUTH_URL"),
		AuthAnonKey:   os.Getenv("AUTH_ANON_KEY"),
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ActivityTopic: getenv("ACTIVITY_TOPIC", "opsdesk.activity"),
		SettleDelay:   getduration("SETTLE_DELAY", time.Second),
		GraceDelay:    getduration("GRACE_DELAY", 2*time.Second),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
