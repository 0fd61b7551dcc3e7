package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const devSecret = "dev-only-insecure-secret"

// Config is built once at startup and passed by value; nothing mutates it
// afterwards.
type Config struct {
	Env  string
	Port int

	// empty means the in-memory store
	DatabaseURL string

	Secret   string
	TokenTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	OTelEndpoint string

	CORSAllowedOrigins []string
	AuthRateLimit      int
	AuthRateWindow     time.Duration
	MaxBodyBytes       int64

	// proxies whose X-Forwarded-For is believed; empty trusts none
	TrustedProxies []string

	AdminUsername string
	AdminPassword string
}

func Load() (Config, error) {
	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		Port:               getEnvInt("PORT", 8080),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Secret:             os.Getenv("SECRET"),
		TokenTTL:           time.Duration(getEnvInt("JWT_TTL_MINUTES", 60)) * time.Minute,
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		CacheTTL:           time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,
		OTelEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		AuthRateLimit:      getEnvInt("SIGNIN_RATE_LIMIT", 20),
		AuthRateWindow:     time.Minute,
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		TrustedProxies:     splitList(os.Getenv("TRUSTED_PROXIES")),
		AdminUsername:      os.Getenv("ADMIN_USERNAME"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.Secret == "" {
		if !cfg.IsDev() {
			return Config{}, errors.New("SECRET must be set outside dev/test")
		}
		cfg.Secret = devSecret
	}

	return cfg, nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "test"
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env value, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
