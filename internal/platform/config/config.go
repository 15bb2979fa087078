// Package config builds runtime configuration from the environment so main
// stays lean. A .env file is honored when present (local development).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"folio/internal/mail"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr        string
	RedisURL    string
	PostgresURL string
	// AppURL is the public base URL of the frontend; verification links are
	// built against it.
	AppURL string

	JWTSigningKey string
	// CookieSecure disables the Secure cookie attribute for plain-HTTP local
	// development. Always true in production.
	CookieSecure bool

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CSRFTokenTTL    time.Duration
	ChallengeTTL    time.Duration
	ProfileCacheTTL time.Duration
	RateLimitWindow time.Duration

	SMTP mail.SMTPConfig
}

// FromEnv loads .env if present and builds a Config. Only the connection
// URLs and the signing key are mandatory.
func FromEnv() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Addr:            envOr("FOLIO_ADDR", ":8080"),
		RedisURL:        os.Getenv("REDIS_URL"),
		PostgresURL:     os.Getenv("POSTGRES_URL"),
		AppURL:          envOr("APP_URL", "http://localhost:5173"),
		JWTSigningKey:   os.Getenv("JWT_SIGNING_KEY"),
		CookieSecure:    os.Getenv("COOKIE_INSECURE") != "true",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		CSRFTokenTTL:    time.Hour,
		ChallengeTTL:    5 * time.Minute,
		ProfileCacheTTL: time.Hour,
		RateLimitWindow: time.Minute,
		SMTP: mail.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envOr("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.PostgresURL == "" {
		return Config{}, fmt.Errorf("POSTGRES_URL is required")
	}
	if cfg.JWTSigningKey == "" {
		return Config{}, fmt.Errorf("JWT_SIGNING_KEY is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
