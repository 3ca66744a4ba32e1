package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type RateLimit struct {
	Max    int
	Window time.Duration
}

type Config struct {
	Address            string
	Store              string
	DatabaseURL        string
	DatabaseRequireTLS bool
	ResetDatabase      bool
	Auth0Domain        string
	Audience           string
	Issuer             string
	JWKSURL            string
	JWKSTimeout        time.Duration
	MaxBodyBytes       int64
	RateLimitPublic    RateLimit
	RateLimitWrite     RateLimit
	ShutdownTimeout    time.Duration
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	DefaultAddress         = ":5100"
	DefaultMaxBodyBytes    = 64 << 10
	DefaultShutdownTimeout = 10 * time.Second
)

func Load() Config {
	cfg := Config{
		Address:      DefaultAddress,
		Store:        StorePostgres,
		MaxBodyBytes: DefaultMaxBodyBytes,
		RateLimitPublic: RateLimit{
			Max:    120,
			Window: time.Minute,
		},
		RateLimitWrite: RateLimit{
			Max:    30,
			Window: time.Minute,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}

	if value := os.Getenv("CS_ADDRESS"); value != "" {
		cfg.Address = value
	}
	if value := strings.ToLower(strings.TrimSpace(os.Getenv("CS_STORE"))); value == StorePostgres || value == StoreMemory {
		cfg.Store = value
	}
	if value := strings.TrimSpace(os.Getenv("CS_DATABASE_URL")); value != "" {
		cfg.DatabaseURL = value
	}
	cfg.DatabaseRequireTLS = parseBoolEnv("CS_DATABASE_REQUIRE_TLS")
	cfg.ResetDatabase = parseBoolEnv("CS_DB_RESET")

	cfg.Auth0Domain = strings.TrimSuffix(strings.TrimSpace(os.Getenv("CS_AUTH0_DOMAIN")), "/")
	cfg.Audience = strings.TrimSpace(os.Getenv("CS_API_AUDIENCE"))
	if cfg.Auth0Domain != "" {
		cfg.JWKSURL = "https://" + cfg.Auth0Domain + "/.well-known/jwks.json"
		cfg.Issuer = "https://" + cfg.Auth0Domain + "/"
	}
	if value := strings.TrimSpace(os.Getenv("CS_JWKS_URL")); value != "" {
		cfg.JWKSURL = value
	}
	if value := strings.TrimSpace(os.Getenv("CS_TOKEN_ISSUER")); value != "" {
		cfg.Issuer = value
	}
	if value := parseDurationEnv("CS_JWKS_TIMEOUT"); value > 0 {
		cfg.JWKSTimeout = value
	}

	if value := parseIntEnv("CS_MAX_BODY_BYTES"); value > 0 {
		cfg.MaxBodyBytes = value
	}
	if value := parseIntEnv("CS_RATE_LIMIT_PUBLIC_MAX"); value > 0 {
		cfg.RateLimitPublic.Max = int(value)
	}
	if value := parseDurationEnv("CS_RATE_LIMIT_PUBLIC_WINDOW"); value > 0 {
		cfg.RateLimitPublic.Window = value
	}
	if value := parseIntEnv("CS_RATE_LIMIT_WRITE_MAX"); value > 0 {
		cfg.RateLimitWrite.Max = int(value)
	}
	if value := parseDurationEnv("CS_RATE_LIMIT_WRITE_WINDOW"); value > 0 {
		cfg.RateLimitWrite.Window = value
	}
	if value := parseDurationEnv("CS_SHUTDOWN_TIMEOUT"); value > 0 {
		cfg.ShutdownTimeout = value
	}

	return cfg
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.JWKSURL == "" {
		errs = append(errs, errors.New("jwks url required: set CS_AUTH0_DOMAIN or CS_JWKS_URL"))
	}
	if c.Issuer == "" {
		errs = append(errs, errors.New("token issuer required: set CS_AUTH0_DOMAIN or CS_TOKEN_ISSUER"))
	}
	if c.Audience == "" {
		errs = append(errs, errors.New("api audience required: set CS_API_AUDIENCE"))
	}
	return errors.Join(errs...)
}

func parseDurationEnv(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return value
}

func parseIntEnv(key string) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func parseBoolEnv(key string) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	return raw == "1" || raw == "true" || raw == "yes" || raw == "on"
}
