package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Address != DefaultAddress {
		t.Fatalf("expected default address, got %q", cfg.Address)
	}
	if cfg.Store != StorePostgres {
		t.Fatalf("expected postgres store, got %q", cfg.Store)
	}
	if cfg.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Fatalf("expected default body limit, got %d", cfg.MaxBodyBytes)
	}
	if cfg.JWKSTimeout != 0 {
		t.Fatalf("expected no jwks timeout by default, got %s", cfg.JWKSTimeout)
	}
}

func TestLoadDerivesAuthURLsFromDomain(t *testing.T) {
	t.Setenv("CS_AUTH0_DOMAIN", "dev-coffee.us.auth0.com/")
	t.Setenv("CS_API_AUDIENCE", "coffee")

	cfg := Load()
	if cfg.JWKSURL != "https://dev-coffee.us.auth0.com/.well-known/jwks.json" {
		t.Fatalf("unexpected jwks url %q", cfg.JWKSURL)
	}
	if cfg.Issuer != "https://dev-coffee.us.auth0.com/" {
		t.Fatalf("unexpected issuer %q", cfg.Issuer)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CS_AUTH0_DOMAIN", "dev-coffee.us.auth0.com")
	t.Setenv("CS_JWKS_URL", "http://127.0.0.1:9999/.well-known/jwks.json")
	t.Setenv("CS_TOKEN_ISSUER", "http://127.0.0.1:9999/")
	t.Setenv("CS_STORE", "MEMORY")
	t.Setenv("CS_DB_RESET", "true")
	t.Setenv("CS_JWKS_TIMEOUT", "3s")
	t.Setenv("CS_RATE_LIMIT_WRITE_MAX", "5")
	t.Setenv("CS_RATE_LIMIT_WRITE_WINDOW", "10s")
	t.Setenv("CS_MAX_BODY_BYTES", "not-a-number")

	cfg := Load()
	if cfg.JWKSURL != "http://127.0.0.1:9999/.well-known/jwks.json" || cfg.Issuer != "http://127.0.0.1:9999/" {
		t.Fatalf("expected explicit auth urls to win, got %q %q", cfg.JWKSURL, cfg.Issuer)
	}
	if cfg.Store != StoreMemory {
		t.Fatalf("expected memory store, got %q", cfg.Store)
	}
	if !cfg.ResetDatabase {
		t.Fatalf("expected reset enabled")
	}
	if cfg.JWKSTimeout != 3*time.Second {
		t.Fatalf("unexpected jwks timeout %s", cfg.JWKSTimeout)
	}
	if cfg.RateLimitWrite.Max != 5 || cfg.RateLimitWrite.Window != 10*time.Second {
		t.Fatalf("unexpected write limit %+v", cfg.RateLimitWrite)
	}
	if cfg.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Fatalf("expected malformed value ignored, got %d", cfg.MaxBodyBytes)
	}
}

func TestLoadIgnoresUnknownStore(t *testing.T) {
	t.Setenv("CS_STORE", "sqlite")
	if cfg := Load(); cfg.Store != StorePostgres {
		t.Fatalf("expected fallback to postgres, got %q", cfg.Store)
	}
}

func TestValidateReportsMissingAuth(t *testing.T) {
	err := Config{}.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"jwks url", "token issuer", "api audience"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}
