package utils

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SHINYDEX_HTTP_ADDR", "POKEAPI_BASE_URL", "SYNC_DELAY_MS", "SYNC_WORKERS",
		"POKEAPI_CACHE_TTL_MINUTES", "SHINYDEX_JWT_TTL_HOURS", "CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("SHINYDEX_DB_PATH", "/tmp/shinydex-test.db")

	cfg, err := Load(zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Path != "/tmp/shinydex-test.db" {
		t.Fatalf("db path = %q", cfg.DB.Path)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.Sync.Delay != 50*time.Millisecond || cfg.Sync.Workers != 1 || cfg.Sync.CacheTTL != time.Hour {
		t.Fatalf("unexpected sync defaults: %+v", cfg.Sync)
	}
	if cfg.Sync.BaseURL != "https://pokeapi.co/api/v2" {
		t.Fatalf("base url = %q", cfg.Sync.BaseURL)
	}
	if cfg.Auth.JWTDuration != 7*24*time.Hour {
		t.Fatalf("jwt duration = %v", cfg.Auth.JWTDuration)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadOverridesAndInvalidValues(t *testing.T) {
	t.Setenv("POKEAPI_BASE_URL", "http://localhost:9000/")
	t.Setenv("SYNC_DELAY_MS", "0")
	t.Setenv("SYNC_WORKERS", "four")
	t.Setenv("SHINYDEX_JWT_TTL_HOURS", "2")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load(zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sync.BaseURL != "http://localhost:9000" {
		t.Fatalf("trailing slash should be trimmed, got %q", cfg.Sync.BaseURL)
	}
	if cfg.Sync.Delay != 0 {
		t.Fatalf("delay = %v, want 0", cfg.Sync.Delay)
	}
	if cfg.Sync.Workers != 1 {
		t.Fatalf("invalid workers should fall back to 1, got %d", cfg.Sync.Workers)
	}
	if cfg.Auth.JWTDuration != 2*time.Hour {
		t.Fatalf("jwt duration = %v", cfg.Auth.JWTDuration)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}
