package utils

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"shinydex/internal/constants"
	"shinydex/pkg/database"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

type SyncConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Delay    time.Duration
	Workers  int
	CacheTTL time.Duration
}

type Config struct {
	DB          database.Config
	HTTPAddr    string
	TCPAddr     string
	GRPCAddr    string
	CORSOrigins []string
	LogLevel    string
	Auth        AuthConfig
	Sync        SyncConfig
}

// Load reads .env (when present) and the process environment.
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DB:          database.DefaultConfig(),
		HTTPAddr:    getEnv("SHINYDEX_HTTP_ADDR", ":8080"),
		TCPAddr:     getEnv("SHINYDEX_TCP_ADDR", ":7070"),
		GRPCAddr:    getEnv("SHINYDEX_GRPC_ADDR", ":9090"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Auth:        LoadAuthConfig(logger),
		Sync: SyncConfig{
			BaseURL:  strings.TrimRight(getEnv("POKEAPI_BASE_URL", constants.PokeAPIBaseURL), "/"),
			Timeout:  getDuration(logger, "POKEAPI_TIMEOUT_SECONDS", time.Second, constants.ExternalAPITimeout),
			Delay:    getDuration(logger, "SYNC_DELAY_MS", time.Millisecond, constants.SyncDelay),
			Workers:  getInt(logger, "SYNC_WORKERS", constants.SyncWorkers),
			CacheTTL: getDuration(logger, "POKEAPI_CACHE_TTL_MINUTES", time.Minute, constants.PokeAPICacheTTL),
		},
	}
	if cfg.Sync.Workers < 1 {
		cfg.Sync.Workers = 1
	}

	logger.Info().
		Str("db_path", cfg.DB.Path).
		Str("http_addr", cfg.HTTPAddr).
		Str("tcp_addr", cfg.TCPAddr).
		Str("grpc_addr", cfg.GRPCAddr).
		Str("pokeapi", cfg.Sync.BaseURL).
		Dur("sync_delay", cfg.Sync.Delay).
		Int("sync_workers", cfg.Sync.Workers).
		Dur("cache_ttl", cfg.Sync.CacheTTL).
		Msg("configuration loaded")

	return cfg, nil
}

func LoadAuthConfig(logger zerolog.Logger) AuthConfig {
	secret := os.Getenv("SHINYDEX_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
		logger.Warn().Msg("SHINYDEX_JWT_SECRET not set, using development secret")
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   getEnv("SHINYDEX_JWT_ISSUER", "shinydex"),
		JWTDuration: getDuration(logger, "SHINYDEX_JWT_TTL_HOURS", time.Hour, 7*24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(logger zerolog.Logger, key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", raw).Msg("invalid integer, using default")
		return fallback
	}
	return n
}

// getDuration reads an integer count of unit from key.
func getDuration(logger zerolog.Logger, key string, unit, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		logger.Warn().Str("key", key).Str("value", raw).Msg("invalid duration, using default")
		return fallback
	}
	return time.Duration(n) * unit
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
