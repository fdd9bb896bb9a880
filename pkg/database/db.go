package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"shinydex/internal/constants"
)

type Config struct {
	Path string
}

func DefaultConfig() Config {
	if p := os.Getenv("SHINYDEX_DB_PATH"); p != "" {
		return Config{Path: p}
	}

	// local default: ~/.shinydex/data.db
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Path: filepath.Join(home, ".shinydex", "data.db"),
	}
}

func EnsureDataDir(cfg Config) error {
	return os.MkdirAll(filepath.Dir(cfg.Path), 0o755)
}

// dsn puts the per-connection pragmas in the connection string so every pooled
// connection gets them, not only the first one.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_busy_timeout", "5000")
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_foreign_keys", "on")
	return "file:" + filepath.Clean(path) + "?" + q.Encode()
}

func Open(cfg Config, logger zerolog.Logger) (*sql.DB, error) {
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	logger.Info().Str("path", cfg.Path).Msg("opening database")

	db, err := sql.Open("sqlite3", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(constants.DBMaxOpenConns)
	db.SetMaxIdleConns(constants.DBMaxIdleConns)
	db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(constants.DBMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	var mode string
	if err := db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode); err == nil {
		logger.Debug().Str("journal_mode", mode).Msg("sqlite pragmas applied")
	}

	return db, nil
}

// OpenAndMigrate is what every binary does at startup.
func OpenAndMigrate(cfg Config, logger zerolog.Logger) (*sql.DB, error) {
	db, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(context.Background(), db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func MustOpen(cfg Config, logger zerolog.Logger) *sql.DB {
	db, err := OpenAndMigrate(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	return db
}
