package constants

import "time"

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 50
	SearchLimit      = 10
)

const (
	SyncDelay          = 50 * time.Millisecond
	SyncWorkers        = 1
	PokeAPICacheTTL    = 1 * time.Hour
	PokeAPIBaseURL     = "https://pokeapi.co/api/v2"
	ExternalAPITimeout = 10 * time.Second
)

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	ShutdownTimeout = 10 * time.Second
	ReadyTimeout    = 2 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	SessionCookie = "shinydex_session"
)
