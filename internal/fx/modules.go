package fx

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"shinydex/internal/auth"
	"shinydex/internal/cache"
	"shinydex/internal/captures"
	"shinydex/internal/catalog"
	"shinydex/internal/dexsync"
	"shinydex/internal/events"
	"shinydex/internal/grpcserver"
	"shinydex/internal/logger"
	"shinydex/internal/pokeapi"
	"shinydex/pkg/database"
	"shinydex/pkg/utils"
)

func ProvideDB(lc fx.Lifecycle, cfg *utils.Config, logger zerolog.Logger) (*sql.DB, error) {
	db, err := database.OpenAndMigrate(cfg.DB, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info().Msg("closing database")
			return db.Close()
		},
	})
	return db, nil
}

func ProvideTokens(cfg *utils.Config) auth.TokenService {
	return auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
}

// ProvideResponseCache holds remote bodies for the on-demand read path and
// purges expired ones for as long as the app runs.
func ProvideResponseCache(lc fx.Lifecycle, cfg *utils.Config) *cache.Cache[[]byte] {
	c := cache.New[[]byte](cfg.Sync.CacheTTL, cache.RealClock{})

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go c.PurgeEvery(ctx, cfg.Sync.CacheTTL)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return c
}

// ProvidePokeAPI is the cached client behind catalog.Service.
func ProvidePokeAPI(cfg *utils.Config, c *cache.Cache[[]byte], logger zerolog.Logger) *pokeapi.Client {
	return pokeapi.NewClient(cfg.Sync.BaseURL,
		pokeapi.WithTimeout(cfg.Sync.Timeout),
		pokeapi.WithCache(c),
		pokeapi.WithLogger(logger.With().Str("component", "pokeapi").Logger()),
	)
}

func ProvideCatalogService(repo *catalog.Repo, client *pokeapi.Client, logger zerolog.Logger) *catalog.Service {
	return catalog.NewService(repo, client, logger)
}

func ProvideHub(lc fx.Lifecycle, logger zerolog.Logger) *events.Hub {
	hub := events.NewHub(logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			hub.Close()
			return nil
		},
	})
	return hub
}

func ProvidePublisher(hub *events.Hub) events.Publisher {
	return hub
}

// ProvideSyncer fetches through its own uncached client: a sync asks for each
// endpoint once, so cached bodies would only pile up.
func ProvideSyncer(repo *catalog.Repo, pub events.Publisher, cfg *utils.Config, logger zerolog.Logger) *dexsync.Syncer {
	client := pokeapi.NewClient(cfg.Sync.BaseURL,
		pokeapi.WithTimeout(cfg.Sync.Timeout),
		pokeapi.WithLogger(logger.With().Str("component", "pokeapi").Logger()),
	)
	return dexsync.New(client, repo, dexsync.Options{
		Workers:   cfg.Sync.Workers,
		Delay:     cfg.Sync.Delay,
		Publisher: pub,
	}, logger.With().Str("component", "sync").Logger())
}

func ProvideRunner(lc fx.Lifecycle, s *dexsync.Syncer, logger zerolog.Logger) *dexsync.Runner {
	r := dexsync.NewRunner(s, logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			r.Stop()
			return nil
		},
	})
	return r
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(utils.Load),
	fx.Provide(ProvideDB),
	// auth
	fx.Provide(ProvideTokens),
	fx.Provide(auth.NewRepo),
	fx.Provide(auth.NewVerifier),
	// remote source
	fx.Provide(ProvideResponseCache),
	fx.Provide(ProvidePokeAPI),
	// catalog
	fx.Provide(catalog.NewRepo),
	fx.Provide(ProvideCatalogService),
	// events
	fx.Provide(ProvideHub),
	fx.Provide(ProvidePublisher),
	// captures
	fx.Provide(captures.NewRepo),
	fx.Provide(captures.NewLedger),
	// sync
	fx.Provide(ProvideSyncer),
	fx.Provide(ProvideRunner),
	// rpc
	fx.Provide(grpcserver.NewServer),
)
