package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shinydex/internal/catalog"
	"shinydex/internal/dexsync"
	"shinydex/internal/generation"
	"shinydex/internal/logger"
	"shinydex/internal/pokeapi"
	"shinydex/pkg/database"
	"shinydex/pkg/utils"
)

func main() {
	log := logger.Console(os.Getenv("LOG_LEVEL"))

	cfg, err := utils.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	var (
		gen     = flag.Int("gen", 0, "generation to sync (1-9), 0 syncs all")
		workers = flag.Int("workers", cfg.Sync.Workers, "concurrent fetches")
		delay   = flag.Duration("delay", cfg.Sync.Delay, "minimum spacing between fetches")
		baseURL = flag.String("base-url", cfg.Sync.BaseURL, "remote source, e.g. http://localhost:9000 for the mirror")
		dbPath  = flag.String("db", cfg.DB.Path, "sqlite database path")
	)
	flag.Parse()

	if *gen != 0 {
		if _, ok := generation.ByID(*gen); !ok {
			log.Fatal().Int("gen", *gen).Msg("generation must be between 1 and 9")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenAndMigrate(database.Config{Path: *dbPath}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	client := pokeapi.NewClient(*baseURL,
		pokeapi.WithTimeout(cfg.Sync.Timeout),
		pokeapi.WithLogger(log),
	)
	syncer := dexsync.New(client, catalog.NewRepo(db, log), dexsync.Options{
		Workers: *workers,
		Delay:   *delay,
	}, log)

	log.Info().Str("source", client.BaseURL()).Int("workers", *workers).Dur("delay", *delay).Msg("sync starting")

	if *gen != 0 {
		g, _ := generation.ByID(*gen)
		n, err := syncer.SyncGeneration(ctx, *gen)
		if err != nil {
			log.Fatal().Err(err).Int("gen", *gen).Msg("sync failed")
		}
		fmt.Printf("Generation %d (%s, %s): %d pokemon\n", g.ID, g.Name, g.Range(), n)
		return
	}

	summary, err := syncer.SyncAll(ctx)
	for _, r := range summary.Results {
		fmt.Printf("Generation %d (%s, %s): %d pokemon\n", r.Generation, r.Name, r.Range, r.Count)
	}
	fmt.Printf("Total: %d pokemon\n", summary.Total)
	if err != nil {
		log.Error().Err(err).Msg("sync stopped early")
		os.Exit(1)
	}
}
