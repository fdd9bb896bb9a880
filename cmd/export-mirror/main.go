package main

import (
	"context"
	"flag"
	"os"
	"time"

	"shinydex/internal/catalog"
	"shinydex/internal/logger"
	"shinydex/internal/mirror"
	"shinydex/pkg/database"
)

func main() {
	outPath := flag.String("out", mirror.DefaultPath, "output JSON path")
	flag.Parse()

	log := logger.Console(os.Getenv("LOG_LEVEL"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.OpenAndMigrate(database.DefaultConfig(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	n, err := mirror.ExportFile(ctx, catalog.NewRepo(db, log), *outPath)
	if err != nil {
		log.Fatal().Err(err).Msg("export failed")
	}
	log.Info().Int("count", n).Str("path", *outPath).Msg("mirror exported")
}
