package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"time"

	"shinydex/internal/backup"
	"shinydex/internal/captures"
	"shinydex/internal/catalog"
	"shinydex/internal/logger"
	"shinydex/pkg/database"
)

func main() {
	var (
		pokemonOut  = flag.String("pokemon", "data/pokemon.csv", "output CSV path for the catalog")
		capturesOut = flag.String("captures", "data/captured_pokemon.csv", "output CSV path for captures")
	)
	flag.Parse()

	log := logger.Console(os.Getenv("LOG_LEVEL"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := database.OpenAndMigrate(database.DefaultConfig(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	n, err := writeFile(*pokemonOut, func(w io.Writer) (int, error) {
		return backup.ExportPokemon(ctx, catalog.NewRepo(db, log), w)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("export pokemon failed")
	}
	log.Info().Int("rows", n).Str("path", *pokemonOut).Msg("pokemon exported")

	n, err = writeFile(*capturesOut, func(w io.Writer) (int, error) {
		return backup.ExportCaptures(ctx, captures.NewRepo(db), w)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("export captures failed")
	}
	log.Info().Int("rows", n).Str("path", *capturesOut).Msg("captures exported")
}

func writeFile(path string, fn func(io.Writer) (int, error)) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := fn(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
