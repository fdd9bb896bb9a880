package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"io/fs"
	"os"
	"time"

	"shinydex/internal/backup"
	"shinydex/internal/captures"
	"shinydex/internal/catalog"
	"shinydex/internal/logger"
	"shinydex/pkg/database"
)

func main() {
	var (
		pokemonIn  = flag.String("pokemon", "data/pokemon.csv", "input CSV path for the catalog")
		capturesIn = flag.String("captures", "data/captured_pokemon.csv", "input CSV path for captures")
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

	res, err := readFile(*pokemonIn, func(r io.Reader) (backup.ImportResult, error) {
		return backup.ImportPokemon(ctx, catalog.NewRepo(db, log), r, log)
	})
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", *pokemonIn).Msg("no catalog file, skipping")
	case err != nil:
		log.Fatal().Err(err).Msg("import pokemon failed")
	default:
		log.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Msg("pokemon imported")
	}

	res, err = readFile(*capturesIn, func(r io.Reader) (backup.ImportResult, error) {
		return backup.ImportCaptures(ctx, captures.NewRepo(db), r, log)
	})
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", *capturesIn).Msg("no captures file, skipping")
	case err != nil:
		log.Fatal().Err(err).Msg("import captures failed")
	default:
		log.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Msg("captures imported")
	}
}

func readFile(path string, fn func(io.Reader) (backup.ImportResult, error)) (backup.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return backup.ImportResult{}, err
	}
	defer f.Close()
	return fn(f)
}
