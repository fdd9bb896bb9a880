// Package backup moves the catalog and the capture ledger in and out of CSV.
package backup

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shinydex/internal/apperr"
	"shinydex/internal/captures"
	"shinydex/internal/catalog"
	"shinydex/internal/constants"
	"shinydex/internal/generation"
	"shinydex/pkg/models"
)

var (
	pokemonHeader = []string{"id", "name", "height", "weight", "base_exp", "generation", "types", "abilities", "stats", "sprites"}
	captureHeader = []string{"id", "user_id", "pokemon_id", "pokemon_name", "pokemon_image", "pokemon_types", "is_shiny", "captured_at"}
)

// ImportResult counts what an import did with each data row.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

func ExportPokemon(ctx context.Context, repo *catalog.Repo, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write(pokemonHeader); err != nil {
		return 0, err
	}

	n := 0
	err := repo.All(ctx, func(p models.Pokemon) error {
		cols, err := jsonColumns(p.Types, p.Abilities, p.Stats, p.Sprites)
		if err != nil {
			return fmt.Errorf("pokemon %d: %w", p.ID, err)
		}
		row := append([]string{
			strconv.Itoa(p.ID),
			p.Name,
			strconv.Itoa(p.Height),
			strconv.Itoa(p.Weight),
			strconv.Itoa(p.BaseExperience),
			strconv.Itoa(p.Generation),
		}, cols...)
		n++
		return w.Write(row)
	})
	if err != nil {
		return 0, err
	}

	w.Flush()
	return n, w.Error()
}

func ExportCaptures(ctx context.Context, repo *captures.Repo, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write(captureHeader); err != nil {
		return 0, err
	}

	n := 0
	err := repo.All(ctx, func(c models.Capture) error {
		cols, err := jsonColumns(c.PokemonTypes)
		if err != nil {
			return fmt.Errorf("capture %s: %w", c.ID, err)
		}
		n++
		return w.Write([]string{
			c.ID,
			c.UserID,
			strconv.Itoa(c.PokemonID),
			c.PokemonName,
			c.PokemonImage,
			cols[0],
			strconv.FormatBool(c.IsShiny),
			c.CapturedAt.UTC().Format(time.RFC3339Nano),
		})
	})
	if err != nil {
		return 0, err
	}

	w.Flush()
	return n, w.Error()
}

// ImportPokemon upserts rows in batches. Rows the store rejects as invalid are
// skipped and logged.
func ImportPokemon(ctx context.Context, repo *catalog.Repo, in io.Reader, logger zerolog.Logger) (ImportResult, error) {
	var res ImportResult
	batch := make([]models.Pokemon, 0, constants.DBBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := repo.UpsertBatch(ctx, batch); err != nil {
			return err
		}
		res.Imported += len(batch)
		batch = batch[:0]
		return nil
	}

	err := eachRow(in, func(line int, get func(string) string) error {
		p, err := pokemonFromRow(get)
		if err != nil {
			logger.Warn().Int("line", line).Err(err).Msg("skipping pokemon row")
			res.Skipped++
			return nil
		}
		batch = append(batch, p)
		if len(batch) == cap(batch) {
			return flush()
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	return res, flush()
}

// ImportCaptures inserts capture rows keeping their ids and timestamps. Pairs
// already in the ledger are skipped.
func ImportCaptures(ctx context.Context, repo *captures.Repo, in io.Reader, logger zerolog.Logger) (ImportResult, error) {
	var res ImportResult
	err := eachRow(in, func(line int, get func(string) string) error {
		c, err := captureFromRow(get)
		if err != nil {
			logger.Warn().Int("line", line).Err(err).Msg("skipping capture row")
			res.Skipped++
			return nil
		}
		if err := repo.Insert(ctx, c); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				res.Skipped++
				return nil
			}
			return err
		}
		res.Imported++
		return nil
	})
	return res, err
}

func pokemonFromRow(get func(string) string) (models.Pokemon, error) {
	var (
		p   models.Pokemon
		err error
	)
	if p.ID, err = strconv.Atoi(get("id")); err != nil || !generation.ValidPokemonID(p.ID) {
		return p, fmt.Errorf("bad id %q", get("id"))
	}
	p.Name = get("name")
	if p.Name == "" {
		return p, errors.New("missing name")
	}
	for col, dst := range map[string]*int{"height": &p.Height, "weight": &p.Weight, "base_exp": &p.BaseExperience} {
		if raw := get(col); raw != "" {
			if *dst, err = strconv.Atoi(raw); err != nil {
				return p, fmt.Errorf("bad %s %q", col, raw)
			}
		}
	}
	if err := decodeColumn(get("types"), &p.Types); err != nil {
		return p, fmt.Errorf("types: %w", err)
	}
	if err := decodeColumn(get("abilities"), &p.Abilities); err != nil {
		return p, fmt.Errorf("abilities: %w", err)
	}
	if err := decodeColumn(get("stats"), &p.Stats); err != nil {
		return p, fmt.Errorf("stats: %w", err)
	}
	if err := decodeColumn(get("sprites"), &p.Sprites); err != nil {
		return p, fmt.Errorf("sprites: %w", err)
	}
	return p, nil
}

func captureFromRow(get func(string) string) (models.Capture, error) {
	c := models.Capture{
		ID:           get("id"),
		UserID:       get("user_id"),
		PokemonName:  get("pokemon_name"),
		PokemonImage: get("pokemon_image"),
		IsShiny:      true,
	}
	if c.ID == "" || c.UserID == "" || c.PokemonName == "" {
		return c, errors.New("id, user_id and pokemon_name are required")
	}

	var err error
	if c.PokemonID, err = strconv.Atoi(get("pokemon_id")); err != nil || !generation.ValidPokemonID(c.PokemonID) {
		return c, fmt.Errorf("bad pokemon_id %q", get("pokemon_id"))
	}
	if raw := get("is_shiny"); raw != "" {
		if c.IsShiny, err = strconv.ParseBool(raw); err != nil {
			return c, fmt.Errorf("bad is_shiny %q", raw)
		}
	}
	at, err := time.Parse(time.RFC3339Nano, get("captured_at"))
	if err != nil {
		return c, fmt.Errorf("bad captured_at %q", get("captured_at"))
	}
	// stored as text, so every row must share one zone to sort correctly
	c.CapturedAt = at.UTC()
	if err := decodeColumn(get("pokemon_types"), &c.PokemonTypes); err != nil {
		return c, fmt.Errorf("pokemon_types: %w", err)
	}
	return c, nil
}

// eachRow calls fn for every data row with a lookup by header name.
// line is 1-based and counts the header.
func eachRow(in io.Reader, fn func(line int, get func(string) string) error) error {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	first, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(first))
	for idx, name := range first {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}

	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if err := fn(line, get); err != nil {
			return err
		}
	}
}

func jsonColumns(vs ...any) ([]string, error) {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}

func decodeColumn(raw string, dst any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
