package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shinydex/internal/apperr"
	"shinydex/internal/constants"
	"shinydex/internal/generation"
	"shinydex/pkg/models"
)

type Repo struct {
	DB     *sql.DB
	logger zerolog.Logger
}

func NewRepo(db *sql.DB, logger zerolog.Logger) *Repo {
	return &Repo{DB: db, logger: logger}
}

const upsertSQL = `
	INSERT INTO pokemon (id, name, height, weight, base_exp, types, abilities, stats, sprites, generation, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name       = excluded.name,
		height     = excluded.height,
		weight     = excluded.weight,
		base_exp   = excluded.base_exp,
		types      = excluded.types,
		abilities  = excluded.abilities,
		stats      = excluded.stats,
		sprites    = excluded.sprites,
		generation = excluded.generation,
		updated_at = excluded.updated_at
`

// Upsert creates the row or replaces every column of it.
func (r *Repo) Upsert(ctx context.Context, p models.Pokemon) error {
	args, err := upsertArgs(p)
	if err != nil {
		return err
	}
	if _, err := r.DB.ExecContext(ctx, upsertSQL, args...); err != nil {
		return fmt.Errorf("upsert pokemon %d: %w", p.ID, err)
	}
	return nil
}

// UpsertBatch upserts ps in one transaction.
func (r *Repo) UpsertBatch(ctx context.Context, ps []models.Pokemon) error {
	if len(ps) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range ps {
		args, err := upsertArgs(p)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("upsert pokemon %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.Debug().Int("rows", len(ps)).Msg("catalog batch upserted")
	return nil
}

func upsertArgs(p models.Pokemon) ([]any, error) {
	if !generation.ValidPokemonID(p.ID) {
		return nil, apperr.Validation(fmt.Sprintf("pokemon id %d out of range", p.ID))
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, apperr.Validation(fmt.Sprintf("pokemon %d has no name", p.ID))
	}

	typesJSON, err := marshalList(p.Types)
	if err != nil {
		return nil, fmt.Errorf("marshal types: %w", err)
	}
	abilitiesJSON, err := marshalList(p.Abilities)
	if err != nil {
		return nil, fmt.Errorf("marshal abilities: %w", err)
	}
	statsJSON, err := marshalList(p.Stats)
	if err != nil {
		return nil, fmt.Errorf("marshal stats: %w", err)
	}
	spritesJSON, err := json.Marshal(p.Sprites)
	if err != nil {
		return nil, fmt.Errorf("marshal sprites: %w", err)
	}

	baseExp := p.BaseExperience
	if baseExp < 0 {
		baseExp = 0
	}

	// generation is always derived from the id, whatever the caller set
	return []any{
		p.ID, p.Name, p.Height, p.Weight, baseExp,
		typesJSON, abilitiesJSON, statsJSON, string(spritesJSON),
		generation.IDOf(p.ID), time.Now().UTC(),
	}, nil
}

func marshalList[T any](v []T) (string, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPokemon(s rowScanner) (models.Pokemon, error) {
	var (
		p                                   models.Pokemon
		types, abilities, stats, spritesRaw string
	)
	if err := s.Scan(
		&p.ID, &p.Name, &p.Height, &p.Weight, &p.BaseExperience,
		&types, &abilities, &stats, &spritesRaw, &p.Generation, &p.UpdatedAt,
	); err != nil {
		return p, err
	}

	if err := json.Unmarshal([]byte(types), &p.Types); err != nil {
		return p, fmt.Errorf("decode types of %d: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(abilities), &p.Abilities); err != nil {
		return p, fmt.Errorf("decode abilities of %d: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(stats), &p.Stats); err != nil {
		return p, fmt.Errorf("decode stats of %d: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(spritesRaw), &p.Sprites); err != nil {
		return p, fmt.Errorf("decode sprites of %d: %w", p.ID, err)
	}
	return p, nil
}

func (r *Repo) GetByID(ctx context.Context, id int) (*models.Pokemon, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+pokemonColumns+` FROM pokemon WHERE id = ?`, id)

	p, err := scanPokemon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return &p, nil
}

func (r *Repo) Count(ctx context.Context, f Filter) (int, error) {
	sqlStr, args := buildListSQL(f, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, f Filter) ([]models.Pokemon, error) {
	sqlStr, args := buildListSQL(f, false)
	if f.Type != "" {
		r.logger.Debug().Str("type", f.Type).Msg("type filter uses element match query")
	}

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	return collect(rows, f.Limit)
}

func collect(rows *sql.Rows, capHint int) ([]models.Pokemon, error) {
	out := make([]models.Pokemon, 0, capHint)
	for rows.Next() {
		p, err := scanPokemon(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Types returns the distinct type names present in the catalog, sorted.
func (r *Repo) Types(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT DISTINCT LOWER(json_extract(t.value, '$.type.name')) AS type_name
		FROM pokemon, json_each(pokemon.types) AS t
		WHERE json_extract(t.value, '$.type.name') IS NOT NULL
		ORDER BY type_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("types query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("types scan: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// CountByGeneration returns synced row counts keyed by generation.
func (r *Repo) CountByGeneration(ctx context.Context) (map[int]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT generation, COUNT(*) FROM pokemon GROUP BY generation`)
	if err != nil {
		return nil, fmt.Errorf("count by generation: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var gen, n int
		if err := rows.Scan(&gen, &n); err != nil {
			return nil, fmt.Errorf("count by generation scan: %w", err)
		}
		out[gen] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Search looks up a numeric id exactly, otherwise matches name substrings.
func (r *Repo) Search(ctx context.Context, q string) ([]models.Pokemon, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []models.Pokemon{}, nil
	}

	if id, err := strconv.Atoi(q); err == nil {
		if !generation.ValidPokemonID(id) {
			return []models.Pokemon{}, nil
		}
		p, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return []models.Pokemon{}, nil
		}
		return []models.Pokemon{*p}, nil
	}

	sqlStr, args := buildListSQL(Filter{Search: q, Page: 1, Limit: constants.SearchLimit}, false)
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return collect(rows, constants.SearchLimit)
}

// All streams every row in id order. Used by the export tools.
func (r *Repo) All(ctx context.Context, fn func(models.Pokemon) error) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+pokemonColumns+` FROM pokemon ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("all query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPokemon(rows)
		if err != nil {
			return fmt.Errorf("all scan: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}
