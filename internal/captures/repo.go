package captures

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"shinydex/internal/apperr"
	"shinydex/pkg/database"
	"shinydex/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const captureColumns = `id, user_id, pokemon_id, pokemon_name, pokemon_image, pokemon_types, is_shiny, captured_at`

// Insert stores c. The (user_id, pokemon_id) unique index turns a second
// capture of the same pair into a conflict, even under concurrent requests.
func (r *Repo) Insert(ctx context.Context, c models.Capture) error {
	types, err := json.Marshal(c.PokemonTypes)
	if err != nil {
		return fmt.Errorf("marshal types: %w", err)
	}
	if c.PokemonTypes == nil {
		types = []byte("[]")
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO captured_pokemon (`+captureColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.PokemonID, c.PokemonName, c.PokemonImage, string(types), c.IsShiny, c.CapturedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("already captured")
		}
		return fmt.Errorf("insert capture: %w", err)
	}
	return nil
}

// Delete removes every row of the pair and returns how many went away.
func (r *Repo) Delete(ctx context.Context, userID string, pokemonID int) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM captured_pokemon
		WHERE user_id = ? AND pokemon_id = ?
	`, userID, pokemonID)
	if err != nil {
		return 0, fmt.Errorf("delete capture: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete capture rows: %w", err)
	}
	return n, nil
}

// ListByUser returns the user's captures, most recent first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]models.Capture, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+captureColumns+`
		FROM captured_pokemon
		WHERE user_id = ?
		ORDER BY captured_at DESC, pokemon_id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	out := []models.Capture{}
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, userID string, pokemonID int) (*models.Capture, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+captureColumns+`
		FROM captured_pokemon
		WHERE user_id = ? AND pokemon_id = ?
	`, userID, pokemonID)

	c, err := scanCapture(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// CapturedIDs lists the pokemon ids a user holds, ascending.
func (r *Repo) CapturedIDs(ctx context.Context, userID string) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT DISTINCT pokemon_id FROM captured_pokemon
		WHERE user_id = ?
		ORDER BY pokemon_id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("captured ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("captured ids scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// All streams every capture of every user. Used by the export tool.
func (r *Repo) All(ctx context.Context, fn func(models.Capture) error) error {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+captureColumns+`
		FROM captured_pokemon
		ORDER BY user_id ASC, captured_at ASC
	`)
	if err != nil {
		return fmt.Errorf("all captures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCapture(s rowScanner) (models.Capture, error) {
	var (
		c     models.Capture
		types string
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.PokemonID, &c.PokemonName, &c.PokemonImage, &types, &c.IsShiny, &c.CapturedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan capture: %w", err)
	}
	if err := json.Unmarshal([]byte(types), &c.PokemonTypes); err != nil {
		return c, fmt.Errorf("decode capture types: %w", err)
	}
	return c, nil
}
