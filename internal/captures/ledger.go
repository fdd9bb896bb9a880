package captures

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"shinydex/internal/apperr"
	"shinydex/internal/events"
	"shinydex/internal/generation"
	"shinydex/pkg/models"
)

// Snapshot is the catalog data copied into a capture row. It is not refreshed
// when the catalog changes later.
type Snapshot struct {
	PokemonID int               `json:"id"`
	Name      string            `json:"name"`
	Image     string            `json:"image,omitempty"`
	Types     []models.TypeSlot `json:"types"`
}

func SnapshotOf(p models.Pokemon) Snapshot {
	return Snapshot{PokemonID: p.ID, Name: p.Name, Image: p.ArtworkURL(), Types: p.Types}
}

type GenerationStats struct {
	Generation int    `json:"generation"`
	Name       string `json:"name"`
	Caught     int    `json:"caught"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// Stats is the living dex completion of one user.
type Stats struct {
	Caught       int               `json:"caught"`
	Total        int               `json:"total"`
	Percentage   int               `json:"percentage"`
	ByGeneration []GenerationStats `json:"byGeneration"`
}

type Ledger struct {
	repo      *Repo
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewLedger builds the ledger. publisher may be nil.
func NewLedger(repo *Repo, publisher events.Publisher, logger zerolog.Logger) *Ledger {
	return &Ledger{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Unauthenticated("not authenticated")
	}
	return nil
}

func validID(pokemonID int) error {
	if !generation.ValidPokemonID(pokemonID) {
		return apperr.Validation(fmt.Sprintf("invalid pokemon id, must be between 1 and %d", generation.Total))
	}
	return nil
}

// Capture records the pair. A second capture of the same pair is a conflict.
func (l *Ledger) Capture(ctx context.Context, userID string, snap Snapshot) (models.Capture, error) {
	if err := requireUser(userID); err != nil {
		return models.Capture{}, err
	}
	if err := validID(snap.PokemonID); err != nil {
		return models.Capture{}, err
	}
	name := strings.ToLower(strings.TrimSpace(snap.Name))
	if name == "" {
		return models.Capture{}, apperr.Validation("pokemon name is required")
	}

	id, err := gonanoid.New()
	if err != nil {
		return models.Capture{}, apperr.Internal("generate id", err)
	}

	types := snap.Types
	if types == nil {
		types = []models.TypeSlot{}
	}
	c := models.Capture{
		ID:           id,
		UserID:       userID,
		PokemonID:    snap.PokemonID,
		PokemonName:  name,
		PokemonImage: snap.Image,
		PokemonTypes: types,
		IsShiny:      true,
		CapturedAt:   l.now(),
	}

	if err := l.repo.Insert(ctx, c); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return models.Capture{}, err
		}
		l.logger.Error().Err(err).Str("user_id", userID).Int("pokemon_id", snap.PokemonID).Msg("capture failed")
		return models.Capture{}, apperr.Internal("capture", err)
	}

	l.logger.Info().Str("user_id", userID).Int("pokemon_id", c.PokemonID).Str("name", c.PokemonName).Msg("pokemon captured")
	l.publish(events.CaptureEvent{Type: events.TypeCaptureAdd, UserID: userID, PokemonID: c.PokemonID, PokemonName: c.PokemonName})
	return c, nil
}

// Release deletes the pair. Releasing something never captured is not an error.
func (l *Ledger) Release(ctx context.Context, userID string, pokemonID int) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	if err := validID(pokemonID); err != nil {
		return 0, err
	}

	n, err := l.repo.Delete(ctx, userID, pokemonID)
	if err != nil {
		l.logger.Error().Err(err).Str("user_id", userID).Int("pokemon_id", pokemonID).Msg("release failed")
		return 0, apperr.Internal("release", err)
	}

	if n > 0 {
		l.logger.Info().Str("user_id", userID).Int("pokemon_id", pokemonID).Msg("pokemon released")
		l.publish(events.CaptureEvent{Type: events.TypeCaptureRelease, UserID: userID, PokemonID: pokemonID})
	}
	return n, nil
}

func (l *Ledger) List(ctx context.Context, userID string) ([]models.Capture, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	out, err := l.repo.ListByUser(ctx, userID)
	if err != nil {
		l.logger.Error().Err(err).Str("user_id", userID).Msg("list captures failed")
		return nil, apperr.Internal("list captures", err)
	}
	return out, nil
}

func (l *Ledger) IsCaptured(ctx context.Context, userID string, pokemonID int) (bool, error) {
	if err := requireUser(userID); err != nil {
		return false, err
	}
	if err := validID(pokemonID); err != nil {
		return false, err
	}
	c, err := l.repo.Get(ctx, userID, pokemonID)
	if err != nil {
		l.logger.Error().Err(err).Str("user_id", userID).Int("pokemon_id", pokemonID).Msg("capture lookup failed")
		return false, apperr.Internal("capture lookup", err)
	}
	return c != nil, nil
}

// Stats reports completion overall and per generation.
func (l *Ledger) Stats(ctx context.Context, userID string) (Stats, error) {
	if err := requireUser(userID); err != nil {
		return Stats{}, err
	}
	ids, err := l.repo.CapturedIDs(ctx, userID)
	if err != nil {
		l.logger.Error().Err(err).Str("user_id", userID).Msg("capture stats failed")
		return Stats{}, apperr.Internal("capture stats", err)
	}
	return computeStats(ids), nil
}

func computeStats(ids []int) Stats {
	all := generation.All()
	byGen := make([]GenerationStats, len(all))
	for i, g := range all {
		byGen[i] = GenerationStats{Generation: g.ID, Name: g.Name, Total: g.Size()}
	}

	caught := 0
	for _, id := range ids {
		g, ok := generation.Of(id)
		if !ok {
			continue
		}
		byGen[g.ID-1].Caught++
		caught++
	}
	for i := range byGen {
		byGen[i].Percentage = percent(byGen[i].Caught, byGen[i].Total)
	}

	return Stats{
		Caught:       caught,
		Total:        generation.Total,
		Percentage:   percent(caught, generation.Total),
		ByGeneration: byGen,
	}
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(total)))
}

func (l *Ledger) publish(ev events.CaptureEvent) {
	if l.publisher == nil {
		return
	}
	ev.At = l.now()
	l.publisher.BroadcastJSON(ev)
}
