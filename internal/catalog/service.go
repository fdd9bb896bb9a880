package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"shinydex/internal/apperr"
	"shinydex/internal/generation"
	"shinydex/internal/pokeapi"
	"shinydex/pkg/models"
)

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"totalCount"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type Page struct {
	Pokemon    []models.Pokemon `json:"pokemon"`
	Pagination Pagination       `json:"pagination"`
}

// Fetcher is the remote source used when a requested id has not been synced yet.
type Fetcher interface {
	GetPokemon(ctx context.Context, id int) (*pokeapi.Pokemon, error)
}

// GenerationCount is one row of the generations overview.
type GenerationCount struct {
	generation.Generation
	Range  string `json:"range"`
	Synced int    `json:"synced"`
}

type Service struct {
	repo    *Repo
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewService builds the read path. fetcher may be nil, in which case unsynced
// ids are reported as not found.
func NewService(repo *Repo, fetcher Fetcher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, fetcher: fetcher, logger: logger}
}

func (s *Service) Repo() *Repo { return s.repo }

// ListPokemon returns one page of f plus pagination metadata.
func (s *Service) ListPokemon(ctx context.Context, f Filter) (Page, error) {
	if err := f.Validate(); err != nil {
		return Page{}, err
	}
	f = f.Normalize()

	total, err := s.repo.Count(ctx, f)
	if err != nil {
		s.logger.Error().Err(err).Msg("count pokemon failed")
		return Page{}, apperr.Internal("count pokemon", err)
	}

	items, err := s.repo.List(ctx, f)
	if err != nil {
		s.logger.Error().Err(err).Msg("list pokemon failed")
		return Page{}, apperr.Internal("list pokemon", err)
	}

	return Page{Pokemon: items, Pagination: paginate(f, total)}, nil
}

func paginate(f Filter, total int) Pagination {
	totalPages := (total + f.Limit - 1) / f.Limit
	return Pagination{
		Page:       f.Page,
		Limit:      f.Limit,
		TotalCount: total,
		TotalPages: totalPages,
		HasNext:    f.Page < totalPages,
		HasPrev:    f.Page > 1,
	}
}

// GetPokemon returns one record. With a fetcher configured, a missing id is
// fetched from the remote source and stored before being returned.
func (s *Service) GetPokemon(ctx context.Context, id int) (*models.Pokemon, error) {
	if !generation.ValidPokemonID(id) {
		return nil, apperr.Validation(fmt.Sprintf("invalid pokemon id, must be between 1 and %d", generation.Total))
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int("pokemon_id", id).Msg("get pokemon failed")
		return nil, apperr.Internal("get pokemon", err)
	}
	if p != nil {
		return p, nil
	}
	if s.fetcher == nil {
		return nil, apperr.NotFound("pokemon not found")
	}

	remote, err := s.fetcher.GetPokemon(ctx, id)
	if err != nil {
		if errors.Is(err, pokeapi.ErrNotFound) {
			return nil, apperr.NotFound("pokemon not found")
		}
		s.logger.Warn().Err(err).Int("pokemon_id", id).Msg("live fetch failed")
		return nil, apperr.Internal("fetch pokemon", err)
	}

	rec := remote.Record()
	if rec.ID != id {
		s.logger.Error().Int("pokemon_id", id).Int("remote_id", rec.ID).Msg("live fetch returned another pokemon")
		return nil, apperr.Internal("fetch pokemon", fmt.Errorf("remote returned id %d for %d", rec.ID, id))
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		s.logger.Error().Err(err).Int("pokemon_id", id).Msg("store fetched pokemon failed")
		return nil, apperr.Internal("store pokemon", err)
	}

	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int("pokemon_id", id).Msg("re-read fetched pokemon failed")
		return &rec, nil
	}
	if stored == nil {
		return &rec, nil
	}
	s.logger.Info().Int("pokemon_id", id).Str("name", rec.Name).Msg("pokemon fetched on demand")
	return stored, nil
}

func (s *Service) Types(ctx context.Context) ([]string, error) {
	types, err := s.repo.Types(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list types failed")
		return nil, apperr.Internal("list types", err)
	}
	return types, nil
}

func (s *Service) Search(ctx context.Context, q string) ([]models.Pokemon, error) {
	out, err := s.repo.Search(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Str("q", q).Msg("search failed")
		return nil, apperr.Internal("search pokemon", err)
	}
	return out, nil
}

// Generations lists the generation table with how many ids of each are synced.
func (s *Service) Generations(ctx context.Context) ([]GenerationCount, error) {
	counts, err := s.repo.CountByGeneration(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("count by generation failed")
		return nil, apperr.Internal("count by generation", err)
	}

	all := generation.All()
	out := make([]GenerationCount, 0, len(all))
	for _, g := range all {
		out = append(out, GenerationCount{Generation: g, Range: g.Range(), Synced: counts[g.ID]})
	}
	return out, nil
}
