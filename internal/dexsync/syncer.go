package dexsync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"shinydex/internal/apperr"
	"shinydex/internal/constants"
	"shinydex/internal/events"
	"shinydex/internal/generation"
	"shinydex/internal/pokeapi"
	"shinydex/pkg/models"
)

type Fetcher interface {
	GetPokemon(ctx context.Context, id int) (*pokeapi.Pokemon, error)
}

type Store interface {
	Upsert(ctx context.Context, p models.Pokemon) error
}

type Options struct {
	// Workers bounds concurrent fetches. One worker keeps the loop strictly
	// sequential in ascending id order.
	Workers int
	// Delay is the minimum spacing between two fetches, shared by all workers.
	Delay time.Duration
	// Publisher receives progress events. Optional.
	Publisher events.Publisher
}

func DefaultOptions() Options {
	return Options{Workers: constants.SyncWorkers, Delay: constants.SyncDelay}
}

type GenerationResult struct {
	Generation int    `json:"generation"`
	Name       string `json:"name"`
	Range      string `json:"range"`
	Count      int    `json:"count"`
}

type Summary struct {
	Results []GenerationResult `json:"results"`
	Total   int                `json:"total"`
}

// Syncer copies the remote catalog into the store, one generation at a time.
type Syncer struct {
	fetcher   Fetcher
	store     Store
	publisher events.Publisher
	pacer     *rate.Limiter
	workers   int
	logger    zerolog.Logger
}

func New(fetcher Fetcher, store Store, opts Options, logger zerolog.Logger) *Syncer {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	return &Syncer{
		fetcher:   fetcher,
		store:     store,
		publisher: opts.Publisher,
		pacer:     rate.NewLimiter(limit, 1),
		workers:   workers,
		logger:    logger,
	}
}

// SyncGeneration syncs every id of gen and returns how many were stored.
func (s *Syncer) SyncGeneration(ctx context.Context, gen int) (int, error) {
	g, ok := generation.ByID(gen)
	if !ok {
		return 0, apperr.Validation("generation must be between 1 and 9")
	}

	res, err := s.syncRange(ctx, g)
	if err != nil {
		s.publish(events.SyncEvent{Type: events.TypeSyncFailed, Generation: g.ID, Name: g.Name, Range: g.Range(), Count: res.Count, Error: err.Error()})
		return res.Count, err
	}
	s.publish(events.SyncEvent{Type: events.TypeSyncDone, Generation: g.ID, Name: g.Name, Range: g.Range(), Count: res.Count, Total: res.Count})
	return res.Count, nil
}

// SyncAll syncs generations 1..9 in order. On a fatal error the summary holds
// the generations finished before it.
func (s *Syncer) SyncAll(ctx context.Context) (Summary, error) {
	var sum Summary
	for _, g := range generation.All() {
		res, err := s.syncRange(ctx, g)
		if err != nil {
			s.publish(events.SyncEvent{Type: events.TypeSyncFailed, Generation: g.ID, Name: g.Name, Range: g.Range(), Count: res.Count, Total: sum.Total, Error: err.Error()})
			return sum, err
		}
		sum.Results = append(sum.Results, res)
		sum.Total += res.Count
	}

	s.logger.Info().Int("total", sum.Total).Msg("full sync completed")
	s.publish(events.SyncEvent{Type: events.TypeSyncDone, Count: sum.Total, Total: sum.Total})
	return sum, nil
}

func (s *Syncer) syncRange(ctx context.Context, g generation.Generation) (GenerationResult, error) {
	res := GenerationResult{Generation: g.ID, Name: g.Name, Range: g.Range()}
	s.logger.Info().Int("generation", g.ID).Str("range", res.Range).Int("workers", s.workers).Msg("syncing generation")

	var synced atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)

	for id := g.Start; id <= g.End; id++ {
		if egCtx.Err() != nil {
			break
		}
		id := id
		eg.Go(func() error {
			ok, err := s.syncOne(egCtx, id)
			if err != nil {
				return err
			}
			if ok {
				synced.Add(1)
			}
			return nil
		})
	}

	err := eg.Wait()
	res.Count = int(synced.Load())
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.logger.Error().Err(err).Int("generation", g.ID).Int("synced", res.Count).Msg("generation sync aborted")
		return res, err
	}

	s.logger.Info().Int("generation", g.ID).Int("count", res.Count).Msg("generation synced")
	s.publish(events.SyncEvent{Type: events.TypeSyncProgress, Generation: g.ID, Name: g.Name, Range: res.Range, Count: res.Count})
	return res, nil
}

// syncOne reports whether id was stored. Fetch failures are skips, store
// failures abort the run.
func (s *Syncer) syncOne(ctx context.Context, id int) (bool, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return false, err
	}

	remote, err := s.fetcher.GetPokemon(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if errors.Is(err, pokeapi.ErrNotFound) {
			s.logger.Warn().Int("pokemon_id", id).Msg("pokemon not found upstream, skipping")
		} else {
			s.logger.Warn().Err(err).Int("pokemon_id", id).Msg("fetch failed, skipping")
		}
		return false, nil
	}

	rec := remote.Record()
	if err := s.store.Upsert(ctx, rec); err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			s.logger.Warn().Err(err).Int("pokemon_id", id).Msg("malformed record, skipping")
			return false, nil
		}
		return false, fmt.Errorf("store pokemon %d: %w", id, err)
	}

	s.logger.Debug().Int("pokemon_id", rec.ID).Str("name", rec.Name).Msg("synced pokemon")
	return true, nil
}

func (s *Syncer) publish(ev events.SyncEvent) {
	if s.publisher == nil {
		return
	}
	ev.At = time.Now().UTC()
	s.publisher.BroadcastJSON(ev)
}
