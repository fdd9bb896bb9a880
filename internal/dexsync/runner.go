package dexsync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shinydex/internal/apperr"
	"shinydex/internal/generation"
)

type Status struct {
	Running     bool       `json:"running"`
	Generation  int        `json:"generation"` // 0 means all generations
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	LastSummary *Summary   `json:"last_summary,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Runner runs at most one sync at a time in the background.
type Runner struct {
	syncer *Syncer
	logger zerolog.Logger

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(s *Syncer, logger zerolog.Logger) *Runner {
	return &Runner{syncer: s, logger: logger}
}

// Start launches a sync of gen, or of everything when gen is 0.
func (r *Runner) Start(gen int) error {
	if gen != 0 {
		if _, ok := generation.ByID(gen); !ok {
			return apperr.Validation("generation must be between 1 and 9")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Running {
		return apperr.Conflict("a sync is already running")
	}

	now := time.Now().UTC()
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.status = Status{
		Running:     true,
		Generation:  gen,
		StartedAt:   &now,
		LastSummary: r.status.LastSummary,
	}

	r.wg.Add(1)
	go r.run(ctx, gen)
	return nil
}

func (r *Runner) run(ctx context.Context, gen int) {
	defer r.wg.Done()

	var (
		sum Summary
		err error
	)
	if gen == 0 {
		sum, err = r.syncer.SyncAll(ctx)
	} else {
		g, _ := generation.ByID(gen)
		var n int
		n, err = r.syncer.SyncGeneration(ctx, gen)
		sum = Summary{
			Results: []GenerationResult{{Generation: g.ID, Name: g.Name, Range: g.Range(), Count: n}},
			Total:   n,
		}
	}

	finished := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Running = false
	r.status.FinishedAt = &finished
	r.status.LastSummary = &sum
	r.status.LastError = ""
	if err != nil {
		r.status.LastError = err.Error()
		r.logger.Error().Err(err).Int("generation", gen).Msg("background sync failed")
	}
	r.cancel()
	r.cancel = nil
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Wait blocks until the current run, if any, is finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Stop cancels the current run and waits for it.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
