package service

import (
	"context"
	"github.com/rs/zerolog"
	"praxis-recording/repository"
	"time"
)

// Reaper pauses recordings whose client stopped sending heartbeats. It runs as
// its own process, never inside a request handler.
type Reaper struct {
	repo       repository.RecordingRepository
	staleAfter time.Duration
	interval   time.Duration
	now        func() time.Time
}

func NewReaper(repo repository.RecordingRepository, staleAfter time.Duration, interval time.Duration, now func() time.Time) *Reaper {
	if now == nil {
		now = utcNow
	}
	return &Reaper{
		repo:       repo,
		staleAfter: staleAfter,
		interval:   interval,
		now:        now,
	}
}

func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	now := r.now()
	paused, err := r.repo.PauseStaleRecordings(ctx, now.Add(-r.staleAfter), now)
	if err != nil {
		return 0, err
	}
	if paused > 0 {
		zerolog.Ctx(ctx).Info().Int64("paused", paused).Dur("stale_after", r.staleAfter).Msg("paused stale recordings")
	}
	return paused, nil
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Dur("interval", r.interval).Dur("stale_after", r.staleAfter).Msg("reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("reaper sweep failed")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			zerolog.Ctx(ctx).Info().Msg("reaper stopped")
			return ctx.Err()
		}
	}
}
