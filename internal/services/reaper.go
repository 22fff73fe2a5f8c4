package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog"

	"github.com/tbourn/zync-backend/internal/domain"
	"github.com/tbourn/zync-backend/internal/observability"
)

// DefaultReaperCron runs the reaper every ten minutes.
const DefaultReaperCron = "*/10 * * * *"

// ErrInvalidCron is returned by NewReaper for an unparsable schedule.
var ErrInvalidCron = errors.New("invalid cron expression")

// Reaper periodically deletes drops that are past their expiry. Reads never
// depend on it: expiry is enforced lazily by Retrieve, so the reaper only
// bounds storage growth.
type Reaper struct {
	store DropStore
	cron  string
	log   zerolog.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// NewReaper validates cron and returns a Reaper over store.
func NewReaper(store DropStore, cron string, log zerolog.Logger) (*Reaper, error) {
	if cron == "" {
		cron = DefaultReaperCron
	}
	if !gronx.IsValid(cron) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCron, cron)
	}
	return &Reaper{store: store, cron: cron, log: log, Now: time.Now}, nil
}

// RunOnce deletes expired drops in every kind's namespace and returns the
// number removed. It keeps going after a per-kind failure and returns the
// joined errors.
func (r *Reaper) RunOnce(ctx context.Context) (int64, error) {
	now := r.Now().UnixMilli()
	var (
		total int64
		errs  []error
	)
	for _, k := range domain.Kinds() {
		n, err := r.store.DeleteExpired(ctx, k, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("reap %s: %w", k, err))
			continue
		}
		if n > 0 {
			observability.ReaperDeleted.WithLabelValues(string(k)).Add(float64(n))
		}
		total += n
	}
	return total, errors.Join(errs...)
}

// Start runs the reaper on its cron schedule until ctx is cancelled.
// It blocks; callers usually run it in a goroutine.
func (r *Reaper) Start(ctx context.Context) {
	r.log.Info().Str("cron", r.cron).Msg("reaper started")
	for {
		next, err := gronx.NextTickAfter(r.cron, r.Now().UTC(), false)
		wait := time.Until(next)
		if err != nil {
			r.log.Error().Err(err).Str("cron", r.cron).Msg("reaper next tick failed")
			wait = 30 * time.Second
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			r.log.Info().Msg("reaper stopped")
			return
		case <-t.C:
		}
		if err != nil {
			continue
		}

		n, err := r.RunOnce(ctx)
		if err != nil {
			r.log.Error().Err(err).Msg("reaper run failed")
		}
		r.log.Debug().Int64("deleted", n).Msg("reaper run complete")
	}
}
