package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/ncpierced1371/throttle-meet-backend/internal/audit"
	"github.com/ncpierced1371/throttle-meet-backend/internal/config"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

// Invalidator drops cache entries that embed a repaired counter.
type Invalidator interface {
	Users(ctx context.Context, userIDs ...string)
	Event(ctx context.Context, eventID string)
}

// Reconciler periodically recomputes follower, following and participant
// counters that drifted from their source rows, e.g. after manual SQL.
type Reconciler struct {
	repo        repository.CounterRepository
	invalidator Invalidator
	cfg         config.ReconcilerConfig
	quit        chan struct{}
	doneCh      chan struct{}
}

// New creates a new Reconciler.
func New(repo repository.CounterRepository, invalidator Invalidator, cfg config.ReconcilerConfig) *Reconciler {
	return &Reconciler{
		repo:        repo,
		invalidator: invalidator,
		cfg:         cfg,
		quit:        make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start launches the reconciler in a background goroutine.
func (r *Reconciler) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the reconciler to stop and returns immediately.
// Call Done() to wait for it to exit.
func (r *Reconciler) Stop() {
	close(r.quit)
}

// Done returns a channel that is closed when the reconciler has fully stopped.
func (r *Reconciler) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneCh)

	interval := r.cfg.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile repairs one batch of users and one batch of events and returns
// how many rows of each it fixed.
func (r *Reconciler) reconcile(ctx context.Context) (users, events int) {
	l := pkglog.L()

	batch := r.cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}

	userIDs, err := r.repo.DriftedUsers(ctx, batch)
	if err != nil {
		l.Error().Err(err).Msg("reconciler: failed to find drifted users")
	} else if len(userIDs) > 0 {
		if err := r.repo.RefreshUsers(ctx, userIDs); err != nil {
			l.Error().Err(err).Int("count", len(userIDs)).Msg("reconciler: failed to refresh user counters")
		} else {
			r.invalidator.Users(ctx, userIDs...)
			users = len(userIDs)
		}
	}

	eventIDs, err := r.repo.DriftedEvents(ctx, batch)
	if err != nil {
		l.Error().Err(err).Msg("reconciler: failed to find drifted events")
	} else if len(eventIDs) > 0 {
		if err := r.repo.RefreshEvents(ctx, eventIDs); err != nil {
			l.Error().Err(err).Int("count", len(eventIDs)).Msg("reconciler: failed to refresh participant counts")
		} else {
			for _, id := range eventIDs {
				r.invalidator.Event(ctx, id)
			}
			events = len(eventIDs)
		}
	}

	if users+events == 0 {
		l.Debug().Msg("reconciler: counters consistent")
		return users, events
	}

	l.Warn().Int("users", users).Int("events", events).Msg("reconciler: repaired drifted counters")
	audit.LogWithDetail(ctx, audit.ActionRepairCounters, "", "", fmt.Sprintf("users=%d events=%d", users, events), "counters repaired")
	return users, events
}
