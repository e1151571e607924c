package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
)

// stalledFollowRepo blocks every mutation until its context ends, like a
// store stuck behind a lock.
type stalledFollowRepo struct {
	repository.FollowRepository
}

func (stalledFollowRepo) Follow(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledFollowRepo) Unfollow(ctx context.Context, _, _ string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

type stalledRegistrationRepo struct {
	repository.RegistrationRepository
}

func (stalledRegistrationRepo) Create(ctx context.Context, _, _ string, _ domain.RegistrationDetails) (*domain.RegistrationModel, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestOperationTimeout_IsTransient(t *testing.T) {
	e := newTestEnv(t)
	e.opts.OpTimeout = 20 * time.Millisecond

	graph := NewFollowGraphService(stalledFollowRepo{}, e.cache, e.invalidator(), e.notifier(), e.opts)
	regs := NewRegistrationService(stalledRegistrationRepo{}, e.invalidator(), e.notifier(), e.opts)
	ctx := context.Background()

	start := time.Now()
	err := graph.FollowUser(ctx, "a", "b")
	if !errors.Is(err, ErrTransient) {
		t.Errorf("FollowUser: expected ErrTransient, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the deadline to stay in the chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}

	if err := graph.UnfollowUser(ctx, "a", "b"); !errors.Is(err, ErrTransient) {
		t.Errorf("UnfollowUser: expected ErrTransient, got %v", err)
	}
	if _, err := regs.CreateRegistration(ctx, "e1", "u1", domain.RegistrationDetails{}); !errors.Is(err, ErrTransient) {
		t.Errorf("CreateRegistration: expected ErrTransient, got %v", err)
	}

	if got := e.pub.types(); len(got) != 0 {
		t.Errorf("failed operations must not publish, got %v", got)
	}
}

func TestOperationTimeout_RealStore(t *testing.T) {
	e := newTestEnv(t)
	e.opts.OpTimeout = time.Nanosecond
	svc := newFollowGraph(e)

	err := svc.FollowUser(context.Background(), "a", "b")
	if !errors.Is(err, ErrTransient) {
		t.Errorf("expected ErrTransient from an expired transaction, got %v", err)
	}
}
