package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"

	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	"github.com/ncpierced1371/throttle-meet-backend/internal/testutil"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/pubsub"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// brokenCache fails every call, like a Redis that is down.
type brokenCache struct{}

var errCacheDown = errors.New("redis: connection refused")

func (brokenCache) Get(context.Context, string, interface{}) error { return errCacheDown }

func (brokenCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errCacheDown
}

func (brokenCache) Delete(context.Context, ...string) error { return errCacheDown }

func (brokenCache) DeletePattern(context.Context, ...string) error { return errCacheDown }

type testEnv struct {
	db    *gorm.DB
	mr    *miniredis.Miniredis
	cache cache.Cache
	pub   *recordingPublisher
	opts  Options
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr, client := testutil.NewRedis(t)
	return &testEnv{
		db:    testutil.NewDB(t),
		mr:    mr,
		cache: cache.NewRedisCache(client),
		pub:   &recordingPublisher{},
		opts: Options{
			OpTimeout:   5 * time.Second,
			FollowTTL:   300 * time.Second,
			EventTTL:    600 * time.Second,
			ProfileTTL:  300 * time.Second,
			FeedTTL:     120 * time.Second,
			EventsTopic: "test.events",
		},
	}
}

func (e *testEnv) invalidator() *Invalidator { return NewInvalidator(e.cache) }

func (e *testEnv) notifier() *Notifier { return NewNotifier(e.pub, e.opts.EventsTopic) }
