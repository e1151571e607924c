package service

import (
	"context"
	"errors"
	"time"

	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

// readThrough serves key from c, falling back to load and repopulating c.
// Cache failures degrade to a store read; load errors are returned as is.
func readThrough[T any](ctx context.Context, c cache.Cache, key string, ttl time.Duration, load func() (*T, error)) (*T, error) {
	l := pkglog.Ctx(ctx)

	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Str(pkglog.FieldCacheKey, key).Msg("cache get error, falling back to db")
	}

	value, err := load()
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldCacheKey, key).Msg("cache set error")
	}
	return value, nil
}
