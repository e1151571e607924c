package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache is a JSON read-through cache. Entries are never authoritative; a
// miss is reported as ErrCacheMiss, not as a failure.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern deletes every key matching any glob pattern.
	DeletePattern(ctx context.Context, patterns ...string) error
}
