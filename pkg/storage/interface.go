package storage

import (
	"context"
	"errors"
	"time"
)

// ErrPresignUnsupported is returned by backends that cannot hand out upload URLs.
var ErrPresignUnsupported = errors.New("presigned upload not supported by storage backend")

// Storage is the object store used for user-uploaded media. Clients upload
// directly with a presigned URL; this process never streams the bytes.
type Storage interface {
	// GetUploadURL returns a URL the client can PUT the object to until expires.
	GetUploadURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error)

	// GetURL returns a URL for reading the object.
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists checks if content with the given key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the content with the given key.
	Delete(ctx context.Context, key string) error
}

// Config selects and configures a storage backend.
type Config struct {
	Driver string      `mapstructure:"driver"` // "s3", "local"
	S3     S3Config    `mapstructure:"s3"`
	Local  LocalConfig `mapstructure:"local"`
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return NewLocalStorage(cfg.Local)
	}
}
