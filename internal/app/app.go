// Package app builds the service's dependency graph from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ncpierced1371/throttle-meet-backend/internal/cache"
	"github.com/ncpierced1371/throttle-meet-backend/internal/config"
	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/handler"
	"github.com/ncpierced1371/throttle-meet-backend/internal/reconciler"
	"github.com/ncpierced1371/throttle-meet-backend/internal/repository"
	"github.com/ncpierced1371/throttle-meet-backend/internal/service"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/database"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/jwt"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/middleware"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/pubsub"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/storage"
)

// Context owns every long-lived dependency of the process.
type Context struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	Cache       cache.Cache
	Publisher   pubsub.Publisher
	Storage     storage.Storage
	Invalidator *service.Invalidator
	Services    handler.Services
	CDCHandler  service.CDCHandler
	Reconciler  *reconciler.Reconciler
	Handler     *handler.Handler
}

// New connects to the store, Redis and the event bus, migrates the schema
// and wires the services. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config) (_ *Context, err error) {
	l := pkglog.L()
	a := &Context{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.DB, err = database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err = database.AutoMigrate(a.DB, domain.Models()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	l.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	a.Redis, err = cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.Cache = cache.NewRedisCache(a.Redis)
	l.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")

	a.Publisher, err = pubsub.NewPublisher(cfg.Events, a.Redis)
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	a.Storage, err = storage.New(ctx, cfg.Storage.Config)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}

	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0)
	if err != nil {
		return nil, fmt.Errorf("create token verifier: %w", err)
	}

	opts := service.Options{
		OpTimeout:   cfg.Operation.Timeout,
		FollowTTL:   cfg.Cache.FollowTTL,
		EventTTL:    cfg.Cache.EventTTL,
		ProfileTTL:  cfg.Cache.ProfileTTL,
		FeedTTL:     cfg.Cache.FeedTTL,
		EventsTopic: cfg.Operation.EventsTopic,
	}

	a.Invalidator = service.NewInvalidator(a.Cache)
	notifier := service.NewNotifier(a.Publisher, opts.EventsTopic)

	follows := repository.NewGormFollowRepository(a.DB)
	events := repository.NewGormEventRepository(a.DB)
	content := repository.NewGormContentRepository(a.DB)
	graph := service.NewFollowGraphService(follows, a.Cache, a.Invalidator, notifier, opts)

	a.Services = handler.Services{
		Profiles:      service.NewProfileService(repository.NewGormUserRepository(a.DB), a.Cache, opts),
		Graph:         graph,
		Events:        service.NewEventService(events, follows, a.Cache, a.Invalidator, opts),
		Registrations: service.NewRegistrationService(repository.NewGormRegistrationRepository(a.DB), a.Invalidator, notifier, opts),
		Feed:          service.NewFeedService(graph, follows, content, a.Cache, opts),
		Content:       service.NewContentService(content, follows, a.Invalidator, opts),
		Media:         service.NewMediaService(events, a.Storage, cfg.Storage.UploadExpiry, opts),
	}
	a.CDCHandler = service.NewCDCHandler(a.Invalidator)
	a.Reconciler = reconciler.New(repository.NewGormCounterRepository(a.DB), a.Invalidator, cfg.Reconciler)

	limiter := middleware.NewRateLimiter(a.Redis, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	a.Handler = handler.NewHandler(a.Services, middleware.NewAuthMiddleware(tokens), limiter)

	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *Context) Close() {
	l := pkglog.L()

	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			l.Warn().Err(err).Msg("error closing publisher")
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			l.Warn().Err(err).Msg("error closing redis")
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				l.Warn().Err(err).Msg("error closing database")
			}
		}
	}
}
