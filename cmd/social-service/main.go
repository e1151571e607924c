package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ncpierced1371/throttle-meet-backend/internal/app"
	"github.com/ncpierced1371/throttle-meet-backend/internal/config"
	"github.com/ncpierced1371/throttle-meet-backend/internal/consumer"
	"github.com/ncpierced1371/throttle-meet-backend/internal/grpcserver"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty || cfg.Log.Level == "debug",
		ServiceName: "social-service",
	})
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Build store, cache, publisher, storage and services
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}
	defer a.Close()

	// 4. CDC consumer keeps caches fresh for writes made by other processes
	var cdc consumer.CDCEventConsumer
	if cfg.Kafka.Brokers != "" {
		kc, err := consumer.NewConfluentConsumer(cfg.Kafka.Brokers, cfg.Kafka.CDCTopics, cfg.Kafka.GroupID, a.CDCHandler)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka consumer, CDC invalidation disabled")
		} else if err := kc.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to start kafka consumer")
		} else {
			cdc = kc
			logger.Info().Strs("topics", cfg.Kafka.CDCTopics).Msg("kafka CDC consumer started")
		}
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not configured; CDC consumer disabled")
	}

	// 5. Counter reconciler
	a.Reconciler.Start(ctx)
	logger.Info().
		Dur("interval", cfg.Reconciler.Interval).
		Int("batch_size", cfg.Reconciler.BatchSize).
		Msg("reconciler started")

	// 6. gRPC health
	grpcAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.GRPC.Port)
	grpcSrv, err := grpcserver.Start(grpcAddr, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start grpc server")
	}

	// 7. HTTP
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	a.Handler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("social-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 8. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// health goes NOT_SERVING first so no new traffic is routed here
		grpcSrv.Drain()

		// drain HTTP; in-flight mutations finish their transactions
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}

		// stop background loops
		cancel()
		if cdc != nil {
			if err := cdc.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing kafka consumer")
			}
		}
		a.Reconciler.Stop()
		<-a.Reconciler.Done()

		grpcSrv.Stop()
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("social-service stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
