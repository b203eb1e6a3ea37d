// Package main runs the events directory HTTP server with the admin feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/campus-events/backend/config"
	"github.com/campus-events/backend/internal/bootstrap"
	"github.com/campus-events/backend/internal/notify"
	"github.com/campus-events/backend/internal/realtime"
	"github.com/campus-events/backend/internal/server"
	"github.com/campus-events/backend/pkg/queue"
	"github.com/campus-events/backend/pkg/redis"
	"github.com/campus-events/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	logger := bootstrap.NewLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()
	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer stores.Close(context.Background())

	verifier, err := bootstrap.NewVerifier(cfg.Identity, logger)
	if err != nil {
		logger.Fatal("identity", zap.Error(err))
	}

	// Redis carries owner notifications to the worker and the admin feed across instances.
	// Without it the server still runs: no emails, feed local to this instance.
	hub := realtime.NewHub(logger, nil, nil)
	publishers := notify.Multi{hub}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable; notifications disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
			hub = realtime.NewHub(logger, pubsub, pubsub)
			jobQueue := queue.NewQueue(rdb.Client, logger)
			publishers = notify.Multi{hub, notify.NewQueuePublisher(jobQueue, logger)}
		}
	}

	var media storage.Media
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			MediaBucket:          cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			media = s3Client
		}
	}

	router := server.NewRouter(server.Deps{
		Stores:         stores,
		Verifier:       verifier,
		Media:          media,
		Notifier:       publishers,
		Hub:            hub,
		BasePath:       cfg.Server.BasePath,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.String("base_path", cfg.Server.BasePath),
			zap.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
