// Package main runs the background notification worker: it emails owners about moderation decisions.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/campus-events/backend/config"
	"github.com/campus-events/backend/internal/bootstrap"
	"github.com/campus-events/backend/internal/mailer"
	"github.com/campus-events/backend/internal/worker"
	"github.com/campus-events/backend/pkg/awsconf"
	"github.com/campus-events/backend/pkg/queue"
	"github.com/campus-events/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var m mailer.Mailer
	switch cfg.Email.Provider {
	case config.EmailSES:
		awsCfg, err := awsconf.Load(ctx, cfg.AWS.Region, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, logger)
		if err != nil {
			logger.Fatal("aws config", zap.Error(err))
		}
		m = mailer.NewSES(awsCfg, cfg.Email.FromAddress, cfg.Email.FromName, logger)
	default:
		m = mailer.NewNop(logger)
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewNotificationProcessor(stores.Accounts, m, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started", zap.String("email_provider", cfg.Email.Provider))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(queue.PollTimeout + 2*time.Second):
		logger.Warn("worker did not stop in time")
	}
	if n, err := jobQueue.DeadLetters(context.Background()); err == nil && n > 0 {
		logger.Warn("dead letter queue not empty", zap.Int64("jobs", n))
	}
	logger.Info("worker stopped")
}
