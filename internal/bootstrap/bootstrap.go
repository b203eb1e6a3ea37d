// Package bootstrap builds the process-wide dependencies shared by the server and the worker.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campus-events/backend/config"
	"github.com/campus-events/backend/internal/auth"
	"github.com/campus-events/backend/internal/store"
	"github.com/campus-events/backend/internal/store/memstore"
	"github.com/campus-events/backend/internal/store/mongostore"
	"github.com/campus-events/backend/internal/store/pgstore"
	"github.com/campus-events/backend/pkg/database"
)

// NewLogger builds the zap logger: JSON in production, console in development.
func NewLogger(cfg config.LogConfig) *zap.Logger {
	zc := zap.NewProductionConfig()
	if cfg.Env == "development" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// OpenStores connects the persistence backend selected by cfg.Store.Driver.
// Postgres schemas are migrated and Mongo indexes ensured before returning.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.Stores, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return pgstore.New(pool), nil
	case config.DriverMongo:
		client, err := database.OpenMongo(ctx, cfg.Mongo.URI, logger)
		if err != nil {
			return nil, err
		}
		stores, err := mongostore.New(ctx, client, cfg.Mongo.Database)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return stores, nil
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// NewVerifier returns the identity verifier selected by cfg.Identity.Provider.
func NewVerifier(cfg config.IdentityConfig, logger *zap.Logger) (auth.Verifier, error) {
	switch cfg.Provider {
	case config.ProviderFirebase:
		return auth.NewFirebaseVerifier(cfg.FirebaseProjectID, "", nil, logger), nil
	case config.ProviderLocal:
		logger.Warn("local identity provider enabled; tokens are signed with LOCAL_TOKEN_SECRET")
		return auth.NewLocalVerifier(cfg.LocalSecret, cfg.LocalExpireHours), nil
	}
	return nil, fmt.Errorf("unknown identity provider %q", cfg.Provider)
}
