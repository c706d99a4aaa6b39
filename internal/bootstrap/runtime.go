// Package bootstrap connects the process-wide dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"blogme/internal/cache"
	"blogme/internal/config"
	"blogme/internal/database"
	"blogme/internal/middleware"
	"blogme/internal/seed"
	"blogme/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedCategories inserts any missing default categories.
	SeedCategories bool
	// WithObjectStore connects MinIO and makes sure the bucket exists.
	WithObjectStore bool
}

// Runtime is the set of connected dependencies.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	Store *storage.MinioStore
}

// InitRuntime connects to Postgres, Redis and optionally MinIO. Redis and MinIO are
// soft dependencies: when unreachable the runtime starts without them.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	rt := &Runtime{DB: db, Redis: cache.GetClient()}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if opts.SeedCategories {
		if _, err := seed.Categories(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to seed default categories: %w", err)
		}
	}

	if opts.WithObjectStore {
		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("object store setup failed: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			middleware.Logger.Warn("object store unavailable, uploads will fail", slog.String("error", err.Error()))
		}
		rt.Store = store
	}

	return rt, nil
}
