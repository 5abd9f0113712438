package infra

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gm-shop/gm_shop/internal/config"
)

// Backends holds the external stores. Either may be nil in development, in
// which case the in-memory implementations are used instead.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Connect opens whichever backends are configured and bootstraps the schema.
func Connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}
	if cfg.DatabaseURL != "" {
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		b.DB = db
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	if cfg.RedisURL != "" {
		cache, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Cache = cache
	} else {
		logger.Warn("REDIS_URL not set, using in-process channel and settings store")
	}
	return b, nil
}

// Close releases every open backend.
func (b *Backends) Close() error {
	var errs []error
	if b.Cache != nil {
		errs = append(errs, b.Cache.Close())
	}
	if b.DB != nil {
		b.DB.Close()
	}
	return errors.Join(errs...)
}
