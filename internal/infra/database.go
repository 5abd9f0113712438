package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool configures and returns a PostgreSQL connection pool.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id            uuid PRIMARY KEY,
        name          text NOT NULL UNIQUE,
        role          text NOT NULL,
        pin_hash      text NOT NULL,
        character_ids text[] NOT NULL DEFAULT '{}',
        created_at    timestamptz NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS vendors (
        id         uuid PRIMARY KEY,
        name       text NOT NULL,
        image      text NOT NULL DEFAULT '',
        active     boolean NOT NULL DEFAULT true,
        items      jsonb NOT NULL DEFAULT '[]',
        created_at timestamptz NOT NULL,
        updated_at timestamptz NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
        id        uuid PRIMARY KEY,
        holder_id text NOT NULL,
        uuid      text NOT NULL,
        name      text NOT NULL,
        count     integer NOT NULL CHECK (count >= 0),
        price     numeric NOT NULL DEFAULT 0,
        weight    numeric NOT NULL DEFAULT 0,
        UNIQUE (holder_id, uuid)
    )`,
}

// EnsureSchema creates the shop tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
