package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Clients struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewClients(ctx context.Context, dbURL string, redisOpts RedisOptions) (*Clients, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Clients{
		DB:    db,
		Redis: redisClient,
	}, nil
}

func (c *Clients) Close() error {
	redisErr := c.Redis.Close()
	if err := c.DB.Close(); err != nil {
		return err
	}
	return redisErr
}

const creationsSchema = `CREATE TABLE IF NOT EXISTS creations (
	id SERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	prompt TEXT NOT NULL,
	content TEXT NOT NULL,
	type TEXT NOT NULL,
	publish BOOLEAN NOT NULL DEFAULT FALSE,
	likes TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS creations_user_id_idx ON creations (user_id, created_at);
CREATE INDEX IF NOT EXISTS creations_published_idx ON creations (created_at DESC) WHERE publish;`

func (c *Clients) CreateCreationsTable(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, creationsSchema); err != nil {
		return fmt.Errorf("failed to create creations table: %w", err)
	}

	slog.Info("✅ Creations table is ready!")
	return nil
}
