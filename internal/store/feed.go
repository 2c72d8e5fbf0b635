package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/illegalcall/quickai/internal/models"
)

const feedKey = "creations:published"

type PublishedLister interface {
	ListPublished(ctx context.Context) ([]models.Creation, error)
}

// FeedCache keeps the published creations list in Redis for ttl. Redis
// errors fall through to the database.
type FeedCache struct {
	source PublishedLister
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewFeedCache(source PublishedLister, client *redis.Client, ttl time.Duration, logger *slog.Logger) *FeedCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedCache{
		source: source,
		redis:  client,
		ttl:    ttl,
		logger: logger.With("component", "feed-cache"),
	}
}

func (f *FeedCache) ListPublished(ctx context.Context) ([]models.Creation, error) {
	raw, err := f.redis.Get(ctx, feedKey).Bytes()
	switch {
	case err == nil:
		var creations []models.Creation
		if err := json.Unmarshal(raw, &creations); err == nil {
			return creations, nil
		}
		f.logger.Warn("Discarding unreadable feed cache entry")
	case !errors.Is(err, redis.Nil):
		f.logger.Error("Feed cache read failed", "error", err)
	}

	creations, err := f.source.ListPublished(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(creations); err == nil {
		if err := f.redis.Set(ctx, feedKey, payload, f.ttl).Err(); err != nil {
			f.logger.Error("Feed cache write failed", "error", err)
		}
	}
	return creations, nil
}

// Invalidate drops the cached feed so the next read goes to the database.
func (f *FeedCache) Invalidate(ctx context.Context) error {
	return f.redis.Del(ctx, feedKey).Err()
}
