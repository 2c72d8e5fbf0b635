package worker

import (
	"context"
	"log/slog"

	"github.com/illegalcall/quickai/internal/models"
)

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// FeedInvalidator drops the community feed cache whenever an event can
// change what the feed shows.
type FeedInvalidator struct {
	feed   Invalidator
	logger *slog.Logger
}

func NewFeedInvalidator(feed Invalidator, logger *slog.Logger) *FeedInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedInvalidator{feed: feed, logger: logger.With("component", "feed-invalidator")}
}

// Handle is also usable as an in-process events.Func when no broker is set.
func (h *FeedInvalidator) Handle(ctx context.Context, event models.CreationEvent) error {
	switch event.Type {
	case models.EventCreationCreated:
		if !event.Publish {
			return nil
		}
	case models.EventCreationLiked:
	default:
		h.logger.Debug("Ignoring event", "type", event.Type)
		return nil
	}

	if err := h.feed.Invalidate(ctx); err != nil {
		return err
	}
	h.logger.Info("Feed cache invalidated", "type", event.Type, "creation_id", event.CreationID)
	return nil
}
