package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/illegalcall/quickai/internal/config"
	"github.com/illegalcall/quickai/internal/store"
	"github.com/illegalcall/quickai/internal/worker"
	"github.com/illegalcall/quickai/pkg/database"
	"github.com/illegalcall/quickai/pkg/kafka"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("Worker error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled() {
		return errors.New("KAFKA_BROKER must be set to run the worker")
	}
	logger := slog.Default()

	db, err := database.NewClients(ctx, cfg.Database.URL, database.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("✅ Connected to databases")

	consumer, err := kafka.NewConsumer(ctx, cfg.Kafka.Broker, cfg.Kafka.Group)
	if err != nil {
		return err
	}
	defer consumer.Close()
	slog.Info("✅ Connected to Kafka")

	feed := store.NewFeedCache(store.NewCreationStore(db.DB), db.Redis, cfg.Feed.CacheTTL, logger)
	w := worker.NewWorker(cfg.Kafka, consumer, worker.NewFeedInvalidator(feed, logger), logger)
	return w.Start(ctx)
}
