package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/illegalcall/quickai/internal/api"
	"github.com/illegalcall/quickai/internal/asset"
	"github.com/illegalcall/quickai/internal/config"
	"github.com/illegalcall/quickai/internal/events"
	"github.com/illegalcall/quickai/internal/identity"
	"github.com/illegalcall/quickai/internal/metrics"
	"github.com/illegalcall/quickai/internal/models"
	"github.com/illegalcall/quickai/internal/pipeline"
	"github.com/illegalcall/quickai/internal/provider"
	"github.com/illegalcall/quickai/internal/quota"
	"github.com/illegalcall/quickai/internal/store"
	"github.com/illegalcall/quickai/internal/worker"
	"github.com/illegalcall/quickai/pkg/database"
	"github.com/illegalcall/quickai/pkg/kafka"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
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

	if err := db.CreateCreationsTable(ctx); err != nil {
		return err
	}

	directory, err := identity.NewSupabaseDirectory(cfg.Identity.URL, cfg.Identity.ServiceKey, logger)
	if err != nil {
		return err
	}

	chat, err := provider.NewChatClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Temperature, cfg.LLM.Timeout)
	if err != nil {
		return err
	}

	host, err := asset.NewCloudinaryHost(cfg.Assets.CloudName, cfg.Assets.APIKey, cfg.Assets.APISecret)
	if err != nil {
		return err
	}

	creations := store.NewCreationStore(db.DB)
	feed := store.NewFeedCache(creations, db.Redis, cfg.Feed.CacheTTL, logger)

	var publisher events.Publisher
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(ctx, cfg.Kafka.Broker, cfg.Kafka.RetryMax, cfg.Kafka.RetryBackoff)
		if err != nil {
			return err
		}
		defer producer.Close()
		slog.Info("✅ Connected to Kafka")
		publisher = events.NewKafkaPublisher(producer, cfg.Kafka.Topic, logger)
	} else {
		slog.Info("KAFKA_BROKER not set, handling creation events in process")
		publisher = events.Func(worker.NewFeedInvalidator(feed, logger).Handle)
	}

	adapter := provider.NewAdapter(provider.Backends{
		Text:      chat,
		Images:    provider.NewClipdropClient(cfg.Image.ClipdropAPIKey, cfg.Image.ClipdropURL, cfg.Image.Timeout),
		Assets:    host,
		Documents: provider.PDFExtractor{},
		Models: map[models.CreationType]string{
			models.CreationArticle:      cfg.LLM.ArticleModel,
			models.CreationBlogTitle:    cfg.LLM.TitleModel,
			models.CreationResumeReview: cfg.LLM.ReviewModel,
		},
		AssetFolder: cfg.Assets.Folder,
	}, logger)

	orchestrator := pipeline.NewOrchestrator(pipeline.Options{
		Gate:       quota.NewGate(quota.NewRedisCounter(db.Redis, cfg.Quota.CounterTTL), directory, cfg.Quota.FreeLimit, logger),
		Executor:   adapter,
		Normalizer: asset.NewNormalizer(host, cfg.Assets.Folder, logger),
		Store:      creations,
		Publisher:  publisher,
		Recorder:   metrics.NewGenerations(prometheus.DefaultRegisterer),
		Logger:     logger,
	})

	server := api.NewServer(cfg, api.Deps{
		Pipeline:  orchestrator,
		Directory: directory,
		Creations: creations,
		Feed:      feed,
		Publisher: publisher,
		Logger:    logger,
	})

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("Server is running", "port", cfg.Server.Port)
	return server.Start()
}
