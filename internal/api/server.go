package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/illegalcall/quickai/internal/config"
	"github.com/illegalcall/quickai/internal/events"
	"github.com/illegalcall/quickai/internal/identity"
	"github.com/illegalcall/quickai/internal/models"
	"github.com/illegalcall/quickai/internal/pipeline"
	"github.com/illegalcall/quickai/internal/provider"
)

type Runner interface {
	Run(ctx context.Context, acct models.Account, op provider.Operation) (pipeline.Outcome, error)
}

type CreationRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Creation, error)
	ToggleLike(ctx context.Context, id int, userID string) (bool, []string, error)
}

type FeedReader interface {
	ListPublished(ctx context.Context) ([]models.Creation, error)
}

// Deps are the collaborators the handlers call into. Gatherer defaults to
// the global Prometheus registry.
type Deps struct {
	Pipeline  Runner
	Directory identity.Directory
	Creations CreationRepository
	Feed      FeedReader
	Publisher events.Publisher
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	pipeline  Runner
	directory identity.Directory
	creations CreationRepository
	feed      FeedReader
	publisher events.Publisher
	logger    *slog.Logger
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Server.BodyLimit,
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.MaxRequests,
		Expiration: cfg.Server.RequestWindow,
	}))

	server := &Server{
		app:       app,
		cfg:       cfg,
		pipeline:  deps.Pipeline,
		directory: deps.Directory,
		creations: deps.Creations,
		feed:      deps.Feed,
		publisher: deps.Publisher,
		logger:    deps.Logger,
	}
	if server.publisher == nil {
		server.publisher = events.Noop{}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	server.logger = server.logger.With("component", "api")

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	server.setupRoutes(gatherer)
	return server
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Server is Live!")
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := s.app.Group("/api", jwtware.New(jwtware.Config{
		SigningKey:    []byte(s.cfg.JWT.Secret),
		SigningMethod: "HS256",
		ErrorHandler:  s.handleAuthError,
	}), s.resolveAccount)

	ai := api.Group("/ai")
	ai.Post("/generate-article", s.handleGenerateArticle)
	ai.Post("/generate-blog-title", s.handleGenerateBlogTitle)
	ai.Post("/generate-image", s.handleGenerateImage)
	ai.Post("/remove-image-background", s.handleRemoveBackground)
	ai.Post("/remove-image-object", s.handleRemoveObject)
	ai.Post("/resume-review", s.handleResumeReview)

	user := api.Group("/user")
	user.Get("/get-user-creations", s.handleGetUserCreations)
	user.Get("/get-published-creations", s.handleGetPublishedCreations)
	user.Post("/toggle-like-creation", s.handleToggleLike)
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(models.APIResponse{Success: false, Message: message})
}
