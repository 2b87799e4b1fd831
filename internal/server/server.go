// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/arvi1709/AI-library/docs" // swagger docs
	"github.com/arvi1709/AI-library/internal/ai"
	"github.com/arvi1709/AI-library/internal/auth"
	"github.com/arvi1709/AI-library/internal/bootstrap"
	"github.com/arvi1709/AI-library/internal/cache"
	"github.com/arvi1709/AI-library/internal/config"
	"github.com/arvi1709/AI-library/internal/datasync"
	"github.com/arvi1709/AI-library/internal/featureflags"
	"github.com/arvi1709/AI-library/internal/ingest"
	"github.com/arvi1709/AI-library/internal/mailer"
	"github.com/arvi1709/AI-library/internal/middleware"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/notifications"
	"github.com/arvi1709/AI-library/internal/recording"
	"github.com/arvi1709/AI-library/internal/repository"
	"github.com/arvi1709/AI-library/internal/service"
	"github.com/arvi1709/AI-library/internal/storage"
	"github.com/arvi1709/AI-library/internal/validation"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	// FeatureAIChat gates the ingestion flows and the model helpers.
	FeatureAIChat = featureflags.AIChat
	// FeatureRecording gates the in-browser recording endpoints.
	FeatureRecording = featureflags.Recording

	reaperInterval = time.Minute
	flowMaxAge     = 24 * time.Hour
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens      *auth.TokenManager
	tickets     *auth.Tickets
	revocations *auth.RedisRevocations
	rateLimiter *middleware.RateLimiter

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	syncHub      *notifications.Hub
	hubs         []wireableHub
	broker       *datasync.Broker
	syncSessions *datasync.Registry
	recordings   *recording.Manager
	flows        *ingest.FlowRegistry
	featureFlags *featureflags.Manager
	store        storage.ObjectStore

	authService         *service.AuthService
	userService         *service.UserService
	storyService        *service.StoryService
	commentService      *service.CommentService
	socialService       *service.SocialService
	empathyService      *service.EmpathyService
	reportService       *service.ReportService
	notificationService *service.NotificationService
	deletionService     *service.AccountDeletionService
	ingestService       *service.IngestService
}

// Option overrides a collaborator NewServerWithDeps would otherwise build from config.
type Option func(*deps)

type deps struct {
	generator    ingest.Generator
	generatorSet bool
	store        storage.ObjectStore
	mail         service.Mailer
	filter       service.ContentFilter
}

// WithGenerator replaces the Gemini client. A nil generator makes every
// model call return its fallback.
func WithGenerator(g ingest.Generator) Option {
	return func(d *deps) {
		d.generator = g
		d.generatorSet = true
	}
}

// WithObjectStore replaces the local object store.
func WithObjectStore(store storage.ObjectStore) Option {
	return func(d *deps) { d.store = store }
}

// WithMailer replaces the SMTP mailer.
func WithMailer(m service.Mailer) Option {
	return func(d *deps) { d.mail = m }
}

// WithContentFilter replaces the word-list comment filter.
func WithContentFilter(f service.ContentFilter) Option {
	return func(d *deps) { d.filter = f }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	var d deps
	for _, opt := range opts {
		opt(&d)
	}

	if d.store == nil {
		local, err := storage.NewLocalStore(cfg.StorageDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
		d.store = local
	}
	if d.filter == nil {
		filter, err := validation.NewProfanityFilter(cfg.ModerationWordlist)
		if err != nil {
			return nil, fmt.Errorf("moderation word list: %w", err)
		}
		d.filter = filter
	}
	if d.mail == nil {
		if m := mailer.New(cfg); m != nil {
			d.mail = m
		}
	}
	if !d.generatorSet {
		d.generator = newGenerator(cfg)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	storyRepo := repository.NewStoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	socialRepo := repository.NewSocialRepository(db)
	empathyRepo := repository.NewEmpathyRepository(db)
	reportRepo := repository.NewReportRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	deletionRepo := repository.NewAccountDeletionRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("storyhouse-api"),
		tokens:         auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL(), nil),
		tickets:        auth.NewTickets(redisClient),
		revocations:    auth.NewRedisRevocations(redisClient),
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.Env),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub("notifications"),
		syncHub:        notifications.NewHub("sync"),
		broker:         datasync.NewBroker(),
		flows:          ingest.NewFlowRegistry(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		store:          d.store,
	}
	server.hubs = []wireableHub{server.hub}
	server.recordings = recording.NewManager(cfg.RecordingIdleTimeout(),
		recording.WithStore(d.store),
		recording.WithMaxBytes(cfg.FileMaxUploadSizeMB*1024*1024),
	)
	server.syncSessions = datasync.NewRegistry(server.broker, datasync.NewLoaders(datasync.Stores{
		Users:    userRepo,
		Stories:  storyRepo,
		Comments: commentRepo,
		Social:   socialRepo,
		Reports:  reportRepo,
		Empathy:  empathyRepo,
	}))

	changes := datasync.NewChangePublisher(server.notifier, server.broker)
	events := &realtimePublisher{notifier: server.notifier, hub: server.hub}
	redisCache := cache.NewStore(redisClient)
	images := service.NewImageService(d.store, cfg)

	server.authService = service.NewAuthService(userRepo, server.tokens, server.revocations, server.tickets, images, changes)
	server.userService = service.NewUserService(userRepo, storyRepo, images, redisCache, changes)
	server.storyService = service.NewStoryService(storyRepo, userRepo, socialRepo, notificationRepo, images, events, redisCache, changes)
	server.commentService = service.NewCommentService(commentRepo, userRepo, d.filter, changes)
	server.socialService = service.NewSocialService(socialRepo, userRepo, storyRepo, redisCache, changes)
	server.empathyService = service.NewEmpathyService(empathyRepo, storyRepo, changes)
	server.reportService = service.NewReportService(reportRepo, storyRepo, userRepo, notificationRepo, events, d.mail, changes)
	server.notificationService = service.NewNotificationService(notificationRepo, events)
	server.deletionService = service.NewAccountDeletionService(service.AccountDeletionDeps{
		Repo:              deletionRepo,
		Images:            images,
		Revocations:       server.revocations,
		Mail:              d.mail,
		Cache:             redisCache,
		Changes:           changes,
		CloseUser:         server.closeUserSessions,
		RecentLoginWindow: cfg.RecentLoginWindow(),
	})
	server.ingestService = service.NewIngestService(
		server.flows,
		ingest.NewIngestor(d.generator, cfg.AIRequestTimeout()),
		server.recordings,
		server.storyService,
	)

	return server, nil
}

// newGenerator returns the Gemini client, or nil when no key is configured
// so that ingestion serves fallbacks instead of failing to start.
func newGenerator(cfg *config.Config) ingest.Generator {
	if cfg.GeminiAPIKey == "" {
		middleware.Logger.Warn("GEMINI_API_KEY not set, ingestion will return fallback results")
		return nil
	}
	gen, err := ai.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		middleware.Logger.Warn("gemini client unavailable, ingestion will return fallback results", "error", err)
		return nil
	}
	return gen
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests or local/test traffic.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Storyhouse Backend Metrics Dashboard",
	}))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Locally stored images and recordings
	if strings.HasPrefix(s.config.PublicBaseURL, "/") {
		app.Static(s.config.PublicBaseURL, s.config.StorageDir, fiber.Static{ByteRange: true})
	}

	authRequired := s.AuthRequired()
	optionalAuth := middleware.OptionalAuth(s.authConfig())

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/signup", s.rateLimiter.Limit("signup", 5, 10*time.Minute, middleware.FailOpen), s.Signup)
	authGroup.Post("/login", s.rateLimiter.Limit("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	authGroup.Post("/refresh", authRequired, s.Refresh)
	authGroup.Post("/logout", authRequired, s.Logout)

	api.Get("/categories", s.GetCategories)
	api.Get("/feature-flags", optionalAuth, s.GetFeatureFlags)

	// Users
	users := api.Group("/users")
	users.Get("/", authRequired, s.ListUsers)
	users.Get("/me", authRequired, s.GetMe)
	users.Put("/me", authRequired, s.UpdateMe)
	users.Delete("/me", authRequired, s.DeleteAccount)
	users.Get("/me/bookmarks", authRequired, s.GetBookmarks)
	users.Get("/:id/profile", s.GetProfile)
	users.Get("/:id/stories", optionalAuth, s.GetUserStories)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Post("/:id/follow", authRequired, s.ToggleFollow)

	// Stories
	stories := api.Group("/stories")
	stories.Get("/", optionalAuth, s.ListStories)
	stories.Post("/", authRequired, s.CreateStory)
	stories.Get("/:id", optionalAuth, s.GetStory)
	stories.Put("/:id", authRequired, s.UpdateStory)
	stories.Delete("/:id", authRequired, s.DeleteStory)
	stories.Get("/:id/likes", s.GetLikes)
	stories.Post("/:id/like", authRequired, s.ToggleLike)
	stories.Post("/:id/bookmark", authRequired, s.ToggleBookmark)
	stories.Get("/:id/comments", s.ListComments)
	stories.Post("/:id/comments", authRequired,
		s.rateLimiter.Limit("comment", 20, time.Minute, middleware.FailOpen), s.AddComment)
	stories.Get("/:id/empathy", s.GetEmpathy)
	stories.Put("/:id/empathy", authRequired, s.RateEmpathy)
	stories.Post("/:id/report", authRequired,
		s.rateLimiter.Limit("report", 10, time.Hour, middleware.FailOpen), s.ReportStory)

	api.Delete("/comments/:id", authRequired, s.DeleteComment)
	api.Get("/reports", authRequired, s.ListReports)

	// Notifications
	notificationsGroup := api.Group("/notifications", authRequired)
	notificationsGroup.Get("/", s.ListNotifications)
	notificationsGroup.Post("/read", s.MarkNotificationsRead)

	// Add-story flow
	aiGate := s.featureFlags.Gate(FeatureAIChat, currentUserID)
	ingestLimit := s.rateLimiter.Limit("ingest", 30, time.Hour, middleware.FailOpen)
	ingestGroup := api.Group("/ingest", authRequired, aiGate)
	ingestGroup.Post("/flows", s.CreateFlow)
	ingestGroup.Get("/flows/:flowId", s.GetFlow)
	ingestGroup.Delete("/flows/:flowId", s.DeleteFlow)
	ingestGroup.Post("/flows/:flowId/restart", s.RestartFlow)
	ingestGroup.Post("/flows/:flowId/upload", ingestLimit, s.UploadToFlow)
	ingestGroup.Post("/flows/:flowId/text", ingestLimit, s.SubmitTextToFlow)
	ingestGroup.Post("/flows/:flowId/submit", s.SubmitFlow)
	ingestGroup.Post("/summarize", ingestLimit, s.Summarize)
	ingestGroup.Post("/chat", ingestLimit, s.Chat)

	recordingGate := s.featureFlags.Gate(FeatureRecording, currentUserID)
	recordings := api.Group("/recordings", authRequired, recordingGate)
	recordings.Post("/", s.StartRecording)
	recordings.Get("/:recordingId", s.GetRecording)
	recordings.Delete("/:recordingId", s.CancelRecording)
	recordings.Post("/:recordingId/chunks", s.AppendRecording)
	recordings.Post("/:recordingId/pause", s.PauseRecording)
	recordings.Post("/:recordingId/resume", s.ResumeRecording)
	recordings.Post("/:recordingId/stop", ingestLimit, s.StopRecording)
	recordings.Post("/:recordingId/retry", ingestLimit, s.RetryTranscription)

	// Realtime
	api.Post("/ws/ticket", authRequired, s.IssueWSTicket)
	ws := app.Group("/ws", requireUpgrade, authRequired)
	ws.Get("/", s.NotificationSocket())
	ws.Get("/sync", s.SyncSocket())
}

// authConfig wires the session collaborators into the auth middleware.
func (s *Server) authConfig() middleware.AuthConfig {
	return middleware.AuthConfig{
		Tokens:      s.tokens,
		Tickets:     s.tickets,
		Revocations: s.revocations,
	}
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.authConfig())
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	maxMB := s.config.FileMaxUploadSizeMB
	if s.config.ImageMaxUploadSizeMB > maxMB {
		maxMB = s.config.ImageMaxUploadSizeMB
	}
	app := fiber.New(fiber.Config{
		AppName:      "Storyhouse API",
		BodyLimit:    (maxMB + 1) * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError,
		models.NewInternalErrorMessage(models.GenericFailureMessage, err))
}

// Start starts the background workers and serves HTTP until the listener stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()
	s.startBackground(ctx)

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// startBackground wires the hubs and the sync broker to Redis and starts the
// recording reaper and the flow pruner.
func (s *Server) startBackground(ctx context.Context) {
	if s.notifier.Enabled() {
		for _, h := range s.hubs {
			h := h
			go func() {
				if err := h.StartWiring(ctx, s.notifier); err != nil {
					middleware.Logger.Error("hub wiring stopped", "hub", h.Name(), "error", err)
				}
			}()
		}
		go func() {
			if err := s.broker.Run(ctx, s.notifier); err != nil {
				middleware.Logger.Error("sync broker stopped", "error", err)
			}
		}()
	}

	s.recordings.StartReaper(ctx, reaperInterval)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.flows.Prune(flowMaxAge); n > 0 {
					middleware.Logger.Info("pruned abandoned ingestion flows", "count", n)
				}
			}
		}
	}()
}

// Shutdown stops accepting connections, closes the hubs and sync sessions,
// stops the reaper, then closes Redis and the database.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", "hub", h.Name(), "error", err)
		}
	}
	_ = s.syncHub.Shutdown(ctx)
	s.syncSessions.CloseAll()

	// Cancel the server-scoped context to stop the wiring goroutines
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	s.recordings.Stop()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

// closeUserSessions disconnects every socket, sync session and recording of a deleted user.
func (s *Server) closeUserSessions(userID uint) {
	s.hub.CloseUser(userID)
	s.syncHub.CloseUser(userID)
	s.syncSessions.CloseUser(userID)
	s.recordings.RemoveUser(userID)
}

// closeTokenSessions disconnects the sockets opened with a revoked token.
func (s *Server) closeTokenSessions(tokenID string) {
	s.hub.CloseToken(tokenID)
	s.syncHub.CloseToken(tokenID)
	s.syncSessions.CloseToken(tokenID)
}
