// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"blogme/internal/bootstrap"
	"blogme/internal/config"
	"blogme/internal/featureflags"
	"blogme/internal/middleware"
	"blogme/internal/models"
	"blogme/internal/notifications"
	"blogme/internal/repository"
	"blogme/internal/service"
	"blogme/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultCommentPageSize = 10

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	featureFlags *featureflags.Manager
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	publisher    *notifications.Publisher

	authService     *service.AuthService
	userService     *service.UserService
	categoryService *service.CategoryService
	postService     *service.PostService
	commentService  *service.CommentService
	reactionService *service.ReactionService
	dashService     *service.DashboardService
	mediaService    *service.MediaService
}

// NewServer connects to Postgres, Redis and the object store and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedCategories: true, WithObjectStore: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests pass an in-memory database, miniredis and an in-memory object store.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.ObjectStore) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.CommentPageSize <= 0 {
		cfg.CommentPageSize = defaultCommentPageSize
	}
	middleware.InitMiddleware(cfg)

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	categories := service.NewCategoryService(categoryRepo)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("blogme-api"),
		featureFlags:   flags,

		authService:     service.NewAuthService(userRepo, cfg.JWTSecret),
		userService:     service.NewUserService(userRepo),
		categoryService: categories,
		postService:     service.NewPostService(postRepo, categories, cfg.PostPageSize),
		commentService:  service.NewCommentService(commentRepo, postRepo),
		reactionService: service.NewReactionService(reactionRepo, postRepo),
		dashService:     service.NewDashboardService(postRepo, commentRepo, reactionRepo, flags),
		mediaService:    service.NewMediaService(store, cfg.MaxUploadBytes(), flags),
	}

	s.notifier = notifications.NewNotifier(redisClient)
	s.hub = notifications.NewHub()
	s.publisher = notifications.NewPublisher(s.notifier, s.hub)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagates request and user IDs into the request context for logging.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(middleware.TracingMiddleware())
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so browser clients still get CORS headers on 429s.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
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

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "BlogMe Backend Metrics Dashboard",
	}))

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Post("/refresh", s.Refresh)
	auth.Get("/session", s.AuthRequired(), s.Session)
	auth.Post("/password-reset", middleware.RateLimit(s.redis, 3, 15*time.Minute, "password_reset"), s.RequestPasswordReset)
	auth.Post("/password-reset/confirm", s.ConfirmPasswordReset)

	api.Get("/categories", s.GetCategories)

	// Public reads; a valid token unlocks the viewer's own drafts.
	posts := api.Group("/posts", s.OptionalAuth())
	posts.Get("/", s.GetPosts)
	posts.Get("/:id/related", s.GetRelatedPosts)
	posts.Get("/:id/comments/thread", s.GetCommentThread)
	posts.Get("/:id/comments", s.GetComments)
	posts.Get("/:id/reactions/me", s.AuthRequired(), s.GetMyReactions)
	posts.Get("/:id/reactions", s.GetReactionCounts)
	posts.Get("/:id", s.GetPost)

	posts.Post("/", s.AuthRequired(), middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Put("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)
	posts.Post("/:id/like", s.AuthRequired(), s.LikePost)
	posts.Post("/:id/bookmark", s.AuthRequired(), s.BookmarkPost)
	posts.Put("/:id/reaction", s.AuthRequired(), s.SetReaction)
	posts.Post("/:id/comments", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)

	comments := api.Group("/comments")
	comments.Get("/:id/replies", s.GetReplies)
	comments.Delete("/:id", s.AuthRequired(), s.DeleteComment)

	api.Get("/dashboard", s.AuthRequired(), s.GetDashboard)
	api.Post("/media", s.AuthRequired(), middleware.RateLimit(s.redis, 20, 10*time.Minute, "upload"), s.UploadMedia)

	// Define specific /:id/:resource routes BEFORE generic /:id route
	users := api.Group("/users")
	users.Get("/me", s.AuthRequired(), s.GetMyProfile)
	users.Put("/me", s.AuthRequired(), s.UpdateMyProfile)
	users.Get("/:id/posts", s.OptionalAuth(), s.GetUserPosts)
	users.Get("/:id", s.GetUserProfile)

	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.WebSocketTicketRequired(), s.WebsocketHandler())

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so its
// absence degrades the report without failing readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus == "unhealthy" || redisStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus == "unavailable":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName:   "BlogMe API",
		BodyLimit: int(s.config.MaxUploadBytes()) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier.Enabled() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start event wiring", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down websocket hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
