// Package server contains the HTTP handlers for the forum API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/loader"
	"agora/internal/mail"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/notifications"
	"agora/internal/oauth"
	"agora/internal/repository"
	"agora/internal/service"
	"agora/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// OAuthStateTTL bounds how long a provider login may take.
const OAuthStateTTL = 10 * time.Minute

// Deps are the already-initialized collaborators of a Server.
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Store  storage.Store
	Mailer service.Mailer
	// OAuth may be nil, which disables provider login.
	OAuth *oauth.Providers
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

	userRepo   repository.UserRepository
	postRepo   repository.PostRepository
	voteRepo   repository.VoteRepository
	replyRepo  repository.ReplyRepository
	friendRepo repository.FriendRepository

	notifier  *notifications.Notifier
	tokens    *cache.TokenStore
	providers *oauth.Providers
	store     storage.Store

	ledger        *service.VoteLedger
	graph         *service.FriendGraph
	postService   *service.PostService
	replyService  *service.ReplyService
	userService   *service.UserService
	uploadService *service.UploadService
}

// NewServer connects to the database, Redis and the upload store described
// by cfg and wires a Server over them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("upload storage: %w", err)
	}

	return NewServerWithDeps(cfg, Deps{
		DB:     db,
		Redis:  cache.Connect(cfg.RedisURL),
		Store:  store,
		Mailer: mail.NewMailer(cfg),
		OAuth:  oauth.NewProviders(cfg),
	}), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
func NewServerWithDeps(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("agora-api"),
		userRepo:       repository.NewUserRepository(deps.DB),
		postRepo:       repository.NewPostRepository(deps.DB),
		voteRepo:       repository.NewVoteRepository(deps.DB),
		replyRepo:      repository.NewReplyRepository(deps.DB),
		friendRepo:     repository.NewFriendRepository(deps.DB),
		providers:      deps.OAuth,
		store:          deps.Store,
	}

	var tokens service.TokenStore
	if deps.Redis != nil {
		s.notifier = notifications.NewNotifier(deps.Redis)
		s.tokens = cache.NewTokenStore(deps.Redis)
		tokens = s.tokens
	}

	var notifier service.FriendNotifier
	if s.notifier != nil {
		notifier = s.notifier
	}

	s.ledger = service.NewVoteLedger(s.voteRepo, deps.Redis)
	s.graph = service.NewFriendGraph(s.friendRepo, s.userRepo, notifier)
	s.postService = service.NewPostService(s.postRepo, deps.Redis)
	s.replyService = service.NewReplyService(s.replyRepo, s.postRepo)
	s.userService = service.NewUserService(s.userRepo, tokens, deps.Mailer, cfg.JWTSecret, cfg.ClientURL)
	if deps.Store != nil {
		s.uploadService = service.NewUploadService(deps.Store, cfg.UploadMaxBytes)
	}
	return s
}

// NewApp builds the Fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	bodyLimit := 4 * 1024 * 1024
	if uploads := int(s.config.UploadMaxBytes)*4 + 1024*1024; uploads > bodyLimit {
		bodyLimit = uploads
	}

	app := fiber.New(fiber.Config{
		AppName:   "Agora API",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	// after tracing so the trace id reaches the request context
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
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
	auth := middleware.AuthRequired(s.config.JWTSecret)
	viewer := middleware.OptionalAuth(s.config.JWTSecret)

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.store.(*storage.LocalStore); ok {
		app.Static(storage.LocalURLPrefix, local.Dir(), fiber.Static{MaxAge: 86400})
	}

	// Provider login lives outside /api because browsers navigate to it.
	app.Get("/auth/:provider", s.OAuthBegin)
	app.Get("/auth/:provider/callback", s.OAuthCallback)

	api := app.Group("/api")

	accounts := api.Group("/auth")
	accounts.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	accounts.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	accounts.Post("/logout", s.Logout)
	accounts.Get("/me", auth, s.Me)
	accounts.Post("/forgot-password",
		middleware.RateLimitWithPolicy(s.redis, 3, 15*time.Minute, middleware.FailClosed, "forgot_password"), s.ForgotPassword)
	accounts.Post("/change-password", s.ChangePassword)

	posts := api.Group("/posts")
	posts.Get("/", viewer, s.GetPosts)
	// specific /:id/:resource routes before /:id
	posts.Get("/:id/replies", viewer, s.GetReplies)
	posts.Post("/:id/replies", auth, middleware.RateLimit(s.redis, 10, time.Minute, "reply"), s.CreateReply)
	posts.Post("/:id/vote", auth, middleware.RateLimit(s.redis, 60, time.Minute, "vote"), s.VotePost)
	posts.Get("/:id", viewer, s.GetPost)
	posts.Post("/", auth, middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Put("/:id", auth, s.UpdatePost)
	posts.Delete("/:id", auth, s.DeletePost)

	friends := api.Group("/friends", auth)
	friends.Get("/", s.GetFriends)
	friends.Get("/requests", s.GetReceivedRequests)
	friends.Get("/requests/sent", s.GetSentRequests)
	friends.Get("/status/:userId", s.GetFriendStatus)
	friends.Post("/invite/:userId", middleware.RateLimit(s.redis, 10, 5*time.Minute, "friend_invite"), s.InviteFriend)
	friends.Post("/respond/:userId", s.RespondToInvite)
	friends.Delete("/:userId", s.DeleteFriend)

	api.Post("/upload", auth, middleware.RateLimit(s.redis, 20, 10*time.Minute, "upload"), s.UploadImages)

	if !s.config.IsProduction() {
		debug := api.Group("/debug")
		debug.Get("/users", s.DebugUsers)
		debug.Get("/posts", s.DebugPosts)
		debug.Get("/friends", s.DebugFriends)
	}
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
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
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
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

func (s *Server) loaders() *loader.Loaders {
	return loader.New(s.userRepo, s.voteRepo, s.replyRepo)
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	// Debug tap on published notifications; clients are not pushed to.
	if s.notifier != nil {
		err := s.notifier.StartPatternSubscriber(ctx, func(channel, payload string) {
			middleware.Logger.Debug("notification published",
				slog.String("channel", channel), slog.String("payload", payload))
		})
		if err != nil {
			middleware.Logger.Warn("notification subscriber not started", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
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
