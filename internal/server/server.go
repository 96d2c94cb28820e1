package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"triplog/internal/cache"
	"triplog/internal/config"
	"triplog/internal/database"
	"triplog/internal/identity"
	"triplog/internal/middleware"
	"triplog/internal/models"
	"triplog/internal/repository"
	"triplog/internal/service"
	"triplog/internal/storage"
	"triplog/internal/tourapi"

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

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	authService     *service.AuthService
	userService     *service.UserService
	postService     *service.PostService
	commentService  *service.CommentService
	tripService     *service.TripService
	settingsService *service.SettingsService
	recService      *service.RecommendationService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	store, err := storage.NewR2Store(cfg)
	if err != nil {
		return nil, fmt.Errorf("object store init failed: %w", err)
	}

	verifier := identity.NewRegistry(map[string]identity.Verifier{
		models.ProviderGoogle: identity.NewGoogleVerifier(cfg.GoogleClientID),
		models.ProviderApple:  identity.NewAppleVerifier(cfg.AppleClientID),
	})
	tourClient := tourapi.NewClient(cfg.TourAPIBaseURL, cfg.TourAPIKey)

	srv, err := NewServerWithDeps(cfg, db, redisClient, store, verifier, tourClient)
	if err != nil {
		return nil, err
	}
	// Registered here and not in NewServerWithDeps: the collectors go into the
	// global Prometheus registry, which tolerates exactly one registration.
	srv.promMiddleware = fiberprometheus.New("triplog-api")
	return srv, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use this to substitute sqlite, miniredis and fakes for the external
// collaborators.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	store storage.ObjectStore,
	verifier *identity.Registry,
	tourClient service.TourClient,
) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	tripRepo := repository.NewTripRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	recRepo := repository.NewRecommendationRepository(db)

	server := &Server{
		config: cfg,
		db:     db,
		redis:  redisClient,
	}
	server.authService = service.NewAuthService(userRepo, verifier, cfg)
	server.userService = service.NewUserService(userRepo, store)
	server.postService = service.NewPostService(postRepo, userRepo, store)
	server.commentService = service.NewCommentService(commentRepo, postRepo)
	server.tripService = service.NewTripService(tripRepo, store)
	server.settingsService = service.NewSettingsService(settingsRepo)
	server.recService = service.NewRecommendationService(recRepo, tourClient)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
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
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login", s.SocialLogin)
	auth.Post("/refresh", s.Refresh)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)
	auth.Delete("/withdraw", middleware.AuthRequired, s.Withdraw)

	// Public browse routes; viewer identity is optional and only affects
	// is_liked / is_bookmarked and own-content visibility.
	publicPosts := api.Group("/posts", middleware.OptionalAuth)
	publicPosts.Get("/", s.GetPosts)
	publicPosts.Get("/map", s.GetPostsForMap)
	publicPosts.Get("/:id/comments", s.GetComments)
	publicPosts.Get("/:id", s.GetPost)

	// Public recommendation routes
	recommendations := api.Group("/recommendations")
	recommendations.Get("/", s.GetRecommendations)
	recommendations.Get("/tour/area", s.GetTourByArea)
	recommendations.Get("/tour/search", s.SearchTour)
	recommendations.Get("/tour/:contentId", s.GetTourDetail)
	recommendations.Get("/:id", s.GetRecommendation)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/me/settings", s.GetMySettings)
	users.Put("/me/settings", s.UpdateMySettings)
	users.Get("/me/bookmarks", s.GetMyBookmarkedPosts)
	users.Get("/me/recommendation-bookmarks", s.GetMyRecommendationBookmarks)

	// Protected post routes
	posts := protected.Group("/posts")
	posts.Post("/", s.CreatePost)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Post("/:id/bookmark", s.BookmarkPost)
	posts.Delete("/:id/bookmark", s.UnbookmarkPost)
	posts.Post("/:id/comments", s.CreateComment)
	// Generic /:id routes (for update, delete)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Comment routes
	comments := protected.Group("/comments")
	comments.Post("/:id/like", s.LikeComment)
	comments.Delete("/:id/like", s.UnlikeComment)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	// Trip journal routes
	trips := protected.Group("/trips")
	trips.Post("/", s.CreateTrip)
	trips.Get("/", s.GetTrips)
	trips.Post("/:id/places", s.AddPlace)
	trips.Get("/:id/places", s.GetPlaces)
	trips.Get("/:id", s.GetTrip)
	trips.Put("/:id", s.UpdateTrip)
	trips.Delete("/:id", s.DeleteTrip)

	places := protected.Group("/places")
	places.Post("/:id/photos", s.AddPhoto)
	places.Get("/:id/photos", s.GetPhotos)
	places.Put("/:id", s.UpdatePlace)
	places.Delete("/:id", s.DeletePlace)

	photos := protected.Group("/photos")
	photos.Delete("/:id", s.DeletePhoto)

	// Recommendation bookmarks
	protected.Post("/recommendations/:refId/bookmark", s.ToggleRecommendationBookmark)
	protected.Get("/recommendations/bookmarks/check/:refId", s.CheckRecommendationBookmark)
	protected.Delete("/recommendations/bookmarks", s.ClearRecommendationBookmarks)
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
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
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
		// The app runs without Redis, degraded but serving.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
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

// App builds the Fiber app with middleware and routes; used by tests.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "TripLog API",
		BodyLimit: 25 * 1024 * 1024, // multipart uploads
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
