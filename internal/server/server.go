// Package server contains the HTTP handlers and the fiber application for
// the content API.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/teeny-box/teenybox-server/internal/config"
	"github.com/teeny-box/teenybox-server/internal/middleware"
	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger reports whether the primary store is reachable.
type Pinger func(ctx context.Context) error

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	redis          *redis.Client
	ping           Pinger
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	posts          *itemHandlers[*models.Post]
	promotions     *itemHandlers[*models.Promotion]
}

// NewServer builds the fiber app with middleware and routes mounted.
func NewServer(
	cfg *config.Config,
	rdb *redis.Client,
	ping Pinger,
	posts ItemService[*models.Post],
	promotions ItemService[*models.Promotion],
) *Server {
	middleware.InitMiddleware(cfg)

	s := &Server{
		config:         cfg,
		redis:          rdb,
		ping:           ping,
		promMiddleware: middleware.InitMetrics("teenybox-api"),
		posts:          newItemHandlers(posts),
		promotions:     newItemHandlers(promotions),
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "teenybox",
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)
	return s
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return respondError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global per-IP ceiling; the Redis limits on writes are stricter.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || middleware.RateLimitDisabled()
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimitRejections.WithLabelValues("global").Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	s.posts.register(api, s.redis)
	s.promotions.register(api, s.redis)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports 503 when the database is unreachable. Redis is
// reported but optional.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.ping == nil {
		dbStatus = "unavailable"
	} else if err := s.ping(ctx); err != nil {
		observability.L(ctx).Warn("readiness: database ping failed", zap.Error(err))
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus != "healthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start listens on the configured port and blocks until shutdown.
func (s *Server) Start() error {
	observability.Logger.Info("server starting", zap.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown drains open connections.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
