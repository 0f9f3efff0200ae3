package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/config"
	"github.com/noah-isme/mathla-go-api/internal/handler"
	"github.com/noah-isme/mathla-go-api/internal/middleware"
	"github.com/noah-isme/mathla-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DB                *gorm.DB
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	GradingHandler    *handler.GradingHandler
	HomeworkHandler   *handler.HomeworkHandler
	EventHandler      *handler.EventHandler
	StatsHandler      *handler.StatsHandler
	JWTMiddleware     fiber.Handler
	Logger            zerolog.Logger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler(deps.Logger))

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(api.Group("/assignments", jwtMiddleware))
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware))
	}

	if deps.GradingHandler != nil {
		grading := api.Group("/grading", jwtMiddleware, middleware.RequireRole(middleware.AuthRoleTeacher))
		deps.GradingHandler.Register(grading)
	}

	if deps.HomeworkHandler != nil {
		student := api.Group("/student", jwtMiddleware, middleware.RequireRole(middleware.AuthRoleStudent))
		deps.HomeworkHandler.Register(student)
	}

	if deps.EventHandler != nil {
		deps.EventHandler.Register(api.Group("/events", jwtMiddleware))
	}

	if deps.StatsHandler != nil {
		deps.StatsHandler.Register(api.Group("/stats", jwtMiddleware))
	}
}
