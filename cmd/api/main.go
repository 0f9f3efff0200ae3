package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/config"
	"github.com/noah-isme/mathla-go-api/internal/database"
	"github.com/noah-isme/mathla-go-api/internal/handler"
	"github.com/noah-isme/mathla-go-api/internal/middleware"
	"github.com/noah-isme/mathla-go-api/internal/observability"
	"github.com/noah-isme/mathla-go-api/internal/repository"
	"github.com/noah-isme/mathla-go-api/internal/router"
	"github.com/noah-isme/mathla-go-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis disabled: homework cache and cross-node events are off")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
	}

	// NATS carries cross-node events when configured; redis only otherwise.
	eventsRedis := redisClient
	if natsConn != nil {
		eventsRedis = nil
	}

	observability.RegisterMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	linkRepo := repository.NewAssignmentStudentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	transitionRepo := repository.NewSubmissionTransitionRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	eventService := service.NewEventService(eventsRedis, cfg.EventsChannel, natsConn, logger)
	transitionService := service.NewTransitionService(transitionRepo, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, linkRepo, userRepo, submissionRepo, eventService, validate,
		service.AssignmentServiceConfig{DefaultFormat: cfg.DefaultProblemFormat}, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, linkRepo, transitionService, eventService, validate, logger)
	gradingService := service.NewGradingService(submissionRepo, assignmentRepo, linkRepo, transitionService, eventService, validate, logger)
	homeworkService := service.NewHomeworkService(linkRepo, submissionRepo, redisClient, cfg.HomeworkCacheTTL, logger)
	statsService := service.NewStatsService(statsRepo, userRepo, logger)

	eventService.AddListener(homeworkService.HandleSubmissionEvent)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventService.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.AllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		DB:                db,
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger, cfg.AutosaveRateMax, cfg.AutosaveRateWindow),
		GradingHandler:    handler.NewGradingHandler(gradingService, logger),
		HomeworkHandler:   handler.NewHomeworkHandler(homeworkService, logger),
		EventHandler:      handler.NewEventHandler(eventService, logger, cfg.EventsKeepAlive),
		StatsHandler:      handler.NewStatsHandler(statsService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		Logger:            logger,
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, cancel, logger)
}

func waitForShutdown(app *fiber.App, stopEvents context.CancelFunc, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopEvents()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
