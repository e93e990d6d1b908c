package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/bookeval-api/internal/config"
	"github.com/noah-isme/bookeval-api/internal/database"
	"github.com/noah-isme/bookeval-api/internal/handler"
	"github.com/noah-isme/bookeval-api/internal/middleware"
	"github.com/noah-isme/bookeval-api/internal/repository"
	"github.com/noah-isme/bookeval-api/internal/router"
	"github.com/noah-isme/bookeval-api/internal/service"
	"github.com/noah-isme/bookeval-api/pkg/ai"
	"github.com/noah-isme/bookeval-api/pkg/blob"
	cloud "github.com/noah-isme/bookeval-api/pkg/cloudinary"
	"github.com/noah-isme/bookeval-api/pkg/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database handle: %v", err)
	}
	defer sqlDB.Close()

	blobs, err := newBlobStore(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create blob store: %v", err)
	}

	var evaluator ai.Evaluator
	openAIEvaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
		APIKey:    cfg.AIAPIKey,
		Model:     cfg.AIModel,
		BaseURL:   cfg.AIBaseURL,
		MaxTokens: cfg.AIMaxTokens,
		Timeout:   cfg.AITimeout,
		Logger:    logger,
	})
	switch {
	case errors.Is(err, ai.ErrClientUnavailable):
		logger.Warn().Str("provider", cfg.AIProvider).Msg("ai api key missing, evaluations will be rejected")
	case err != nil:
		log.Fatalf("failed to create evaluator: %v", err)
	default:
		logger.Info().Str("provider", cfg.AIProvider).Str("model", openAIEvaluator.Model()).Msg("evaluator configured")
		evaluator = openAIEvaluator
	}

	var publisher service.EventPublisher
	if cfg.NATSURL != "" {
		natsPublisher, err := events.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, evaluation events disabled")
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	evaluationRepo := repository.NewEvaluationRepository(db)
	evaluationService := service.NewEvaluationService(
		evaluationRepo,
		blobs,
		evaluator,
		publisher,
		validate,
		cfg.UploadMaxBytes(),
		logger,
	)
	evaluationHandler := handler.NewEvaluationHandler(evaluationService, cfg.UploadMaxBytes(), logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.UploadMaxBytes()) + 1<<20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AITimeout + 30*time.Second,
	})

	middleware.Register(app, middleware.Config{
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		AccessLog:      cfg.AppEnv != "production",
	})
	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler:   evaluationHandler,
		Database:            sqlDB,
		EvaluatorConfigured: evaluator != nil,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Error().Err(err).Msg("server stopped")
		}
	}()

	logger.Info().
		Str("address", cfg.HTTPAddress()).
		Str("blob_provider", cfg.BlobProvider).
		Str("database_driver", cfg.DatabaseDriver).
		Msg("textbook evaluation api started")

	waitForShutdown(app, logger)
}

func newBlobStore(cfg config.Config, logger zerolog.Logger) (blob.Store, error) {
	switch cfg.BlobProvider {
	case config.BlobProviderCloudinary:
		return cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, logger)
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return blob.NewMinioStore(ctx, blob.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
