package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"casescribe/internal/config"
	domain "casescribe/internal/domain/artifact"
	"casescribe/internal/infrastructure/auth"
	"casescribe/internal/infrastructure/database"
	"casescribe/internal/infrastructure/logger"
	notifyinfra "casescribe/internal/infrastructure/notify"
	"casescribe/internal/infrastructure/observability"
	artifactrepo "casescribe/internal/infrastructure/repository/artifact"
	jobrepo "casescribe/internal/infrastructure/repository/job"
	"casescribe/internal/infrastructure/storage"
	"casescribe/internal/interfaces/httpserver"
)

// @title Casescribe API
// @version 1.0
// @description Audio ingest and transcription service
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.Migrate(db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	storageClient, err := storage.NewS3Storage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	broker, err := notifyinfra.NewNATSBroker(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect notification broker")
	}
	defer broker.Close()

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth")
	}

	artifactRepository := artifactrepo.NewRepository(db)
	jobRepository := jobrepo.NewRepository(db)
	artifactService := domain.NewService(cfg, artifactRepository, jobRepository, storageClient, log)

	httpServer := httpserver.New(cfg, log, artifactService, broker, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
