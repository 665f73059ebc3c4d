//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"casescribe/internal/config"
	domain "casescribe/internal/domain/artifact"
	"casescribe/internal/domain/notify"
	"casescribe/internal/infrastructure/auth"
	"casescribe/internal/infrastructure/database"
	"casescribe/internal/infrastructure/logger"
	notifyinfra "casescribe/internal/infrastructure/notify"
	artifactrepo "casescribe/internal/infrastructure/repository/artifact"
	jobrepo "casescribe/internal/infrastructure/repository/job"
	"casescribe/internal/infrastructure/storage"
	"casescribe/internal/interfaces/httpserver"
)

var artifactSet = wire.NewSet(
	artifactrepo.NewRepository,
	wire.Bind(new(domain.Repository), new(*artifactrepo.Repository)),
	jobrepo.NewRepository,
	wire.Bind(new(domain.Jobs), new(*jobrepo.Repository)),
	storage.NewS3Storage,
	wire.Bind(new(domain.Storage), new(*storage.S3Storage)),
	notifyinfra.NewNATSBroker,
	wire.Bind(new(notify.Broker), new(*notifyinfra.NATSBroker)),
	domain.NewService,
)

// BuildApplication assembles the API server with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		auth.NewValidator,
		newDatabaseConfig,
		newGormDB,
		artifactSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, log); err != nil {
		return nil, err
	}
	return db, nil
}
