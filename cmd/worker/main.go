// The worker consumes work items from the transcription queue and drives each
// artifact through its transcription lifecycle: start an engine job, poll it
// to a terminal state, persist the outcome and publish a notification. Work
// items are acknowledged only after a terminal write, so a crash mid-flight
// redelivers and the job-level idempotency check resumes where it stopped.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	gormlogger "gorm.io/gorm/logger"

	"casescribe/internal/config"
	"casescribe/internal/domain/retry"
	"casescribe/internal/domain/transcription"
	"casescribe/internal/infrastructure/database"
	"casescribe/internal/infrastructure/engine"
	"casescribe/internal/infrastructure/logger"
	"casescribe/internal/infrastructure/metrics"
	notifyinfra "casescribe/internal/infrastructure/notify"
	"casescribe/internal/infrastructure/queue"
	artifactrepo "casescribe/internal/infrastructure/repository/artifact"
	jobrepo "casescribe/internal/infrastructure/repository/job"
	"casescribe/internal/infrastructure/storage"
)

const receiveBackoff = 2 * time.Second

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	transcribeEngine, err := engine.NewTranscribe(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize transcription engine")
	}

	broker, err := notifyinfra.NewNATSBroker(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect notification broker")
	}
	defer broker.Close()

	sqsClient, err := queue.NewSQSClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize sqs client")
	}
	workQueue := queue.NewWorkQueue(sqsClient, cfg, log)

	worker := transcription.NewService(
		cfg,
		artifactrepo.NewRepository(db),
		jobrepo.NewRepository(db),
		transcribeEngine,
		storageClient,
		broker,
		log,
	)

	log.Info().Str("queue", cfg.WorkQueueURL).Msg("transcription worker started")

	for ctx.Err() == nil {
		deliveries, err := workQueue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn().Err(err).Msg("receive work items failed, backing off")
			if err := retry.Wait(ctx, receiveBackoff); err != nil {
				break
			}
			continue
		}

		for _, delivery := range deliveries {
			start := time.Now()
			if err := worker.Process(ctx, delivery.Item); err != nil {
				// Leave the item unacknowledged so it redelivers.
				metrics.RecordTranscription("redelivered", time.Since(start).Seconds())
				log.Error().Err(err).Str("object_key", delivery.Item.ObjectKey).
					Msg("processing failed, work item will redeliver")
				continue
			}
			metrics.RecordTranscription("processed", time.Since(start).Seconds())
			if err := workQueue.Delete(ctx, delivery.ReceiptHandle); err != nil {
				log.Warn().Err(err).Msg("failed to acknowledge work item")
			}
		}
	}

	log.Info().Msg("transcription worker exited cleanly")
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
