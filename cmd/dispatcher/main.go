// The dispatcher consumes object-created events from the store and enqueues
// ordered work items for the transcription worker. It keeps no state of its
// own; an event is acknowledged only after every work item it produced was
// accepted by the queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"casescribe/internal/config"
	"casescribe/internal/domain/dispatch"
	"casescribe/internal/domain/retry"
	"casescribe/internal/infrastructure/logger"
	"casescribe/internal/infrastructure/queue"
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

	sqsClient, err := queue.NewSQSClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize sqs client")
	}

	source := queue.NewEventSource(sqsClient, cfg, log)
	workQueue := queue.NewWorkQueue(sqsClient, cfg, log)
	dispatcher := dispatch.NewService(workQueue, log)

	log.Info().Str("queue", cfg.UploadEventsQueueURL).Msg("upload dispatcher started")

	for ctx.Err() == nil {
		events, err := source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn().Err(err).Msg("receive upload events failed, backing off")
			if err := retry.Wait(ctx, receiveBackoff); err != nil {
				break
			}
			continue
		}

		for _, event := range events {
			if err := dispatcher.HandleObjectCreated(ctx, event.ObjectKeys); err != nil {
				// Leave the event unacknowledged so it redelivers.
				log.Error().Err(err).Msg("dispatch failed, event will redeliver")
				continue
			}
			if err := source.Delete(ctx, event.ReceiptHandle); err != nil {
				log.Warn().Err(err).Msg("failed to acknowledge upload event")
			}
		}
	}

	log.Info().Msg("upload dispatcher exited cleanly")
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
