// Package dispatch turns object-created store events into ordered work items.
package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// WorkQueue publishes work items onto the ordered, deduplicated queue.
type WorkQueue interface {
	Publish(ctx context.Context, item WorkItem) error
}

// Service is the upload dispatcher. It performs no database writes and is
// therefore naturally idempotent on event redelivery: until the enqueue
// succeeds the triggering event stays unacknowledged.
type Service struct {
	queue WorkQueue
	log   zerolog.Logger
}

func NewService(queue WorkQueue, log zerolog.Logger) *Service {
	return &Service{
		queue: queue,
		log:   log.With().Str("component", "upload-dispatcher").Logger(),
	}
}

// HandleObjectCreated emits one work item per created object key. The first
// publish failure aborts and is returned so the triggering event redelivers.
func (s *Service) HandleObjectCreated(ctx context.Context, objectKeys []string) error {
	for _, raw := range objectKeys {
		item, err := ParseObjectKey(raw)
		if err != nil {
			// Malformed keys cannot become valid on redelivery; drop them.
			s.log.Warn().Err(err).Str("object_key", raw).Msg("skipping malformed object key")
			continue
		}

		if err := s.queue.Publish(ctx, item); err != nil {
			return fmt.Errorf("publish work item for %s: %w", item.ObjectKey, err)
		}

		s.log.Info().
			Str("object_key", item.ObjectKey).
			Str("session_or_case_id", item.SessionID).
			Str("extension", item.Extension).
			Msg("work item enqueued")
	}
	return nil
}
