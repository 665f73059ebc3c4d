// Package notify defines the completion notification contract. Delivery is
// best-effort with no replay or persistence; clients must treat it as a
// latency optimization over the durable artifact poll path, never as the
// source of truth.
package notify

import "context"

// Event identifies the outcome carried by a notification.
type Event string

const (
	EventTranscriptionComplete Event = "transcription_complete"
	EventTranscriptionFailed   Event = "transcription_failed"
)

// Notification is the payload published per artifact outcome.
type Notification struct {
	ArtifactID string `json:"artifact_id"`
	Message    Event  `json:"message"`
}

// Broker is the topic-based pub/sub channel between the worker and
// subscribed clients, keyed by artifact id.
type Broker interface {
	Publish(ctx context.Context, n Notification) error
	// Subscribe returns a channel of notifications for one artifact id and a
	// cancel function releasing the subscription.
	Subscribe(ctx context.Context, artifactID string) (<-chan Notification, func(), error)
}
