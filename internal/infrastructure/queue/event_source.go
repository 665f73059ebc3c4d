package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"

	"casescribe/internal/config"
)

// storeEvent is the object-created notification shape delivered by the store.
type storeEvent struct {
	Records []struct {
		S3 struct {
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// UploadEvent is one received store notification: the raw object keys it
// carries plus the handle needed to acknowledge it.
type UploadEvent struct {
	ObjectKeys    []string
	ReceiptHandle string
}

// EventSource consumes object-created notifications from the upload events
// queue. Events stay on the queue until explicitly acknowledged, so a failed
// dispatch redelivers.
type EventSource struct {
	client   *sqs.Client
	queueURL string
	waitTime time.Duration
	log      zerolog.Logger
}

func NewEventSource(client *sqs.Client, cfg *config.Config, log zerolog.Logger) *EventSource {
	return &EventSource{
		client:   client,
		queueURL: cfg.UploadEventsQueueURL,
		waitTime: cfg.QueueWaitTime,
		log:      log.With().Str("component", "upload-event-source").Logger(),
	}
}

// Receive long-polls for store notifications.
func (s *EventSource) Receive(ctx context.Context) ([]UploadEvent, error) {
	out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     int32(s.waitTime.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("receive upload events: %w", err)
	}

	events := make([]UploadEvent, 0, len(out.Messages))
	for _, msg := range out.Messages {
		keys, err := DecodeObjectKeys([]byte(aws.ToString(msg.Body)))
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping undecodable upload event")
			if delErr := s.Delete(ctx, aws.ToString(msg.ReceiptHandle)); delErr != nil {
				s.log.Warn().Err(delErr).Msg("failed to delete undecodable upload event")
			}
			continue
		}
		events = append(events, UploadEvent{
			ObjectKeys:    keys,
			ReceiptHandle: aws.ToString(msg.ReceiptHandle),
		})
	}
	return events, nil
}

// Delete acknowledges a dispatched event.
func (s *EventSource) Delete(ctx context.Context, receiptHandle string) error {
	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete upload event: %w", err)
	}
	return nil
}

// DecodeObjectKeys extracts the created object keys from a raw store event.
func DecodeObjectKeys(body []byte) ([]string, error) {
	var event storeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode store event: %w", err)
	}
	if len(event.Records) == 0 {
		return nil, fmt.Errorf("store event carries no records")
	}
	keys := make([]string, 0, len(event.Records))
	for _, record := range event.Records {
		if record.S3.Object.Key == "" {
			continue
		}
		keys = append(keys, record.S3.Object.Key)
	}
	return keys, nil
}
