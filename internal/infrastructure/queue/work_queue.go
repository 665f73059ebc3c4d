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
	"casescribe/internal/domain/dispatch"
	"casescribe/internal/infrastructure/metrics"
)

// Delivery is one received work item plus the handle needed to acknowledge it.
type Delivery struct {
	Item          dispatch.WorkItem
	ReceiptHandle string
}

// WorkQueue is the FIFO queue between the upload dispatcher and the
// transcription worker. The message group id partitions ordering per session,
// the deduplication id suppresses rapid duplicate sends.
type WorkQueue struct {
	client   *sqs.Client
	queueURL string
	waitTime time.Duration
	log      zerolog.Logger
}

func NewWorkQueue(client *sqs.Client, cfg *config.Config, log zerolog.Logger) *WorkQueue {
	return &WorkQueue{
		client:   client,
		queueURL: cfg.WorkQueueURL,
		waitTime: cfg.QueueWaitTime,
		log:      log.With().Str("component", "work-queue").Logger(),
	}
}

// Publish enqueues one work item.
func (q *WorkQueue) Publish(ctx context.Context, item dispatch.WorkItem) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal work item: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(q.queueURL),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(item.PartitionKey()),
		MessageDeduplicationId: aws.String(item.NewDedupKey()),
	})
	if err != nil {
		metrics.RecordDispatch("error")
		return fmt.Errorf("send work item: %w", err)
	}
	metrics.RecordDispatch("success")
	return nil
}

// Receive long-polls for work items. Messages that fail to decode are deleted
// immediately; they can never become valid.
func (q *WorkQueue) Receive(ctx context.Context) ([]Delivery, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     int32(q.waitTime.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("receive work items: %w", err)
	}

	deliveries := make([]Delivery, 0, len(out.Messages))
	for _, msg := range out.Messages {
		var item dispatch.WorkItem
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &item); err != nil {
			q.log.Warn().Err(err).Msg("dropping undecodable work item")
			if delErr := q.Delete(ctx, aws.ToString(msg.ReceiptHandle)); delErr != nil {
				q.log.Warn().Err(delErr).Msg("failed to delete undecodable work item")
			}
			continue
		}
		deliveries = append(deliveries, Delivery{
			Item:          item,
			ReceiptHandle: aws.ToString(msg.ReceiptHandle),
		})
	}
	return deliveries, nil
}

// Delete acknowledges a processed work item.
func (q *WorkQueue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete work item: %w", err)
	}
	return nil
}
