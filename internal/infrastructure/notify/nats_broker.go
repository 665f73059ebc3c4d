// Package notify implements the best-effort notification broker on NATS
// core pub/sub. Messages are fire-and-forget with no persistence or replay,
// matching the contract: a missed notification is recovered through the
// artifact poll path, never through the broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"casescribe/internal/config"
	domain "casescribe/internal/domain/notify"
	"casescribe/internal/infrastructure/metrics"
)

const subscriptionBuffer = 16

// NATSBroker publishes one subject per artifact under a configurable prefix.
type NATSBroker struct {
	conn   *nats.Conn
	prefix string
	log    zerolog.Logger
}

func NewNATSBroker(cfg *config.Config, log zerolog.Logger) (*NATSBroker, error) {
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name(cfg.ServiceName),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.NATSURL, err)
	}
	return &NATSBroker{
		conn:   conn,
		prefix: cfg.NotifySubjectPrefix,
		log:    log.With().Str("component", "nats-broker").Logger(),
	}, nil
}

func (b *NATSBroker) subject(artifactID string) string {
	return fmt.Sprintf("%s.%s", b.prefix, artifactID)
}

func (b *NATSBroker) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := b.conn.Publish(b.subject(n.ArtifactID), payload); err != nil {
		metrics.RecordNotification(string(n.Message), "error")
		return fmt.Errorf("publish notification for %s: %w", n.ArtifactID, err)
	}
	metrics.RecordNotification(string(n.Message), "success")
	return nil
}

// Subscribe delivers notifications for one artifact until the returned cancel
// function runs. Slow consumers drop messages rather than block the broker.
func (b *NATSBroker) Subscribe(ctx context.Context, artifactID string) (<-chan domain.Notification, func(), error) {
	ch := make(chan domain.Notification, subscriptionBuffer)
	sub, err := b.conn.Subscribe(b.subject(artifactID), func(msg *nats.Msg) {
		var n domain.Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			b.log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable notification")
			return
		}
		select {
		case ch <- n:
		default:
			b.log.Warn().Str("artifact_id", artifactID).Msg("subscriber too slow, dropping notification")
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe to %s: %w", b.subject(artifactID), err)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil {
				b.log.Warn().Err(err).Str("artifact_id", artifactID).Msg("failed to unsubscribe")
			}
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Close drains the connection.
func (b *NATSBroker) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}
