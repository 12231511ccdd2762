// Package events publishes editor activity events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"example.com/codepad/internal/domain"
)

const activityTopic = "editor_activity_events"

// Publisher emits activity events keyed by user. Delivery is best effort:
// the request path never blocks on or fails because of Kafka.
type Publisher struct {
	brokers []string
	log     zerolog.Logger

	mu     sync.Mutex
	writer *kafka.Writer
}

// NewPublisher creates a Publisher. Returns nil when no brokers are
// configured, which disables publishing.
func NewPublisher(brokers []string, log zerolog.Logger) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{brokers: brokers, log: log}
}

// PublishActivity implements domain.ActivityPublisher. The write happens on
// a detached goroutine with its own timeout so a slow broker cannot stall
// the caller.
func (p *Publisher) PublishActivity(_ context.Context, event domain.ActivityEvent) {
	if p == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to encode activity event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("editor.activity." + event.Action + "ed")},
		},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := p.activityWriter().WriteMessages(ctx, msg); err != nil {
			p.log.Warn().Err(err).Str("user_id", event.UserID).Msg("failed to publish activity event")
		}
	}()
}

func (p *Publisher) activityWriter() *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Topic:        activityTopic,
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		}
	}
	return p.writer
}

// Close releases the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}
