package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/welllog/welllog-api/internal/metrics"
	"github.com/welllog/welllog-api/internal/model"
)

// AuditSink stores decoded audit entries. *repository.AuditRepo satisfies it.
type AuditSink interface {
	Insert(ctx context.Context, e *model.AuditEntry) error
}

// Consumer reads audit events from a durable queue and writes them to Sink.
type Consumer struct {
	URL   string
	Queue string
	Sink  AuditSink
}

// Run connects to the broker and consumes until ctx is cancelled. Dial
// failures and dropped connections are retried with exponential backoff
// capped at 30s. It returns ctx.Err() on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("audit consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("audit consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("audit consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.Handle(ctx, d.Body); err != nil {
			log.Error().Err(err).Msg("audit consumer: handle message failed")
			metrics.AuditEvents.WithLabelValues("rejected").Inc()
			// no requeue, a poison message would loop forever
			_ = d.Nack(false, false)
			continue
		}
		metrics.AuditEvents.WithLabelValues("stored").Inc()
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle decodes one message body and stores it.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev AuditEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Action == "" {
		return errors.New("event without action")
	}
	if err := c.Sink.Insert(ctx, ev.Entry()); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
