// Package service holds outbound integrations used by the session flow.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/welllog/welllog-api/internal/auth"
	"github.com/welllog/welllog-api/internal/metrics"
	"github.com/welllog/welllog-api/internal/queue"
)

// AuditPublisher sends session events to a durable RabbitMQ queue. The
// connection is opened lazily and re-opened after the broker drops it.
// Messages are persistent.
type AuditPublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAuditPublisher(url, queueName string) *AuditPublisher {
	return &AuditPublisher{url: url, queue: queueName}
}

// Publish implements auth.EventPublisher. Errors are logged and returned so
// the caller can ignore them.
func (p *AuditPublisher) Publish(ctx context.Context, ev auth.Event) error {
	body, err := encodeEvent(ev)
	if err != nil {
		metrics.AuditEvents.WithLabelValues("dropped").Inc()
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		metrics.AuditEvents.WithLabelValues("dropped").Inc()
		log.Warn().Err(err).Str("action", ev.Action).Msg("rabbitmq: audit event dropped")
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Type:         ev.Action,
		Body:         body,
	})
	if err != nil {
		p.reset()
		metrics.AuditEvents.WithLabelValues("dropped").Inc()
		log.Warn().Err(err).Str("action", ev.Action).Msg("rabbitmq: publish failed")
		return err
	}
	metrics.AuditEvents.WithLabelValues("published").Inc()
	return nil
}

// channel returns an open channel, dialing if needed. p.mu must be held.
func (p *AuditPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(5 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AuditPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *AuditPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func encodeEvent(ev auth.Event) ([]byte, error) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return json.Marshal(queue.AuditEvent{
		Action:   ev.Action,
		UserID:   ev.UserID,
		Login:    ev.Login,
		Reason:   ev.Reason,
		ClientIP: ev.ClientIP,
		At:       at.UTC(),
	})
}
