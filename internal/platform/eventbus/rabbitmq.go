package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ridloal/punto-venta/internal/platform/logger"
	"github.com/streadway/amqp"
)

const (
	RoutingSaleRecorded   = "sale.recorded"
	RoutingCatalogChanged = "catalog.changed"

	publishTimeout = 5 * time.Second
	confirmBuffer  = 16
)

// Publisher sends domain events to whoever listens outside this process.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
	Close() error
}

// Envelope wraps every published payload.
type Envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                      { return nil }

// RabbitMQPublisher publishes JSON envelopes to a durable topic exchange
// with publisher confirms. Publishing is serialised and each publish waits
// for the confirm carrying its own delivery tag.
type RabbitMQPublisher struct {
	exchange      string
	conn          *amqp.Connection
	ch            *amqp.Channel
	notifyConfirm chan amqp.Confirmation

	mu      sync.Mutex
	lastTag uint64 // delivery tags start at 1 on a confirm channel
}

func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	logger.Info("Connecting to RabbitMQ, exchange %s", exchange)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("channel could not be put into confirm mode: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &RabbitMQPublisher{
		exchange:      exchange,
		conn:          conn,
		ch:            ch,
		notifyConfirm: ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer)),
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.ID,
			Timestamp:    env.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	p.lastTag++
	return awaitConfirm(ctx, p.notifyConfirm, p.lastTag, routingKey, publishTimeout)
}

// awaitConfirm waits for the confirm of tag. Confirms for earlier tags belong
// to publishes that already gave up waiting and are discarded.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, tag uint64, routingKey string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case confirm, ok := <-confirms:
			if !ok {
				return errors.New("channel closed before publish confirm")
			}
			if confirm.DeliveryTag < tag {
				logger.Warn("RabbitMQ: late confirm for tag %d (ack %t) discarded", confirm.DeliveryTag, confirm.Ack)
				continue
			}
			if !confirm.Ack {
				return fmt.Errorf("broker nacked %s (tag %d)", routingKey, confirm.DeliveryTag)
			}
			return nil
		case <-timer.C:
			return fmt.Errorf("publish confirmation timeout for %s (tag %d)", routingKey, tag)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *RabbitMQPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		logger.Error("RabbitMQ: closing channel failed", err)
	}
	return p.conn.Close()
}
