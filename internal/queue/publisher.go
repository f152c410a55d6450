// Package queue publishes reservation events to RabbitMQ.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"roomreserve/internal/config"
	"roomreserve/internal/events"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (channel, func() error, error)

// Publisher sends every event to a durable topic exchange using the event
// type as routing key. The connection is opened lazily and re-opened after a
// failed publish.
type Publisher struct {
	url      string
	exchange string
	dial     dialFunc
	logger   zerolog.Logger

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

func NewPublisher(cfg config.RabbitMQConfig, logger *zerolog.Logger) *Publisher {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "rabbitmq").Logger()
	}
	return &Publisher{
		url:      cfg.URL,
		exchange: cfg.Exchange,
		dial:     dialAMQP,
		logger:   base,
	}
}

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	return ch, conn.Close, nil
}

func (p *Publisher) Name() string { return "rabbitmq" }

// Deliver publishes the event as a persistent JSON message.
func (p *Publisher) Deliver(ctx context.Context, event *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, toPublishing(event)); err != nil {
		p.resetLocked()
		return fmt.Errorf("rabbitmq publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetLocked()
}

func (p *Publisher) channelLocked() (channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}

	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return nil, fmt.Errorf("rabbitmq exchange declare %s: %w", p.exchange, err)
	}

	p.ch = ch
	p.closeConn = closeConn
	p.logger.Info().Str("exchange", p.exchange).Msg("rabbitmq channel opened")
	return ch, nil
}

func (p *Publisher) resetLocked() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.closeConn != nil {
		errs = append(errs, p.closeConn())
	}
	p.ch = nil
	p.closeConn = nil
	return errors.Join(errs...)
}

func toPublishing(event *events.Event) amqp.Publishing {
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ts.UTC(),
		Type:         event.Type,
		Body:         event.Payload,
	}
}
