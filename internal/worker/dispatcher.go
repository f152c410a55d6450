package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roomreserve/internal/events"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Handle when the in-memory queue is saturated.
var ErrQueueFull = errors.New("event queue is full")

const (
	defaultQueueSize = 256
	deadLetterKey    = "reservations:deadletter"
)

// Sink delivers domain events to an external system.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event *events.Event) error
}

// Dispatcher fans bus events out to sinks in the background so that request
// handling never waits on a broker or a chat API. Failed deliveries are
// retried with backoff and then parked in a Redis dead-letter list when Redis
// is available.
type Dispatcher struct {
	sinks       []Sink
	retryPolicy RetryPolicy
	queue       chan *events.Event
	redis       *redis.Client
	logger      zerolog.Logger
	done        chan struct{}
}

func NewDispatcher(retry RetryPolicy, redisClient *redis.Client, logger *zerolog.Logger, sinks ...Sink) *Dispatcher {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "dispatcher").Logger()
	}
	return &Dispatcher{
		sinks:       sinks,
		retryPolicy: retry.withDefaults(),
		queue:       make(chan *events.Event, defaultQueueSize),
		redis:       redisClient,
		logger:      base,
		done:        make(chan struct{}),
	}
}

// Handle enqueues the event; it matches events.EventHandler.
func (d *Dispatcher) Handle(event *events.Event) error {
	if len(d.sinks) == 0 {
		return nil
	}
	select {
	case d.queue <- event:
		return nil
	default:
		return fmt.Errorf("%w: dropping %s", ErrQueueFull, event.Type)
	}
}

// Start processes queued events until ctx is done, then drains what is left
// with a short grace period.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info().Int("sinks", len(d.sinks)).Msg("dispatcher started")
	defer close(d.done)
	defer d.logger.Info().Msg("dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case event := <-d.queue:
			d.dispatch(ctx, event)
		}
	}
}

// Done is closed once Start returns.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-d.queue:
			d.dispatch(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event *events.Event) {
	for _, sink := range d.sinks {
		if err := d.deliver(ctx, sink, event); err != nil {
			d.logger.Error().Err(err).
				Str("sink", sink.Name()).
				Str("event_type", event.Type).
				Msg("event delivery failed")
			d.deadLetter(ctx, sink, event, err)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, event *events.Event) error {
	var err error
	for attempt := 1; attempt <= d.retryPolicy.MaxRetries; attempt++ {
		if err = sink.Deliver(ctx, event); err == nil {
			return nil
		}
		if attempt == d.retryPolicy.MaxRetries {
			break
		}
		d.logger.Warn().Err(err).
			Str("sink", sink.Name()).
			Int("attempt", attempt).
			Dur("backoff", d.retryPolicy.NextDelay(attempt)).
			Msg("event delivery retry")
		if werr := d.retryPolicy.wait(ctx, attempt); werr != nil {
			return fmt.Errorf("%w (last error: %v)", werr, err)
		}
	}
	return err
}

type deadLetter struct {
	Sink      string    `json:"sink"`
	EventType string    `json:"event_type"`
	Payload   string    `json:"payload"`
	Error     string    `json:"error"`
	FailedAt  time.Time `json:"failed_at"`
}

func (d *Dispatcher) deadLetter(ctx context.Context, sink Sink, event *events.Event, cause error) {
	if d.redis == nil {
		return
	}
	raw, err := json.Marshal(deadLetter{
		Sink:      sink.Name(),
		EventType: event.Type,
		Payload:   string(event.Payload),
		Error:     cause.Error(),
		FailedAt:  time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), time.Second)
		defer cancel()
	}
	if err := d.redis.LPush(ctx, deadLetterKey, raw).Err(); err != nil {
		d.logger.Error().Err(err).Msg("dead letter push failed")
	}
}
