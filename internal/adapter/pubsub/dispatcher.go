//go:generate go run go.uber.org/mock/mockgen -source=dispatcher.go -destination=../../mocks/mock_dispatcher.go -package=mocks
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"
	"github.com/webitel/im-social-service/internal/domain/event"
)

// Message metadata keys shared with the consumer side.
const (
	MetaRoutingKey = "routing_key"
	MetaTopic      = "im_topic"
	MetaKind       = "kind"
	MetaOrigin     = "origin"
	MetaTraceID    = "trace_id"
)

// ErrBrokerUnavailable wraps every failure to hand an event to the broker.
var ErrBrokerUnavailable = errors.New("broker unavailable")

type traceIDKey struct{}

// WithTraceID stores a trace id that Publish copies into message metadata.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceID returns the trace id stored by WithTraceID.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// EventDispatcher defines the high-level contract for outgoing events.
// This allows the handler to stay agnostic of the transport implementation.
type EventDispatcher interface {
	Publish(ctx context.Context, ev event.Eventer) error
	Publisher() message.Publisher
}

// DispatcherConfig tunes the publish path.
type DispatcherConfig struct {
	// Topic is the broker topic (fan-out exchange) every exported event goes to.
	Topic   string
	Origin  string
	Timeout time.Duration
	Breaker gobreaker.Settings
}

// eventDispatcher is the concrete implementation (private).
type eventDispatcher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker
	cfg       DispatcherConfig
	logger    *slog.Logger
}

// NewEventDispatcher returns the interface instead of the pointer to the struct.
func NewEventDispatcher(pub message.Publisher, cfg DispatcherConfig, logger *slog.Logger) EventDispatcher {
	settings := cfg.Breaker
	if settings.Name == "" {
		settings.Name = "broker-publish"
	}
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn("BREAKER_STATE_CHANGED",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		}
	}

	return &eventDispatcher{
		publisher: pub,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		cfg:       cfg,
		logger:    logger,
	}
}

func (d *eventDispatcher) Publish(ctx context.Context, ev event.Eventer) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	exp, ok := ev.(event.Exportable)
	if !ok || exp.GetRoutingKey() == "" {
		// [LOCAL_ONLY] Nothing to hand to the broker.
		return nil
	}

	payload, err := event.Encode(ev, d.cfg.Origin)
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetaRoutingKey, exp.GetRoutingKey())
	msg.Metadata.Set(MetaTopic, ev.GetTopic().String())
	msg.Metadata.Set(MetaKind, ev.GetKind().String())
	msg.Metadata.Set(MetaOrigin, d.cfg.Origin)
	if traceID := TraceID(ctx); traceID != "" {
		msg.Metadata.Set(MetaTraceID, traceID)
	}

	_, err = d.breaker.Execute(func() (interface{}, error) {
		return nil, d.publishWithTimeout(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("event dispatcher: publish %s to %s: %w: %w", ev.GetID(), d.cfg.Topic, ErrBrokerUnavailable, err)
	}
	return nil
}

// publishWithTimeout bounds a publisher that has no context support of its own.
func (d *eventDispatcher) publishWithTimeout(ctx context.Context, msg *message.Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	msg.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- d.publisher.Publish(d.cfg.Topic, msg) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *eventDispatcher) Publisher() message.Publisher {
	return d.publisher
}
