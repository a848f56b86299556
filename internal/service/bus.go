package service

import (
	"context"
	"log/slog"

	"github.com/webitel/im-social-service/internal/adapter/pubsub"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Publisher is the fan-out entry point for request handlers and socket handlers.
// Delivery is best-effort: Publish never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, ev event.Eventer)
}

// Bus hands exported events to the broker; every node's consumer then delivers
// them to its local members. Local-only events go straight to the hub.
type Bus struct {
	hub        registry.Hubber
	dispatcher pubsub.EventDispatcher
	logger     *slog.Logger
	tracer     trace.Tracer
}

func NewBus(hub registry.Hubber, dispatcher pubsub.EventDispatcher, logger *slog.Logger) *Bus {
	return &Bus{
		hub:        hub,
		dispatcher: dispatcher,
		logger:     logger,
		tracer:     otel.Tracer("im-social/bus"),
	}
}

func (b *Bus) Publish(ctx context.Context, ev event.Eventer) {
	ctx, span := b.tracer.Start(ctx, "bus.publish", trace.WithAttributes(
		attribute.String("event.id", ev.GetID()),
		attribute.String("event.kind", ev.GetKind().String()),
		attribute.String("event.topic", ev.GetTopic().String()),
	))
	defer span.End()

	exp, ok := ev.(event.Exportable)
	if !ok || exp.GetRoutingKey() == "" {
		span.SetAttributes(attribute.Int("delivered.local", b.hub.Broadcast(ev)))
		return
	}

	if span.SpanContext().HasTraceID() {
		ctx = pubsub.WithTraceID(ctx, span.SpanContext().TraceID().String())
	}

	if err := b.dispatcher.Publish(ctx, ev); err != nil {
		// [DEGRADED_MODE] Broker is down: members on this node still get the event.
		delivered := b.hub.Broadcast(ev)

		span.RecordError(err)
		span.SetStatus(codes.Error, "broker publish failed")
		b.logger.Warn("DELIVERY_FAILED",
			slog.String("event_id", ev.GetID()),
			slog.String("kind", ev.GetKind().String()),
			slog.String("topic", ev.GetTopic().String()),
			slog.Int("delivered_local", delivered),
			slog.Any("err", err),
		)
	}
}
