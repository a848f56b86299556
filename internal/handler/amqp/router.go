package amqp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/webitel/im-social-service/config"
	"github.com/webitel/im-social-service/internal/adapter/pubsub"
	"github.com/webitel/im-social-service/internal/domain/registry"
)

const (
	HandlerSocialEvents = "ON_SOCIAL_EVENT"
	poisonSuffix        = ".poison"
)

type EventHandler struct {
	hub    registry.Hubber
	logger *slog.Logger
}

func NewEventHandler(hub registry.Hubber, logger *slog.Logger) *EventHandler {
	return &EventHandler{hub: hub, logger: logger.With(slog.String("component", "consumer"))}
}

// NewRouter builds the consumer router. Handlers are attached by RegisterHandlers.
func NewRouter(cfg *config.Config, logger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{CloseTimeout: cfg.HTTP.ShutdownTimeout}, logger)
}

// [REGISTRATION_PIPELINE]
func (h *EventHandler) RegisterHandlers(
	router *message.Router,
	provider *pubsub.Provider,
	dispatcher pubsub.EventDispatcher,
	cfg *config.Config,
	wlog watermill.LoggerAdapter,
) error {
	poisonTopic := cfg.Broker.Exchange + poisonSuffix
	poison, err := middleware.PoisonQueueWithFilter(dispatcher.Publisher(), poisonTopic, isMalformed)
	if err != nil {
		return fmt.Errorf("POISON_SETUP_FAILED: %w", err)
	}

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{HandlerSocialEvents, cfg.Broker.Exchange, Bind(h)},
	}

	for _, c := range configs {
		mws := []message.HandlerMiddleware{
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			NewRetryMiddleware(wlog).Middleware,
			poison,
		}
		if cfg.Broker.Throttle > 0 {
			mws = append(mws, middleware.NewThrottle(cfg.Broker.Throttle, time.Second).Middleware)
		}
		mws = append(mws, middleware.Timeout(cfg.Broker.HandlerTimeout), middleware.Recoverer)

		router.AddConsumerHandler(c.name, c.topic, provider.Subscriber(), c.handler).AddMiddleware(mws...)
	}

	h.logger.Info("AMQP_PIPELINE_READY",
		"driver", provider.Driver(),
		"exchange", cfg.Broker.Exchange,
		"poison", poisonTopic,
	)
	return nil
}
