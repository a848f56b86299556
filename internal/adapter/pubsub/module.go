package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/sony/gobreaker"
	"github.com/webitel/im-social-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub",
	fx.Provide(
		func(lc fx.Lifecycle, cfg *config.Config, logger watermill.LoggerAdapter) (*Provider, error) {
			p, err := NewProvider(cfg.Broker.Driver, cfg.Broker.URL, cfg.Service.NodeID, logger)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error { return p.Close() },
			})
			return p, nil
		},
		func(p *Provider, cfg *config.Config, logger *slog.Logger) EventDispatcher {
			b := cfg.Broker.Breaker
			return NewEventDispatcher(p.Publisher(), DispatcherConfig{
				Topic:   cfg.Broker.Exchange,
				Origin:  cfg.Service.NodeID,
				Timeout: cfg.Broker.PublishTimeout,
				Breaker: gobreaker.Settings{
					MaxRequests: b.MaxRequests,
					Interval:    b.Interval,
					Timeout:     b.Timeout,
					ReadyToTrip: func(counts gobreaker.Counts) bool {
						return counts.ConsecutiveFailures >= b.FailureThreshold
					},
				},
			}, logger.With(slog.String("component", "dispatcher")))
		},
	),
)
