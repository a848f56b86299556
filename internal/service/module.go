package service

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/webitel/im-social-service/config"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		func() *validator.Validate {
			return validator.New(validator.WithRequiredStructEnabled())
		},

		// Fan-out
		fx.Annotate(
			NewBus,
			fx.As(new(Publisher)),
		),

		// Identity
		func(cfg *config.Config) Auther {
			return NewAuthService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
		},

		// Domain services
		func(s store.Storer, cfg *config.Config) (Resolver, error) {
			return NewIdentityResolver(s, cfg.Cache.IdentitySize, cfg.Cache.IdentityTTL)
		},
		fx.Annotate(
			NewBlockService,
			fx.As(new(Blocker)),
			fx.As(new(BlockPolicy)),
		),
		fx.Annotate(
			NewNotificationService,
			fx.As(new(Notifier)),
		),
		func(s store.Storer, bus Publisher, cfg *config.Config, logger *slog.Logger) PresenceTracker {
			return NewPresenceService(s, bus, logger, WithPresenceTTL(cfg.Presence.TTL))
		},
		func(cfg *config.Config) (*Censor, error) {
			return NewCensor(cfg.Chat.CensoredWords, '*')
		},
		fx.Annotate(
			func(s store.Storer, r Resolver, p BlockPolicy, bus Publisher, v *validator.Validate, c *Censor, logger *slog.Logger) *ChatService {
				return NewChatService(s, r, p, bus, v, logger.With(slog.String("component", "chat")), WithCensor(c))
			},
			fx.As(new(Chatter)),
		),
		fx.Annotate(
			NewFriendService,
			fx.As(new(Friender)),
		),
		fx.Annotate(
			NewInviteService,
			fx.As(new(Inviter)),
		),
		func(hub registry.Hubber, r Resolver, p PresenceTracker, cfg *config.Config, logger *slog.Logger) Deliverer {
			return NewDeliveryService(cfg.Service.NodeID, hub, r, p, cfg.Hub.ConnBufferSize, cfg.Hub.SendTimeout, logger)
		},
	),

	// [DECORATION_LAYER] Intercept Resolver to add cross-cutting concerns
	fx.Decorate(func(orig Resolver, logger *slog.Logger) Resolver {
		return NewResolverMiddleware(orig, logger)
	}),
)
