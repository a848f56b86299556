package httpsrv

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/webitel/im-social-service/internal/domain/registry"
	httphandler "github.com/webitel/im-social-service/internal/handler/http"
	"github.com/webitel/im-social-service/internal/handler/lp"
	"github.com/webitel/im-social-service/internal/handler/ws"
	"github.com/webitel/im-social-service/internal/service"
	"go.uber.org/fx"
)

type handlerParams struct {
	fx.In

	Friends       service.Friender
	Blocks        service.Blocker
	Invites       service.Inviter
	Notifications service.Notifier
	Chat          service.Chatter
	Presence      service.PresenceTracker
	Hub           registry.Hubber
	Resolver      service.Resolver
	Poll          *lp.LPHandler
	Validate      *validator.Validate
	Logger        *slog.Logger
}

var Module = fx.Module("http-server",
	fx.Provide(
		ws.NewWSHandler,
		lp.NewLPHandler,
		func(p handlerParams) *httphandler.Handler {
			return httphandler.NewHandler(httphandler.Deps{
				Friends:       p.Friends,
				Blocks:        p.Blocks,
				Invites:       p.Invites,
				Notifications: p.Notifications,
				Chat:          p.Chat,
				Presence:      p.Presence,
				Hub:           p.Hub,
				Resolver:      p.Resolver,
				Poll:          p.Poll.Poll,
				Validate:      p.Validate,
				Logger:        p.Logger,
			})
		},
		NewRouter,
		NewServer,
	),

	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return s.Start() },
			OnStop:  s.Stop,
		})
	}),
)
