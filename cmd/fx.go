package cmd

import (
	"log/slog"

	"github.com/webitel/im-social-service/config"
	httpsrv "github.com/webitel/im-social-service/infra/server/http"
	"github.com/webitel/im-social-service/internal/adapter/pubsub"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/registry"
	amqpdi "github.com/webitel/im-social-service/internal/handler/amqp"
	"github.com/webitel/im-social-service/internal/service"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideTracerProvider,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
		fx.Invoke(func(trace.TracerProvider) {}),
		store.Module,
		pubsub.Module,
		registry.Module,
		service.Module,
		amqpdi.Module,
		httpsrv.Module,
	)
}
