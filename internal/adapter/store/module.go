package store

import (
	"context"
	"log/slog"

	"github.com/webitel/im-social-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("store",
	fx.Provide(
		func(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*BadgerStore, error) {
			s, err := Open(cfg.Store.Path, cfg.Store.InMemory, logger.With(slog.String("component", "store")))
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error { return s.Close() },
			})
			return s, nil
		},
		fx.Annotate(
			func(s *BadgerStore) Storer { return s },
			fx.As(new(Storer)),
		),
	),
)
