package amqp

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
)

var Module = fx.Module("amqp-handler",
	fx.Provide(
		NewEventHandler,
		NewRouter,
	),

	fx.Invoke(
		(*EventHandler).RegisterHandlers,
		runRouter,
	),
)

// runRouter starts consuming once the application starts and drains on stop.
func runRouter(lc fx.Lifecycle, router *message.Router) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() { _ = router.Run(context.Background()) }()

			select {
			case <-router.Running():
				return nil
			case <-ctx.Done():
				return fmt.Errorf("consumer router did not start: %w", ctx.Err())
			}
		},
		OnStop: func(ctx context.Context) error {
			return router.Close()
		},
	})
}
