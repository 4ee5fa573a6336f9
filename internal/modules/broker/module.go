package broker

import (
	"context"

	"quant_trader/internal/modules/broker/service"
	"quant_trader/internal/modules/config"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("broker",
		fx.Provide(
			func(cfg *config.Config) *service.RateLimiter {
				return service.NewRateLimiter(cfg.QuoteRateMax, cfg.QuoteRateWindow)
			},
			service.NewClient,
			service.NewPaper,
			service.NewBrokers,
		),

		fx.Invoke(func(lc fx.Lifecycle, client *service.Client) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					// недоступный брокер не фатален: Connect сам логирует
					// и оставляет клиента в отключённом состоянии
					return client.Connect(ctx)
				},
			})
		}),
	)
}
