package bootstrap

import (
	"context"

	"quant_trader/internal/engine"
	bootstrap "quant_trader/internal/modules/bootstrap/service"
	brokersvc "quant_trader/internal/modules/broker/service"
	healthsvc "quant_trader/internal/modules/health/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			bootstrap.NewWarmuper,
		),
		fx.Invoke(func(lc fx.Lifecycle, wu *bootstrap.Warmuper, e *engine.Engine, state *healthsvc.State, client *brokersvc.Client) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						state.SetBrokerConnected(client.Connected())
						_ = wu.Warmup(context.Background(), e.Mode(), 30)
						state.SetReady(true)
						e.StartMonitoring()
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					e.StopMonitoring()
					return nil
				},
			})
		}),
	)
}
