package monitor

import (
	"quant_trader/internal/modules/monitor/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("monitor",
		fx.Provide(
			service.NewTaskQueue,
			service.NewMonitor,
		),
	)
}
