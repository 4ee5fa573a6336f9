package strategy

import (
	"quant_trader/internal/modules/strategy/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(service.NewLedger),
	)
}
