package advisor

import (
	"quant_trader/internal/modules/advisor/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("advisor",
		fx.Provide(
			service.NewChatAdvisor,
			func(a *service.ChatAdvisor) service.Advisor { return a },
		),
	)
}
