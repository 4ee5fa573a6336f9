package notify

import (
	"context"

	"quant_trader/internal/models"
	"quant_trader/internal/modules/config"
	strategysvc "quant_trader/internal/modules/strategy/service"
	"quant_trader/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(func(cfg *config.Config, ledger *strategysvc.Ledger) Notifier {
			if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
				return Stdout{}
			}
			mode, err := models.ParseMode(cfg.Mode)
			if err != nil {
				mode = models.ModeSimulated
			}
			t, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, ledger, mode)
			if err != nil {
				logger.Warn("telegram init failed, falling back to stdout: %v", err)
				return Stdout{}
			}
			return t
		}),

		fx.Invoke(func(lc fx.Lifecycle, n Notifier) {
			t, ok := n.(*Telegram)
			if !ok {
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return t.Start(context.Background())
				},
			})
		}),
	)
}
