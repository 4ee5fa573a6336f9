package main

import (
	"context"
	"log"

	"quant_trader/internal/engine"
	"quant_trader/internal/modules/advisor"
	"quant_trader/internal/modules/bootstrap"
	"quant_trader/internal/modules/broker"
	"quant_trader/internal/modules/config"
	"quant_trader/internal/modules/health"
	"quant_trader/internal/modules/monitor"
	"quant_trader/internal/modules/postgres"
	"quant_trader/internal/modules/predictor"
	"quant_trader/internal/modules/storage"
	"quant_trader/internal/modules/strategy"
	"quant_trader/internal/momentum"
	"quant_trader/internal/notify"
	"quant_trader/pkg/logger"
	"quant_trader/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatalf("logger init: %v", err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			momentum.NewTracker,
		),
		config.Module(),
		postgres.Module(),
		storage.Module(),
		broker.Module(),
		advisor.Module(),
		strategy.Module(),
		notify.Module(),
		monitor.Module(),
		predictor.Module(),
		engine.Module(),
		health.Module(),
		bootstrap.Module(),

		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				// трейсинг не обязателен для торговли
				logger.Warn("tracer init failed: %v", err)
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
		}),
	)
	app.Run()
}
