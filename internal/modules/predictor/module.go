package predictor

import (
	"context"
	"log"

	"quant_trader/internal/modules/predictor/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

// прогноз перед открытием рынка, будние дни
const dailySchedule = "30 8 * * 1-5"

func Module() fx.Option {
	return fx.Module("predictor",
		fx.Provide(
			service.NewHistory,
			service.NewScorer,
			service.NewOrchestrator,
		),

		fx.Invoke(func(lc fx.Lifecycle, o *service.Orchestrator) {
			c := cron.New()
			if _, err := c.AddFunc(dailySchedule, func() {
				o.RunDailyPrediction(context.Background())
			}); err != nil {
				log.Printf("[PREDICT] cron schedule failed: %v", err)
			}

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					c.Start()
					return nil
				},
				OnStop: func(context.Context) error {
					<-c.Stop().Done()
					return nil
				},
			})
		}),
	)
}
