package storage

import (
	"context"
	"fmt"
	"strconv"

	"quant_trader/internal/models"
	"quant_trader/internal/modules/config"
	"quant_trader/internal/modules/storage/service"
	"quant_trader/pkg/db"
	"quant_trader/pkg/logger"

	"github.com/jackc/pgx/v5"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			service.NewPositions,
			service.NewTrades,
			service.NewPredictions,
			service.NewSystemParams,
			service.NewBars,
		),

		// схема + дефолты параметров + первичная загрузка SystemParameters из БД
		fx.Invoke(func(lc fx.Lifecycle, mgr *db.PgTxManager, sp *service.SystemParams, params *config.Params) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := service.EnsureSchema(ctx, mgr); err != nil {
						return err
					}

					def := models.DefaultParameters()
					defaults := map[string]string{
						"profit_target_pct":        floatStr(def.ProfitTargetPct),
						"buy_amount":               floatStr(def.BuyAmount),
						"max_concurrent_positions": strconv.Itoa(def.MaxConcurrentPositions),
						"advisor_weight":           floatStr(def.AdvisorWeight),
						"advisor_enabled":          strconv.FormatBool(def.AdvisorEnabled),
						"min_prediction_score":     floatStr(def.MinPredictionScore),
						"max_daily_trades":         strconv.Itoa(def.MaxDailyTrades),
						"trailing_stop_pct":        floatStr(def.TrailingStopPct),
						"max_hold_days":            strconv.Itoa(def.MaxHoldDays),
						"buy_momentum_threshold":   floatStr(def.BuyMomentumThreshold),
						"buy_change_threshold":     floatStr(def.BuyChangeThreshold),
					}

					err := mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
						if err := sp.EnsureDefaults(ctx, tx, defaults); err != nil {
							return err
						}
						kv, err := sp.FetchAll(ctx, tx)
						if err != nil {
							return err
						}
						params.Apply(kv)
						return nil
					})
					if err != nil {
						// конфигурация не должна блокировать старт — едем на дефолтах
						logger.Warn("system params load failed, using defaults: %v", err)
					}
					return nil
				},
			})
		}),
	)
}

func floatStr(f float64) string {
	return fmt.Sprintf("%g", f)
}
