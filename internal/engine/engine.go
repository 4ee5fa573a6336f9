// Package engine — фасад торгового движка для внешних вызовов
// (HTTP-слой, телеграм-команды, ручные прогоны).
package engine

import (
	"context"
	"fmt"

	"quant_trader/internal/models"
	"quant_trader/internal/modules/config"
	monitorsvc "quant_trader/internal/modules/monitor/service"
	predictorsvc "quant_trader/internal/modules/predictor/service"
	storagesvc "quant_trader/internal/modules/storage/service"
	strategysvc "quant_trader/internal/modules/strategy/service"
	"quant_trader/pkg/db"
	"quant_trader/pkg/logger"

	"github.com/jackc/pgx/v5"
	"go.uber.org/fx"
)

type Engine struct {
	cfg          *config.Config
	params       *config.Params
	mgr          db.TxManager
	systemParams *storagesvc.SystemParams
	ledger       *strategysvc.Ledger
	monitor      *monitorsvc.Monitor
	orchestrator *predictorsvc.Orchestrator
	mode         models.Mode
}

func New(cfg *config.Config, params *config.Params, mgr *db.PgTxManager, systemParams *storagesvc.SystemParams,
	ledger *strategysvc.Ledger, monitor *monitorsvc.Monitor, orchestrator *predictorsvc.Orchestrator) (*Engine, error) {
	mode, err := models.ParseMode(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("engine.New: %w", err)
	}
	return &Engine{
		cfg:          cfg,
		params:       params,
		mgr:          mgr,
		systemParams: systemParams,
		ledger:       ledger,
		monitor:      monitor,
		orchestrator: orchestrator,
		mode:         mode,
	}, nil
}

func (e *Engine) Mode() models.Mode { return e.mode }

// EvaluateAndTradeOnce — одиночный цикл: котировки, выходы, вход.
func (e *Engine) EvaluateAndTradeOnce(ctx context.Context) {
	e.monitor.EvaluateAndTradeOnce(ctx, e.mode)
}

func (e *Engine) TopRecommendations(ctx context.Context, limit int) ([]models.Recommendation, error) {
	return e.orchestrator.TopRecommendations(ctx, limit)
}

func (e *Engine) RunDailyPrediction(ctx context.Context) []*models.Prediction {
	return e.orchestrator.RunDailyPrediction(ctx)
}

func (e *Engine) Positions(ctx context.Context, mode models.Mode) ([]*models.Position, error) {
	return e.ledger.Positions(ctx, mode)
}

func (e *Engine) StartMonitoring() { e.monitor.Start(e.mode) }

func (e *Engine) StopMonitoring() { e.monitor.Stop() }

// ReloadParameters перечитывает SystemParameters из БД и накатывает
// поверх текущего снимка.
func (e *Engine) ReloadParameters(ctx context.Context) error {
	err := e.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		kv, err := e.systemParams.FetchAll(ctx, tx)
		if err != nil {
			return err
		}
		e.params.Apply(kv)
		return nil
	})
	if err != nil {
		return fmt.Errorf("Engine.ReloadParameters: %w", err)
	}
	logger.Info("system parameters reloaded")
	return nil
}

// Status — снимок состояния движка.
type Status struct {
	Mode       models.Mode             `json:"mode"`
	Monitoring bool                    `json:"monitoring"`
	Universe   []string                `json:"universe"`
	Parameters models.SystemParameters `json:"parameters"`
}

func (e *Engine) Status() Status {
	return Status{
		Mode:       e.mode,
		Monitoring: e.monitor.Running(),
		Universe:   e.cfg.Universe,
		Parameters: e.params.Snapshot(),
	}
}

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(New),
	)
}
