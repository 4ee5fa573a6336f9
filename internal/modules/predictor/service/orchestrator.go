package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"quant_trader/internal/models"
	brokersvc "quant_trader/internal/modules/broker/service"
	"quant_trader/internal/modules/config"
	storagesvc "quant_trader/internal/modules/storage/service"
	"quant_trader/internal/notify"
	"quant_trader/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/opentracing/opentracing-go"
)

// Orchestrator — дневной батч прогнозов по вселенной: прогоняет Scorer,
// сохраняет прогнозы, досчитывает реализованную доходность вчерашних.
type Orchestrator struct {
	cfg         *config.Config
	params      *config.Params
	scorer      *Scorer
	history     *History
	mgr         db.TxManager
	predictions *storagesvc.Predictions
	brokers     *brokersvc.Brokers
	notifier    notify.Notifier
	mode        models.Mode
	now         func() time.Time
}

func NewOrchestrator(cfg *config.Config, params *config.Params, scorer *Scorer, history *History,
	mgr *db.PgTxManager, predictions *storagesvc.Predictions, brokers *brokersvc.Brokers, notifier notify.Notifier) *Orchestrator {
	mode, err := models.ParseMode(cfg.Mode)
	if err != nil {
		mode = models.ModeSimulated
	}
	return &Orchestrator{
		cfg:         cfg,
		params:      params,
		scorer:      scorer,
		history:     history,
		mgr:         mgr,
		predictions: predictions,
		brokers:     brokers,
		notifier:    notifier,
		mode:        mode,
		now:         time.Now,
	}
}

// RunDailyPrediction — прогноз по каждому символу вселенной.
// Отказ сохранения одного символа не валит весь батч.
func (o *Orchestrator) RunDailyPrediction(ctx context.Context) []*models.Prediction {
	span, ctx := opentracing.StartSpanFromContext(ctx, "daily_prediction")
	defer span.Finish()

	log.Printf("[PREDICT] daily run, %d symbols", len(o.cfg.Universe))

	predictions := make([]*models.Prediction, 0, len(o.cfg.Universe))
	for _, symbol := range o.cfg.Universe {
		pred := o.scorer.HybridPredict(ctx, o.mode, symbol)
		predictions = append(predictions, pred)

		if err := o.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return o.predictions.Upsert(ctx, tx, pred)
		}); err != nil {
			log.Printf("[PREDICT] %s save failed: %v", symbol, err)
		}
	}

	o.settleRealized(ctx)

	sort.Slice(predictions, func(i, j int) bool { return predictions[i].Score > predictions[j].Score })
	log.Printf("[PREDICT] daily run done, %d predictions", len(predictions))

	if len(predictions) > 0 && predictions[0].Source != models.SourceInsufficientData {
		o.notifier.Sendf("📈 Прогноз дня: %s score=%.1f return=%.2f%%",
			predictions[0].Symbol, predictions[0].Score, predictions[0].PredictedReturn)
	}
	return predictions
}

// settleRealized проставляет вчерашним прогнозам фактическое изменение
// последнего закрытия — для пост-фактум оценки качества прогнозов.
// Обходятся только символы, по которым вчера реально был прогноз.
func (o *Orchestrator) settleRealized(ctx context.Context) {
	y, m, d := o.now().AddDate(0, 0, -1).Date()
	yesterday := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var prior []*models.Prediction
	if err := o.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		prior, err = o.predictions.ListByDate(ctx, tx, yesterday, 0)
		return err
	}); err != nil {
		log.Printf("[PREDICT] yesterday predictions load failed: %v", err)
		return
	}

	for _, pr := range prior {
		bars, err := o.history.Bars(ctx, o.mode, pr.Symbol, 5)
		if err != nil || len(bars) == 0 {
			continue
		}
		last := bars[len(bars)-1]

		if err := o.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return o.predictions.SetRealizedReturn(ctx, tx, pr.Symbol, yesterday, last.ChangePct)
		}); err != nil {
			log.Printf("[PREDICT] %s realized return update failed: %v", pr.Symbol, err)
		}
	}
}

// TopRecommendations — лучшие кандидаты на покупку: свежая котировка
// плюс прогноз, отфильтрованные по min_prediction_score.
func (o *Orchestrator) TopRecommendations(ctx context.Context, limit int) ([]models.Recommendation, error) {
	quotes, err := o.brokers.ForMode(o.mode).RealtimeQuotes(ctx, o.cfg.Universe)
	if err != nil {
		return nil, fmt.Errorf("Orchestrator.TopRecommendations: %w", err)
	}

	minScore := o.params.Snapshot().MinPredictionScore

	res := make([]models.Recommendation, 0, limit)
	for _, q := range quotes {
		if q.Price <= 0 {
			continue
		}
		pred := o.scorer.HybridPredict(ctx, o.mode, q.Symbol)
		if pred.Source == models.SourceInsufficientData || pred.Score < minScore {
			continue
		}
		res = append(res, models.Recommendation{
			Symbol:          q.Symbol,
			Price:           q.Price,
			ChangePct:       q.ChangePct,
			Score:           pred.Score,
			PredictedReturn: pred.PredictedReturn,
			Recommendation:  pred.Recommendation,
		})
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Score > res[j].Score })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}
