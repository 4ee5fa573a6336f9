package service

import (
	"context"
	"math"
	"strings"
	"time"

	"quant_trader/internal/indicators"
	"quant_trader/internal/models"
	advisorsvc "quant_trader/internal/modules/advisor/service"
	"quant_trader/internal/modules/config"
)

const historyDays = 30

type barSource interface {
	Bars(ctx context.Context, mode models.Mode, symbol string, days int) ([]models.Bar, error)
}

// Scorer — гибридная оценка символа: техническая база, опционально
// смешанная с мнением советника.
type Scorer struct {
	cfg     *config.Config
	params  *config.Params
	history barSource
	advisor advisorsvc.Advisor
	now     func() time.Time
}

func NewScorer(cfg *config.Config, params *config.Params, history *History, advisor advisorsvc.Advisor) *Scorer {
	return &Scorer{cfg: cfg, params: params, history: history, advisor: advisor, now: time.Now}
}

// PredictTechnical — чисто техническая оценка по свечам.
func (s *Scorer) PredictTechnical(symbol string, bars []models.Bar) *models.Prediction {
	day := s.today()

	if len(bars) < 10 {
		return &models.Prediction{
			Symbol:   symbol,
			AsOfDate: day,
			Source:   models.SourceInsufficientData,
		}
	}

	ind := indicators.Compute(bars)
	score := indicators.TechnicalScore(ind)

	return &models.Prediction{
		Symbol:          symbol,
		AsOfDate:        day,
		Score:           score,
		TechnicalScore:  score,
		PredictedReturn: indicators.PredictedReturn(score),
		Confidence:      indicators.Confidence(len(bars), ind),
		Recommendation:  recommendationFor(score),
		Source:          models.SourceTechnical,
		Indicators:      ind,
	}
}

// HybridPredict: <10 свечей — insufficient_data; советник выключен или
// не настроен — техническая оценка как есть; иначе смешивание по весу
// advisor_weight плюс override при уверенных buy/sell.
func (s *Scorer) HybridPredict(ctx context.Context, mode models.Mode, symbol string) *models.Prediction {
	bars, err := s.history.Bars(ctx, mode, symbol, historyDays)
	if err != nil {
		bars = nil
	}

	pred := s.PredictTechnical(symbol, bars)
	if pred.Source == models.SourceInsufficientData {
		return pred
	}

	// без ключа советник отвечал бы нейтральным мнением и тащил бы
	// каждую оценку к 50 — поэтому ненастроенный исключается целиком
	p := s.params.Snapshot()
	if !p.AdvisorEnabled || !s.advisor.Configured() {
		return pred
	}

	// советник всепрощающий: любой сбой возвращает нейтральное мнение
	op := s.advisor.Analyze(ctx, symbol, bars, pred.Indicators)

	w := p.AdvisorWeight
	hybridScore := pred.TechnicalScore*(1-w) + op.Score*w
	hybridConf := pred.Confidence*(1-w) + op.Confidence*w
	hybridReturn := pred.PredictedReturn*(1-w) + op.PredictedChange*w

	if op.Recommendation == "buy" && op.Confidence > 0.7 {
		hybridScore = math.Min(100, hybridScore+5)
	}
	if op.Recommendation == "sell" && op.Confidence > 0.7 {
		hybridScore = math.Max(0, hybridScore-10)
	}

	pred.Score = round2(hybridScore)
	pred.AdvisorScore = op.Score
	pred.Confidence = round4(hybridConf)
	pred.PredictedReturn = round4(hybridReturn)
	pred.Recommendation = recommendationFor(pred.Score)
	pred.Analysis = strings.Join(op.Reasons, "; ")
	pred.Source = models.SourceHybrid
	return pred
}

func (s *Scorer) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func recommendationFor(score float64) string {
	switch {
	case score >= 70:
		return "buy"
	case score < 40:
		return "sell"
	default:
		return "hold"
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
