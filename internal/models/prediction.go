package models

import "time"

// TechnicalIndicators — ограниченные числовые оценки по серии свечей.
// При менее чем 10 свечах все поля принимают нейтральные значения
// (rsi=50, остальные 0).
type TechnicalIndicators struct {
	RSI        float64 `json:"rsi"`
	MACDSignal float64 `json:"macd_signal"`
	MATrend    float64 `json:"ma_trend"`
	Volatility float64 `json:"volatility"`
	Momentum   float64 `json:"momentum"`
}

// PredictionSource — откуда взялась оценка.
type PredictionSource string

const (
	SourceTechnical        PredictionSource = "technical"
	SourceHybrid           PredictionSource = "hybrid"
	SourceInsufficientData PredictionSource = "insufficient_data"
)

// Prediction — результат оценки символа. Ключ (Symbol, AsOfDate),
// повторный прогон за тот же день перезаписывает значения.
type Prediction struct {
	Symbol          string              `json:"symbol"`
	AsOfDate        time.Time           `json:"as_of_date"`
	Score           float64             `json:"score"`
	TechnicalScore  float64             `json:"technical_score"`
	AdvisorScore    float64             `json:"advisor_score"`
	PredictedReturn float64             `json:"predicted_return"`
	Confidence      float64             `json:"confidence"`
	Recommendation  string              `json:"recommendation"`
	Analysis        string              `json:"analysis"`
	Source          PredictionSource    `json:"source"`
	Indicators      TechnicalIndicators `json:"indicators"`
	RealizedReturn  *float64            `json:"realized_return,omitempty"`
}

// AdvisorOpinion — нормализованный ответ внешнего советника.
// Нейтральный дефолт: score=50, hold, confidence=0.
type AdvisorOpinion struct {
	Score           float64  `json:"score"`
	Recommendation  string   `json:"recommendation"`
	Confidence      float64  `json:"confidence"`
	PredictedChange float64  `json:"predicted_change"`
	Reasons         []string `json:"reasons"`
}

func NeutralOpinion() AdvisorOpinion {
	return AdvisorOpinion{Score: 50, Recommendation: "hold", Confidence: 0}
}

// Recommendation — строка из топа рекомендаций на покупку.
type Recommendation struct {
	Symbol          string  `json:"symbol"`
	Price           float64 `json:"price"`
	ChangePct       float64 `json:"change_pct"`
	Score           float64 `json:"score"`
	PredictedReturn float64 `json:"predicted_return"`
	Recommendation  string  `json:"recommendation"`
}
