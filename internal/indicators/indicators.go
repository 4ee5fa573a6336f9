// Package indicators — технические индикаторы по серии дневных свечей
// и балльная оценка привлекательности символа.
package indicators

import (
	"math"

	"quant_trader/internal/models"
)

const minBars = 10

// Compute считает снимок индикаторов по свечам (от старых к новым).
// Менее 10 свечей — нейтральный снимок: rsi=50, остальное 0.
func Compute(bars []models.Bar) models.TechnicalIndicators {
	if len(bars) < minBars {
		return models.TechnicalIndicators{RSI: 50}
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}

	return models.TechnicalIndicators{
		RSI:        rsi(closes, 14),
		MACDSignal: macdSignal(closes),
		MATrend:    maTrend(closes),
		Volatility: volatility(highs, lows, closes),
		Momentum:   momentum(closes),
	}
}

// rsi — простое среднее последних period приростов/падений.
// Без падений — 100, мало точек — нейтральные 50.
func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}

	var gains, losses []float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	avgGain := mean(gains[len(gains)-period:])
	avgLoss := mean(losses[len(losses)-period:])
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return round2(100 - 100/(1+rs))
}

// macdSignal — (EMA12−EMA26)/close*100, сжатый в [-1, 1] делением на 2.
func macdSignal(closes []float64) float64 {
	if len(closes) < 26 {
		return 0
	}
	macd := ema(closes, 12) - ema(closes, 26)
	last := closes[len(closes)-1]
	if last == 0 {
		return 0
	}
	signal := macd / last * 100 / 2
	return math.Max(-1, math.Min(1, signal))
}

func ema(data []float64, period int) float64 {
	if len(data) == 0 {
		return 0
	}
	if len(data) < period {
		return data[len(data)-1]
	}
	multiplier := 2.0 / float64(period+1)
	e := mean(data[:period])
	for _, price := range data[period:] {
		e = (price-e)*multiplier + e
	}
	return e
}

// maTrend — взвешенный голос трёх условий (цена>MA5, MA5>MA10, MA10>MA20)
// с весами 0.3/0.3/0.4, растянутый в [-1, 1].
func maTrend(closes []float64) float64 {
	if len(closes) < 20 {
		return 0
	}
	ma5 := mean(closes[len(closes)-5:])
	ma10 := mean(closes[len(closes)-10:])
	ma20 := mean(closes[len(closes)-20:])

	score := 0.0
	if closes[len(closes)-1] > ma5 {
		score += 0.3
	}
	if ma5 > ma10 {
		score += 0.3
	}
	if ma10 > ma20 {
		score += 0.4
	}
	return score*2 - 1
}

// volatility — ATR(14) в процентах от последнего закрытия.
func volatility(highs, lows, closes []float64) float64 {
	if len(closes) < 14 {
		return 0
	}
	var trs []float64
	for i := 1; i < len(closes); i++ {
		tr := math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
		trs = append(trs, tr)
	}
	atr := mean(trs[len(trs)-14:])
	last := closes[len(closes)-1]
	if last == 0 {
		return 0
	}
	return round2(atr / last * 100)
}

// momentum — процентное изменение закрытия за 10 баров.
func momentum(closes []float64) float64 {
	if len(closes) < 10 {
		return 0
	}
	base := closes[len(closes)-10]
	if base == 0 {
		return 0
	}
	return round2((closes[len(closes)-1] - base) / base * 100)
}

// TechnicalScore — балльная оценка 0..100 по диапазонам индикаторов.
func TechnicalScore(ind models.TechnicalIndicators) float64 {
	score := 0.0

	switch {
	case ind.RSI < 30:
		score += 35
	case ind.RSI < 40:
		score += 30
	case ind.RSI <= 60:
		score += 25
	case ind.RSI <= 70:
		score += 20
	default:
		score += 10
	}

	switch {
	case ind.MACDSignal > 0.3:
		score += 25
	case ind.MACDSignal > 0:
		score += 20
	case ind.MACDSignal > -0.3:
		score += 15
	default:
		score += 5
	}

	switch {
	case ind.MATrend > 0.5:
		score += 25
	case ind.MATrend > 0:
		score += 20
	case ind.MATrend > -0.5:
		score += 10
	default:
		score += 5
	}

	switch {
	case ind.Momentum > 5:
		score += 15
	case ind.Momentum > 0:
		score += 12
	case ind.Momentum > -5:
		score += 8
	default:
		score += 3
	}

	switch {
	case ind.Volatility >= 1 && ind.Volatility <= 3:
		score += 10
	case ind.Volatility < 1:
		score += 5
	default:
		score -= 5
	}

	return score
}

// PredictedReturn — ожидаемая доходность как линейная функция оценки.
func PredictedReturn(score float64) float64 {
	return round4((score - 50) * 0.05)
}

// Confidence растёт с глубиной истории и выраженностью тренда, потолок 0.9.
func Confidence(barsAvailable int, ind models.TechnicalIndicators) float64 {
	c := float64(barsAvailable)/30*0.5 + math.Abs(ind.MATrend)*0.3 + 0.2
	return round4(math.Min(0.9, c))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
