package indicators

import (
	"testing"
	"time"

	"quant_trader/internal/models"

	"github.com/stretchr/testify/assert"
)

func barsFromCloses(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Date:  day.AddDate(0, 0, i),
			Open:  c,
			High:  c * 1.01,
			Low:   c * 0.99,
			Close: c,
		}
	}
	return bars
}

func TestComputeInsufficientBars(t *testing.T) {
	bars := barsFromCloses([]float64{100, 101, 102, 103, 104, 105, 106, 107, 108}) // 9 штук

	got := Compute(bars)

	assert.Equal(t, models.TechnicalIndicators{RSI: 50}, got)
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	got := Compute(barsFromCloses(closes))

	// ни одного падения — RSI 100
	assert.Equal(t, 100.0, got.RSI)
}

func TestRSINeutralWhenShortSeries(t *testing.T) {
	// 12 закрытий: хватает для Compute, но не для RSI(14)
	closes := []float64{100, 99, 101, 100, 102, 101, 103, 102, 104, 103, 105, 104}

	got := Compute(barsFromCloses(closes))

	assert.Equal(t, 50.0, got.RSI)
}

func TestMomentumTenBarChange(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 110}

	got := Compute(barsFromCloses(closes))

	// (110 - 100) / 100 * 100, база — десятый бар с конца
	assert.InDelta(t, 10.0, got.Momentum, 1e-9)
}

func TestMATrendFullBull(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}

	got := Compute(barsFromCloses(closes))

	// все три условия выполнены: 0.3+0.3+0.4 -> *2-1 = 1
	assert.InDelta(t, 1.0, got.MATrend, 1e-9)
}

func TestTechnicalScoreBands(t *testing.T) {
	cases := []struct {
		name string
		ind  models.TechnicalIndicators
		want float64
	}{
		{
			name: "oversold bull",
			ind:  models.TechnicalIndicators{RSI: 25, MACDSignal: 0.5, MATrend: 0.8, Momentum: 6, Volatility: 2},
			want: 35 + 25 + 25 + 15 + 10,
		},
		{
			name: "neutral",
			ind:  models.TechnicalIndicators{RSI: 50, MACDSignal: 0, MATrend: 0, Momentum: 0, Volatility: 0},
			want: 25 + 15 + 10 + 8 + 5,
		},
		{
			name: "bearish",
			ind:  models.TechnicalIndicators{RSI: 80, MACDSignal: -0.5, MATrend: -0.8, Momentum: -6, Volatility: 5},
			want: 10 + 5 + 5 + 3 - 5,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TechnicalScore(tc.ind))
		})
	}
}

func TestPredictedReturnLinear(t *testing.T) {
	assert.Equal(t, 0.0, PredictedReturn(50))
	assert.Equal(t, 2.5, PredictedReturn(100))
	assert.Equal(t, -1.5, PredictedReturn(20))
}

func TestConfidenceCapped(t *testing.T) {
	// 30 баров и максимальный тренд упираются в потолок 0.9
	got := Confidence(30, models.TechnicalIndicators{MATrend: 1.0})
	assert.Equal(t, 0.9, got)

	// мало истории — ниже потолка
	got = Confidence(12, models.TechnicalIndicators{MATrend: 0})
	assert.InDelta(t, 12.0/30*0.5+0.2, got, 1e-9)
}
