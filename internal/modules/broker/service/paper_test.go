package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"quant_trader/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperQuotesStable(t *testing.T) {
	p := NewPaper()
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	q1, err := p.RealtimeQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	require.Len(t, q1, 1)
	assert.Equal(t, 175.0, q1[0].Price)

	// в пределах 5 секунд цена не двигается
	now = now.Add(3 * time.Second)
	q2, _ := p.RealtimeQuotes(context.Background(), []string{"AAPL"})
	assert.Equal(t, q1[0].Price, q2[0].Price)
}

func TestPaperWalkBounded(t *testing.T) {
	p := NewPaper()
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	for i := 0; i < 500; i++ {
		now = now.Add(6 * time.Second)
		q, err := p.RealtimeQuotes(context.Background(), []string{"AAPL"})
		require.NoError(t, err)
		// блуждание зажато в ±10% от базы 175
		assert.GreaterOrEqual(t, q[0].Price, 175.0*0.9-0.01)
		assert.LessOrEqual(t, q[0].Price, 175.0*1.1+0.01)
	}
}

func TestPaperSetPricePins(t *testing.T) {
	p := NewPaper()
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	p.SetPrice("NVDA", 900.55)

	q, err := p.RealtimeQuotes(context.Background(), []string{"NVDA"})
	require.NoError(t, err)
	assert.Equal(t, 900.55, q[0].Price)
	assert.Zero(t, q[0].ChangePct)
}

func TestPaperSubmitOrder(t *testing.T) {
	p := NewPaper()
	p.now = func() time.Time { return time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC) }

	res, err := p.SubmitOrder(context.Background(), "AAPL", models.SideBuy, 100, "MARKET", 175)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "SIM_20260831103000", res.OrderID)

	res, err = p.SubmitOrder(context.Background(), "AAPL", models.SideBuy, 0, "MARKET", 175)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, strings.Contains(res.Message, "quantity"))
}

func TestPaperBars(t *testing.T) {
	p := NewPaper()
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	bars, err := p.Bars(context.Background(), "AAPL", "day", 30)
	require.NoError(t, err)
	require.Len(t, bars, 30)

	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Date.After(bars[i-1].Date))
		assert.LessOrEqual(t, bars[i].Low, bars[i].High)
	}
}

func TestPaperBalance(t *testing.T) {
	p := NewPaper()
	b, err := p.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1_000_000.0, b.AvailableCash)
	assert.Equal(t, "USD", b.Currency)
}
