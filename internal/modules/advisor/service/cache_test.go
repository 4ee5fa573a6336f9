package service

import (
	"testing"
	"time"

	"quant_trader/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpinionCachePerDay(t *testing.T) {
	c := newOpinionCache()
	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return day }

	_, ok := c.get("AAPL")
	require.False(t, ok)

	op := models.AdvisorOpinion{Score: 70, Recommendation: "buy", Confidence: 0.8}
	c.put("AAPL", op)

	got, ok := c.get("AAPL")
	require.True(t, ok)
	assert.Equal(t, op, got)

	// тот же день, другой символ — мимо
	_, ok = c.get("TSLA")
	assert.False(t, ok)

	// смена календарного дня инвалидирует запись
	day = day.AddDate(0, 0, 1)
	_, ok = c.get("AAPL")
	assert.False(t, ok)
}
