package momentum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(start time.Time, step time.Duration) *Tracker {
	t := NewTracker()
	cur := start
	t.now = func() time.Time {
		res := cur
		cur = cur.Add(step)
		return res
	}
	return t
}

func TestUpdateNeedsThreeSamples(t *testing.T) {
	tr := newTestTracker(time.Unix(1000, 0), 10*time.Second)

	assert.Zero(t, tr.Update("AAPL", 100, 0.5))
	assert.Zero(t, tr.Update("AAPL", 101, 1.0))
	assert.NotZero(t, tr.Update("AAPL", 102, 2.0))
}

func TestMomentumSlopePerMinute(t *testing.T) {
	// три среза с шагом 10s: change_pct 0.0 -> 1.0 за 20 секунд
	// наклон = 1.0/20*60 = 3.0 %/мин
	tr := newTestTracker(time.Unix(1000, 0), 10*time.Second)

	tr.Update("AAPL", 100, 0.0)
	tr.Update("AAPL", 100.5, 0.5)
	got := tr.Update("AAPL", 101, 1.0)

	assert.InDelta(t, 3.0, got, 1e-9)
	assert.InDelta(t, 3.0, tr.Momentum("AAPL"), 1e-9)
}

func TestHistoryBounded(t *testing.T) {
	tr := newTestTracker(time.Unix(1000, 0), time.Second)

	for i := 0; i < 1000; i++ {
		tr.Update("AAPL", 100, float64(i))
	}

	tr.mu.RLock()
	defer tr.mu.RUnlock()
	assert.Len(t, tr.history["AAPL"], maxSamples)
	// старые вытеснены: первый оставшийся — срез №940
	assert.Equal(t, float64(1000-maxSamples), tr.history["AAPL"][0].ChangePct)
}

func TestTopNOrdering(t *testing.T) {
	tr := newTestTracker(time.Unix(1000, 0), 10*time.Second)

	// AAPL разгоняется, TSLA падает, MSFT стоит
	for i := 0; i < 3; i++ {
		tr.Update("AAPL", 100, float64(i))
		tr.Update("TSLA", 200, -float64(i))
		tr.Update("MSFT", 300, 0)
	}

	top := tr.TopN(2)
	require.Len(t, top, 2)
	assert.Equal(t, "AAPL", top[0].Symbol)
	assert.Equal(t, "MSFT", top[1].Symbol)
	assert.Greater(t, top[0].Momentum, 0.0)
}

func TestUnknownSymbolNeutral(t *testing.T) {
	tr := NewTracker()
	assert.Zero(t, tr.Momentum("NOPE"))
	assert.Empty(t, tr.TopN(5))
}
