// Package momentum считает краткосрочный импульс символа как скорость
// изменения процентного изменения цены, нормированную на минуту.
package momentum

import (
	"math"
	"sort"
	"sync"
	"time"

	"quant_trader/internal/models"
)

const maxSamples = 60

// Entry — строка выдачи TopN.
type Entry struct {
	Symbol    string
	Momentum  float64
	Price     float64
	ChangePct float64
}

// Tracker — скользящее окно последних 60 срезов цены на символ.
// Потокобезопасен: мониторинг пишет, стратегия читает.
type Tracker struct {
	mu      sync.RWMutex
	history map[string][]models.PriceSample
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		history: make(map[string][]models.PriceSample),
		now:     time.Now,
	}
}

// Update добавляет срез и возвращает свежий momentum символа.
func (t *Tracker) Update(symbol string, price, changePct float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := append(t.history[symbol], models.PriceSample{
		Symbol:    symbol,
		Timestamp: t.now(),
		Price:     price,
		ChangePct: changePct,
	})
	if len(h) > maxSamples {
		h = h[len(h)-maxSamples:]
	}
	t.history[symbol] = h

	return momentumOf(h)
}

// Momentum — текущее значение без записи нового среза.
func (t *Tracker) Momentum(symbol string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return momentumOf(t.history[symbol])
}

// momentumOf: наклон change_pct по последним трём срезам, в %/мин.
// Меньше трёх срезов или нулевой интервал — нейтральный 0.
func momentumOf(h []models.PriceSample) float64 {
	if len(h) < 3 {
		return 0
	}
	recent := h[len(h)-3:]
	elapsed := recent[2].Timestamp.Sub(recent[0].Timestamp).Seconds()
	if elapsed <= 0 {
		return 0
	}
	changeDiff := recent[2].ChangePct - recent[0].ChangePct
	return math.Round(changeDiff/elapsed*60*10000) / 10000
}

// TopN — символы в порядке убывания momentum.
func (t *Tracker) TopN(n int) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	res := make([]Entry, 0, len(t.history))
	for symbol, h := range t.history {
		if len(h) == 0 {
			continue
		}
		last := h[len(h)-1]
		res = append(res, Entry{
			Symbol:    symbol,
			Momentum:  momentumOf(h),
			Price:     last.Price,
			ChangePct: last.ChangePct,
		})
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Momentum > res[j].Momentum })
	if n > 0 && len(res) > n {
		res = res[:n]
	}
	return res
}
