package service

import (
	"sync"
	"time"

	"quant_trader/internal/models"
)

// opinionCache — кэш мнений на (symbol, календарный день): один вызов
// советника на символ в день, смена даты инвалидирует запись.
type opinionCache struct {
	mu    sync.Mutex
	items map[string]models.AdvisorOpinion
	now   func() time.Time
}

func newOpinionCache() *opinionCache {
	return &opinionCache{
		items: make(map[string]models.AdvisorOpinion),
		now:   time.Now,
	}
}

func (c *opinionCache) key(symbol string) string {
	return symbol + "_" + c.now().Format("20060102")
}

func (c *opinionCache) get(symbol string) (models.AdvisorOpinion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.items[c.key(symbol)]
	return op, ok
}

func (c *opinionCache) put(symbol string, op models.AdvisorOpinion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[c.key(symbol)] = op
}
