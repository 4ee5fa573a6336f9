package service

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"quant_trader/internal/models"
	"quant_trader/internal/modules/config"
	predictorsvc "quant_trader/internal/modules/predictor/service"
)

// Warmuper прогревает кэш дневной истории по вселенной, чтобы первый
// прогноз не упирался в холодный кэш и лимит запросов.
type Warmuper struct {
	history *predictorsvc.History
	cfg     *config.Config

	// ограничитель параллелизма, чтобы не словить rate limit
	sem chan struct{}
}

func NewWarmuper(history *predictorsvc.History, cfg *config.Config) *Warmuper {
	return &Warmuper{
		history: history,
		cfg:     cfg,
		sem:     make(chan struct{}, 4),
	}
}

func (w *Warmuper) Warmup(ctx context.Context, mode models.Mode, days int) error {
	symbols := w.cfg.Universe
	if len(symbols) == 0 {
		return nil
	}

	var cnt int64
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		symbol := symbol
		wg.Add(1)
		w.sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-w.sem }()

			bars, err := w.history.Bars(ctx, mode, symbol, days)
			if err != nil {
				log.Printf("[BOOT] %s warmup failed: %v", symbol, err)
				return
			}
			atomic.AddInt64(&cnt, int64(len(bars)))
		}()
	}
	wg.Wait()

	log.Printf("[BOOT] warmup done: %d symbols, %d bars", len(symbols), cnt)
	return nil
}
