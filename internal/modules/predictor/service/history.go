package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"quant_trader/internal/models"
	brokersvc "quant_trader/internal/modules/broker/service"
	storagesvc "quant_trader/internal/modules/storage/service"
	"quant_trader/pkg/db"

	"github.com/jackc/pgx/v5"
)

// достаточная доля закэшированных дней, ниже — догружаем у брокера
const cacheCoverage = 0.7

// History — дневная история свечей поверх таблицы-кэша. Брокер
// дёргается только когда покрытие кэша меньше 70% запрошенной глубины.
type History struct {
	mgr     db.TxManager
	bars    *storagesvc.Bars
	brokers *brokersvc.Brokers
	now     func() time.Time
}

func NewHistory(mgr *db.PgTxManager, bars *storagesvc.Bars, brokers *brokersvc.Brokers) *History {
	return &History{mgr: mgr, bars: bars, brokers: brokers, now: time.Now}
}

// Bars — последние days дневных свечей символа, от старых к новым.
func (h *History) Bars(ctx context.Context, mode models.Mode, symbol string, days int) ([]models.Bar, error) {
	since := h.now().AddDate(0, 0, -days)

	var cached []models.Bar
	err := h.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		cached, err = h.bars.ListSince(ctx, tx, symbol, since)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("History.Bars: %w", err)
	}

	if float64(len(cached)) >= float64(days)*cacheCoverage {
		return cached, nil
	}

	fresh, err := h.brokers.ForMode(mode).Bars(ctx, symbol, "day", days)
	if err != nil {
		log.Printf("[HISTORY] %s broker bars failed, using %d cached: %v", symbol, len(cached), err)
		return cached, nil
	}
	if len(fresh) == 0 {
		return cached, nil
	}

	// кэш пополняется по пути, отказ записи не мешает расчёту
	if err := h.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return h.bars.UpsertBatch(ctx, tx, symbol, fresh)
	}); err != nil {
		log.Printf("[HISTORY] %s cache write failed: %v", symbol, err)
	}

	return fresh, nil
}
