package service

import (
	"context"
	"fmt"
	"time"

	"quant_trader/internal/models"

	"github.com/jackc/pgx/v5"
)

// Trades implement db store
type Trades struct{}

func NewTrades() *Trades { return &Trades{} }

// Insert — запись исполненной сделки. Записи никогда не обновляются.
func (s *Trades) Insert(ctx context.Context, tx pgx.Tx, t *models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.Insert: %w", err)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO trades
			(symbol, side, price, quantity, amount, mode, momentum, executed_at, broker_order_id, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.Symbol, t.Side, t.Price, t.Quantity, t.Amount, t.Mode, t.Momentum,
		t.ExecutedAt, t.BrokerOrderID, t.Outcome,
	)
	return err
}

// CountBuysSince — сколько покупок в режиме с указанного момента.
// Используется для дневного лимита сделок.
func (s *Trades) CountBuysSince(ctx context.Context, tx pgx.Tx, mode models.Mode, since time.Time) (cnt int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.CountBuysSince: %w", err)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM trades
		WHERE mode = $1 AND side = $2 AND executed_at >= $3`,
		mode, models.SideBuy, since,
	).Scan(&cnt)
	return cnt, err
}

// ListRecent — последние сделки режима, новые первыми.
func (s *Trades) ListRecent(ctx context.Context, tx pgx.Tx, mode models.Mode, limit int) (res []*models.Trade, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.ListRecent: %w", err)
		}
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, symbol, side, price, quantity, amount, mode, momentum,
		       executed_at, broker_order_id, outcome
		FROM trades
		WHERE mode = $1
		ORDER BY executed_at DESC
		LIMIT $2`,
		mode, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(
			&t.ID, &t.Symbol, &t.Side, &t.Price, &t.Quantity, &t.Amount,
			&t.Mode, &t.Momentum, &t.ExecutedAt, &t.BrokerOrderID, &t.Outcome,
		); err != nil {
			return nil, err
		}
		res = append(res, &t)
	}
	return res, rows.Err()
}
