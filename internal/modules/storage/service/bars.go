package service

import (
	"context"
	"fmt"
	"time"

	"quant_trader/internal/models"

	"github.com/jackc/pgx/v5"
)

// Bars implement db store (кэш дневных свечей)
type Bars struct{}

func NewBars() *Bars { return &Bars{} }

// ListSince — свечи символа начиная с даты, по возрастанию даты.
func (s *Bars) ListSince(ctx context.Context, tx pgx.Tx, symbol string, since time.Time) (res []models.Bar, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Bars.ListSince: %w", err)
		}
	}()

	rows, err := tx.Query(ctx, `
		SELECT trade_date, open, high, low, close, volume, change_pct
		FROM bar_cache
		WHERE symbol = $1 AND trade_date >= $2
		ORDER BY trade_date ASC`,
		symbol, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.ChangePct); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// UpsertBatch — обновление кэша по ключу (symbol, trade_date).
func (s *Bars) UpsertBatch(ctx context.Context, tx pgx.Tx, symbol string, bars []models.Bar) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Bars.UpsertBatch: %w", err)
		}
	}()

	for _, b := range bars {
		_, err = tx.Exec(ctx, `
			INSERT INTO bar_cache (symbol, trade_date, open, high, low, close, volume, change_pct)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (symbol, trade_date) DO UPDATE SET
				close      = EXCLUDED.close,
				change_pct = EXCLUDED.change_pct`,
			symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, b.ChangePct,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
