package service

import (
	"context"
	"fmt"
	"quant_trader/internal/models"

	"github.com/jackc/pgx/v5"
)

// Positions implement db store
type Positions struct{}

func NewPositions() *Positions { return &Positions{} }

// GetBySymbol — позиция по ключу (symbol, mode) или nil.
func (s *Positions) GetBySymbol(ctx context.Context, tx pgx.Tx, symbol string, mode models.Mode) (pos *models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.GetBySymbol: %w", err)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT id, symbol, mode, quantity, avg_cost, cost_basis, momentum,
		       opened_at, status, current_price, profit_loss, profit_loss_pct
		FROM positions
		WHERE symbol = $1 AND mode = $2`,
		symbol, mode,
	)

	p, err := scanPosition(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListOpen — все открытые позиции режима (quantity > 0).
func (s *Positions) ListOpen(ctx context.Context, tx pgx.Tx, mode models.Mode) (res []*models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.ListOpen: %w", err)
		}
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, symbol, mode, quantity, avg_cost, cost_basis, momentum,
		       opened_at, status, current_price, profit_loss, profit_loss_pct
		FROM positions
		WHERE mode = $1 AND quantity > 0
		ORDER BY opened_at`,
		mode,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// CountOpen — сколько открытых позиций в режиме.
func (s *Positions) CountOpen(ctx context.Context, tx pgx.Tx, mode models.Mode) (cnt int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.CountOpen: %w", err)
		}
	}()

	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM positions WHERE mode = $1 AND quantity > 0`, mode,
	).Scan(&cnt)
	return cnt, err
}

// Upsert — вставка новой позиции или полная перезапись по (symbol, mode).
// Леджер заранее пересчитывает средневзвешенную цену из консистентного
// снапшота; здесь только запись.
func (s *Positions) Upsert(ctx context.Context, tx pgx.Tx, p *models.Position) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.Upsert: %w", err)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO positions
			(symbol, mode, quantity, avg_cost, cost_basis, momentum, opened_at, status,
			 current_price, profit_loss, profit_loss_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (symbol, mode) DO UPDATE SET
			quantity        = EXCLUDED.quantity,
			avg_cost        = EXCLUDED.avg_cost,
			cost_basis      = EXCLUDED.cost_basis,
			momentum        = EXCLUDED.momentum,
			opened_at       = EXCLUDED.opened_at,
			status          = EXCLUDED.status,
			current_price   = EXCLUDED.current_price,
			profit_loss     = EXCLUDED.profit_loss,
			profit_loss_pct = EXCLUDED.profit_loss_pct`,
		p.Symbol, p.Mode, p.Quantity, p.AvgCost, p.CostBasis, p.Momentum,
		p.OpenedAt, p.Status, p.CurrentPrice, p.ProfitLoss, p.ProfitLossPct,
	)
	return err
}

func scanPosition(row pgx.Row) (*models.Position, error) {
	var p models.Position
	err := row.Scan(
		&p.ID, &p.Symbol, &p.Mode, &p.Quantity, &p.AvgCost, &p.CostBasis,
		&p.Momentum, &p.OpenedAt, &p.Status, &p.CurrentPrice, &p.ProfitLoss,
		&p.ProfitLossPct,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
