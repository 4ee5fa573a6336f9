package service

import (
	"context"
	"quant_trader/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS positions (
		id              BIGSERIAL PRIMARY KEY,
		symbol          TEXT NOT NULL,
		mode            TEXT NOT NULL,
		quantity        BIGINT NOT NULL DEFAULT 0,
		avg_cost        DOUBLE PRECISION NOT NULL DEFAULT 0,
		cost_basis      DOUBLE PRECISION NOT NULL DEFAULT 0,
		momentum        DOUBLE PRECISION NOT NULL DEFAULT 0,
		opened_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		status          TEXT NOT NULL DEFAULT 'HOLDING',
		current_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
		profit_loss     DOUBLE PRECISION NOT NULL DEFAULT 0,
		profit_loss_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
		UNIQUE (symbol, mode)
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id              BIGSERIAL PRIMARY KEY,
		symbol          TEXT NOT NULL,
		side            TEXT NOT NULL,
		price           DOUBLE PRECISION NOT NULL,
		quantity        BIGINT NOT NULL,
		amount          DOUBLE PRECISION NOT NULL,
		mode            TEXT NOT NULL,
		momentum        DOUBLE PRECISION NOT NULL DEFAULT 0,
		executed_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		broker_order_id TEXT NOT NULL DEFAULT '',
		outcome         TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS trades_mode_day_idx ON trades (mode, executed_at)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		symbol           TEXT NOT NULL,
		as_of_date       DATE NOT NULL,
		score            DOUBLE PRECISION NOT NULL DEFAULT 0,
		technical_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
		advisor_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
		predicted_return DOUBLE PRECISION NOT NULL DEFAULT 0,
		confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
		recommendation   TEXT NOT NULL DEFAULT 'hold',
		analysis         TEXT NOT NULL DEFAULT '',
		source           TEXT NOT NULL DEFAULT 'technical',
		indicators       JSONB,
		realized_return  DOUBLE PRECISION,
		PRIMARY KEY (symbol, as_of_date)
	)`,
	`CREATE TABLE IF NOT EXISTS system_params (
		param_key   TEXT PRIMARY KEY,
		param_value TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS bar_cache (
		symbol     TEXT NOT NULL,
		trade_date DATE NOT NULL,
		open       DOUBLE PRECISION NOT NULL,
		high       DOUBLE PRECISION NOT NULL,
		low        DOUBLE PRECISION NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		volume     BIGINT NOT NULL DEFAULT 0,
		change_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, trade_date)
	)`,
}

// EnsureSchema накатывает таблицы движка. Идемпотентно, зовётся на старте.
func EnsureSchema(ctx context.Context, mgr *db.PgTxManager) error {
	return mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return errors.Wrap(err, "ensure schema")
			}
		}
		return nil
	})
}
