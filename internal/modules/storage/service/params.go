package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SystemParams implement db store
type SystemParams struct{}

func NewSystemParams() *SystemParams { return &SystemParams{} }

// FetchAll — все пары ключ/значение.
func (s *SystemParams) FetchAll(ctx context.Context, tx pgx.Tx) (kv map[string]string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("SystemParams.FetchAll: %w", err)
		}
	}()

	rows, err := tx.Query(ctx, `SELECT param_key, param_value FROM system_params`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kv = make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		kv[k] = v
	}
	return kv, rows.Err()
}

// Upsert — запись значения параметра.
func (s *SystemParams) Upsert(ctx context.Context, tx pgx.Tx, key, value, description string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("SystemParams.Upsert: %w", err)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO system_params (param_key, param_value, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (param_key) DO UPDATE SET param_value = EXCLUDED.param_value`,
		key, value, description,
	)
	return err
}

// EnsureDefaults — добивает отсутствующие ключи дефолтами, существующие
// значения не трогает.
func (s *SystemParams) EnsureDefaults(ctx context.Context, tx pgx.Tx, defaults map[string]string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("SystemParams.EnsureDefaults: %w", err)
		}
	}()

	for k, v := range defaults {
		_, err = tx.Exec(ctx, `
			INSERT INTO system_params (param_key, param_value)
			VALUES ($1, $2)
			ON CONFLICT (param_key) DO NOTHING`,
			k, v,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
