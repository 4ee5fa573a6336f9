package service

import (
	"context"
	"fmt"
	"time"

	"quant_trader/internal/models"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

// Predictions implement db store
type Predictions struct{}

func NewPredictions() *Predictions { return &Predictions{} }

// Upsert — идемпотентная запись прогноза по ключу (symbol, as_of_date).
// Повторный прогон за тот же день перезаписывает значения.
func (s *Predictions) Upsert(ctx context.Context, tx pgx.Tx, p *models.Prediction) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Predictions.Upsert: %w", err)
		}
	}()

	var ind []byte
	ind, err = sonic.Marshal(p.Indicators)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO predictions
			(symbol, as_of_date, score, technical_score, advisor_score, predicted_return,
			 confidence, recommendation, analysis, source, indicators, realized_return)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (symbol, as_of_date) DO UPDATE SET
			score            = EXCLUDED.score,
			technical_score  = EXCLUDED.technical_score,
			advisor_score    = EXCLUDED.advisor_score,
			predicted_return = EXCLUDED.predicted_return,
			confidence       = EXCLUDED.confidence,
			recommendation   = EXCLUDED.recommendation,
			analysis         = EXCLUDED.analysis,
			source           = EXCLUDED.source,
			indicators       = EXCLUDED.indicators`,
		p.Symbol, p.AsOfDate, p.Score, p.TechnicalScore, p.AdvisorScore,
		p.PredictedReturn, p.Confidence, p.Recommendation, p.Analysis,
		p.Source, ind, p.RealizedReturn,
	)
	return err
}

// ListByDate — прогнозы на дату, лучшие первыми. limit <= 0 — без лимита.
func (s *Predictions) ListByDate(ctx context.Context, tx pgx.Tx, day time.Time, limit int) (res []*models.Prediction, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Predictions.ListByDate: %w", err)
		}
	}()

	rows, err := tx.Query(ctx, `
		SELECT symbol, as_of_date, score, technical_score, advisor_score, predicted_return,
		       confidence, recommendation, analysis, source, indicators, realized_return
		FROM predictions
		WHERE as_of_date = $1
		ORDER BY score DESC
		LIMIT NULLIF($2, 0)`,
		day, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Prediction
		var ind []byte
		if err := rows.Scan(
			&p.Symbol, &p.AsOfDate, &p.Score, &p.TechnicalScore, &p.AdvisorScore,
			&p.PredictedReturn, &p.Confidence, &p.Recommendation, &p.Analysis,
			&p.Source, &ind, &p.RealizedReturn,
		); err != nil {
			return nil, err
		}
		if len(ind) > 0 {
			if err := sonic.Unmarshal(ind, &p.Indicators); err != nil {
				return nil, err
			}
		}
		res = append(res, &p)
	}
	return res, rows.Err()
}

// SetRealizedReturn — бэкафилл фактической доходности прогноза.
func (s *Predictions) SetRealizedReturn(ctx context.Context, tx pgx.Tx, symbol string, day time.Time, realized float64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Predictions.SetRealizedReturn: %w", err)
		}
	}()

	_, err = tx.Exec(ctx, `
		UPDATE predictions SET realized_return = $1
		WHERE symbol = $2 AND as_of_date = $3`,
		realized, symbol, day,
	)
	return err
}
