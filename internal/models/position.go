package models

import "time"

type PositionStatus string

const (
	StatusHolding PositionStatus = "HOLDING"
	StatusSold    PositionStatus = "SOLD"
)

// Position — запись леджера. Уникальный ключ (Symbol, Mode).
// Инвариант: CostBasis == AvgCost * Quantity после любой мутации.
type Position struct {
	ID        int64
	Symbol    string
	Mode      Mode
	Quantity  int64
	AvgCost   float64 // средневзвешенная цена покупки
	CostBasis float64 // суммарная стоимость набора
	Momentum  float64 // momentum на момент последней покупки
	OpenedAt  time.Time
	Status    PositionStatus

	// заполняется при закрытии
	CurrentPrice  float64
	ProfitLoss    float64
	ProfitLossPct float64
}

func (p *Position) Open() bool {
	return p != nil && p.Quantity > 0 && p.Status == StatusHolding
}
