package models

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade — append-only запись исполненной сделки. После создания не мутируется,
// это система учёта реализованного P&L.
type Trade struct {
	ID            int64
	Symbol        string
	Side          Side
	Price         float64
	Quantity      int64
	Amount        float64
	Mode          Mode
	Momentum      float64 // momentum на входе (для BUY)
	ExecutedAt    time.Time
	BrokerOrderID string
	Outcome       string // для SELL: "P&L: $X (Y%)"
}

// OrderResult — ответ брокера на submit_order.
type OrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// TradeResult — итог execute_buy / execute_sell для вызывающего.
type TradeResult struct {
	Success    bool
	Message    string
	Quantity   int64
	Price      float64
	Cost       float64
	ProfitLoss float64
}
