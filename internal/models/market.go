package models

import "time"

// Quote — срез realtime-котировки от брокера.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Bar — дневная (или внутридневная) свеча.
type Bar struct {
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	ChangePct float64   `json:"change_pct"`
}

// PriceSample — неизменяемая точка истории для расчёта momentum.
type PriceSample struct {
	Symbol    string
	Timestamp time.Time
	Price     float64
	ChangePct float64
}

// Balance — сводный остаток по счёту.
type Balance struct {
	TotalCash     float64 `json:"total_cash"`
	AvailableCash float64 `json:"available_cash"`
	NetAssets     float64 `json:"net_assets"`
	Currency      string  `json:"currency"`
}

// BrokerPosition — позиция, как её видит брокер (для сверки с леджером).
type BrokerPosition struct {
	Symbol      string  `json:"symbol"`
	Quantity    int64   `json:"quantity"`
	CostPrice   float64 `json:"cost_price"`
	MarketValue float64 `json:"market_value"`
}
