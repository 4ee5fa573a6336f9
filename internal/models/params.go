package models

// SystemParameters — изменяемая конфигурация движка. Загружается на старте
// и по явному Reload; отсутствующие ключи заменяются дефолтами ниже.
type SystemParameters struct {
	ProfitTargetPct        float64 `mapstructure:"profit_target_pct"`
	BuyAmount              float64 `mapstructure:"buy_amount"`
	MaxConcurrentPositions int     `mapstructure:"max_concurrent_positions"`
	AdvisorWeight          float64 `mapstructure:"advisor_weight"`
	AdvisorEnabled         bool    `mapstructure:"advisor_enabled"`
	MinPredictionScore     float64 `mapstructure:"min_prediction_score"`
	MaxDailyTrades         int     `mapstructure:"max_daily_trades"`
	TrailingStopPct        float64 `mapstructure:"trailing_stop_pct"`
	MaxHoldDays            int     `mapstructure:"max_hold_days"`

	// Пороги входа. Исходные константы (momentum > 0.5, change > 1%)
	// подобраны эмпирически, поэтому выведены в конфигурацию.
	BuyMomentumThreshold float64 `mapstructure:"buy_momentum_threshold"`
	BuyChangeThreshold   float64 `mapstructure:"buy_change_threshold"`
}

// DefaultParameters — документированные дефолты.
func DefaultParameters() SystemParameters {
	return SystemParameters{
		ProfitTargetPct:        1.0,
		BuyAmount:              200000,
		MaxConcurrentPositions: 1,
		AdvisorWeight:          0.3,
		AdvisorEnabled:         false,
		MinPredictionScore:     60,
		MaxDailyTrades:         3,
		TrailingStopPct:        0.5,
		MaxHoldDays:            5,
		BuyMomentumThreshold:   0.5,
		BuyChangeThreshold:     1.0,
	}
}
