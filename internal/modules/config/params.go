package config

import (
	"strconv"
	"strings"
	"sync"

	"quant_trader/internal/models"
	"quant_trader/pkg/logger"

	"github.com/spf13/viper"
)

// Params — потокобезопасный держатель SystemParameters.
// Базовые значения: дефолты + опциональный configs/params.yaml (viper),
// поверх них — пары ключ/значение из БД (Apply). Движок никогда не
// блокируется на старте из-за кривой конфигурации: нечитаемые значения
// пропускаются с предупреждением.
type Params struct {
	mu  sync.RWMutex
	cur models.SystemParameters
}

func NewParams() *Params {
	v := viper.New()
	def := models.DefaultParameters()

	v.SetDefault("profit_target_pct", def.ProfitTargetPct)
	v.SetDefault("buy_amount", def.BuyAmount)
	v.SetDefault("max_concurrent_positions", def.MaxConcurrentPositions)
	v.SetDefault("advisor_weight", def.AdvisorWeight)
	v.SetDefault("advisor_enabled", def.AdvisorEnabled)
	v.SetDefault("min_prediction_score", def.MinPredictionScore)
	v.SetDefault("max_daily_trades", def.MaxDailyTrades)
	v.SetDefault("trailing_stop_pct", def.TrailingStopPct)
	v.SetDefault("max_hold_days", def.MaxHoldDays)
	v.SetDefault("buy_momentum_threshold", def.BuyMomentumThreshold)
	v.SetDefault("buy_change_threshold", def.BuyChangeThreshold)

	v.SetConfigName("params")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	if err := v.ReadInConfig(); err != nil {
		// файла может не быть — это нормально, работаем на дефолтах
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Warn("params file unreadable, using defaults: %v", err)
		}
	}

	p := &Params{}
	cur := def
	if err := v.Unmarshal(&cur); err != nil {
		logger.Warn("params unmarshal failed, using defaults: %v", err)
		cur = def
	}
	p.cur = cur
	return p
}

// Snapshot возвращает копию текущих параметров.
func (p *Params) Snapshot() models.SystemParameters {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cur
}

// Apply накладывает пары ключ/значение (обычно строки из system_params в БД)
// поверх текущих параметров. Неизвестные ключи и некорректные значения
// игнорируются.
func (p *Params) Apply(kv map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, raw := range kv {
		switch key {
		case "profit_target_pct":
			setFloat(&p.cur.ProfitTargetPct, key, raw)
		case "buy_amount":
			setFloat(&p.cur.BuyAmount, key, raw)
		case "max_concurrent_positions":
			setInt(&p.cur.MaxConcurrentPositions, key, raw)
		case "advisor_weight":
			setFloat(&p.cur.AdvisorWeight, key, raw)
		case "advisor_enabled":
			p.cur.AdvisorEnabled = parseBool(raw)
		case "min_prediction_score":
			setFloat(&p.cur.MinPredictionScore, key, raw)
		case "max_daily_trades":
			setInt(&p.cur.MaxDailyTrades, key, raw)
		case "trailing_stop_pct":
			setFloat(&p.cur.TrailingStopPct, key, raw)
		case "max_hold_days":
			setInt(&p.cur.MaxHoldDays, key, raw)
		case "buy_momentum_threshold":
			setFloat(&p.cur.BuyMomentumThreshold, key, raw)
		case "buy_change_threshold":
			setFloat(&p.cur.BuyChangeThreshold, key, raw)
		}
	}
}

func setFloat(dst *float64, key, raw string) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		logger.Warn("param %s: bad value %q, keeping %v", key, raw, *dst)
		return
	}
	*dst = f
}

func setInt(dst *int, key, raw string) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn("param %s: bad value %q, keeping %v", key, raw, *dst)
		return
	}
	*dst = n
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
