package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"quant_trader/internal/models"
)

const (
	paperTickInterval = 5 * time.Second
	paperMaxDeviation = 0.1 // ±10% от базовой цены
)

// стартовые базовые цены для известных тикеров; незнакомые получают
// случайную базу в диапазоне 50..500
var paperBasePrices = map[string]float64{
	"AAPL": 175.0, "GOOGL": 140.0, "MSFT": 380.0, "AMZN": 180.0,
	"NVDA": 880.0, "META": 500.0, "TSLA": 250.0, "AMD": 160.0,
	"NFLX": 600.0, "INTC": 45.0, "CRM": 280.0, "ORCL": 120.0,
	"PLTR": 22.0, "COIN": 230.0, "UBER": 75.0, "ABNB": 150.0,
}

type paperPrice struct {
	price      float64
	basePrice  float64
	trend      float64 // +1 или -1
	lastUpdate time.Time
}

// Paper — бумажный брокер: случайное блуждание цены с трендом,
// мгновенные исполнения, синтетические свечи. Режим SIMULATED
// никогда не ходит во внешний API.
type Paper struct {
	mu     sync.Mutex
	prices map[string]*paperPrice
	rnd    *rand.Rand
	now    func() time.Time
}

func NewPaper() *Paper {
	return &Paper{
		prices: make(map[string]*paperPrice),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

func (p *Paper) Connect(_ context.Context) error { return nil }

// price — текущая цена и отклонение от базы. Шаг блуждания раз в 5 секунд:
// ±0.5% плюс трендовая добавка, кламп в пределах ±10% от базы.
func (p *Paper) price(symbol string) (float64, float64) {
	now := p.now()

	data, ok := p.prices[symbol]
	if !ok {
		base, known := paperBasePrices[symbol]
		if !known {
			base = 50 + p.rnd.Float64()*450
		}
		data = &paperPrice{
			price:      base,
			basePrice:  base,
			trend:      float64(p.rnd.Intn(2)*2 - 1),
			lastUpdate: now,
		}
		p.prices[symbol] = data
	}

	if now.Sub(data.lastUpdate) >= paperTickInterval {
		change := (p.rnd.Float64()*2 - 1) * 0.005
		change += data.trend * p.rnd.Float64() * 0.002

		newPrice := data.price * (1 + change)
		minPrice := data.basePrice * (1 - paperMaxDeviation)
		maxPrice := data.basePrice * (1 + paperMaxDeviation)
		newPrice = math.Max(minPrice, math.Min(maxPrice, newPrice))

		data.price = newPrice
		data.lastUpdate = now

		if p.rnd.Float64() < 0.1 {
			data.trend = -data.trend
		}
	}

	changePct := (data.price - data.basePrice) / data.basePrice * 100
	return round2(data.price), round2(changePct)
}

// SetPrice — пиновка цены (лок цены исполнения при покупке). База тоже
// переустанавливается, чтобы блуждание продолжалось от цены входа.
func (p *Paper) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, ok := p.prices[symbol]
	if !ok {
		p.prices[symbol] = &paperPrice{
			price:      price,
			basePrice:  price,
			trend:      float64(p.rnd.Intn(2)*2 - 1),
			lastUpdate: p.now(),
		}
		return
	}
	data.price = price
	data.lastUpdate = p.now()
}

func (p *Paper) RealtimeQuotes(_ context.Context, symbols []string) ([]models.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := make([]models.Quote, 0, len(symbols))
	for _, s := range symbols {
		price, changePct := p.price(s)
		res = append(res, models.Quote{
			Symbol:    s,
			Price:     price,
			ChangePct: changePct,
			Volume:    int64(1_000_000 + p.rnd.Intn(9_000_000)),
			Timestamp: p.now(),
		})
	}
	return res, nil
}

// Bars — синтетическая дневная история: блуждание ±3% в день от текущей цены.
func (p *Paper) Bars(_ context.Context, symbol string, _ string, count int) ([]models.Bar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if count <= 0 {
		return nil, nil
	}

	base, _ := p.price(symbol)
	now := p.now()

	res := make([]models.Bar, 0, count)
	for i := 0; i < count; i++ {
		date := now.AddDate(0, 0, -(count - i - 1))
		dailyChange := (p.rnd.Float64()*2 - 1) * 0.03
		base = base * (1 + dailyChange)

		high := base * (1 + p.rnd.Float64()*0.02)
		low := base * (1 - p.rnd.Float64()*0.02)
		open := low + p.rnd.Float64()*(high-low)
		closep := low + p.rnd.Float64()*(high-low)

		res = append(res, models.Bar{
			Date:      date.Truncate(24 * time.Hour),
			Open:      round2(open),
			High:      round2(high),
			Low:       round2(low),
			Close:     round2(closep),
			Volume:    int64(1_000_000 + p.rnd.Intn(49_000_000)),
			ChangePct: round2(dailyChange * 100),
		})
	}
	return res, nil
}

// SubmitOrder — мгновенное «исполнение» с синтетическим order id.
func (p *Paper) SubmitOrder(_ context.Context, symbol string, side models.Side, quantity int64, _ string, _ float64) (models.OrderResult, error) {
	if quantity <= 0 {
		return models.OrderResult{Success: false, Message: "invalid quantity"}, nil
	}
	return models.OrderResult{
		Success: true,
		OrderID: "SIM_" + p.now().Format("20060102150405"),
		Message: fmt.Sprintf("simulated %s %s x%d", side, symbol, quantity),
	}, nil
}

// Positions — бумажный брокер не ведёт собственный учёт позиций,
// источник правды — леджер.
func (p *Paper) Positions(_ context.Context) ([]models.BrokerPosition, error) {
	return nil, nil
}

func (p *Paper) Balance(_ context.Context) (models.Balance, error) {
	return models.Balance{
		TotalCash:     1_000_000,
		AvailableCash: 1_000_000,
		NetAssets:     1_000_000,
		Currency:      "USD",
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
