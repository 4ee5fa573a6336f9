package service

import (
	"context"
	"quant_trader/internal/models"
)

// Broker — внешняя способность: котировки, свечи, ордера, баланс.
// Движок терпит недоступность брокера: реализации возвращают
// нейтральный/нулевой ответ вместо фатальной ошибки.
type Broker interface {
	Connect(ctx context.Context) error
	RealtimeQuotes(ctx context.Context, symbols []string) ([]models.Quote, error)
	Bars(ctx context.Context, symbol string, period string, count int) ([]models.Bar, error)
	SubmitOrder(ctx context.Context, symbol string, side models.Side, quantity int64, orderType string, price float64) (models.OrderResult, error)
	Positions(ctx context.Context) ([]models.BrokerPosition, error)
	Balance(ctx context.Context) (models.Balance, error)
}

// Brokers — выбор брокера по режиму. SIMULATED всегда ходит в бумажный
// брокер, LIVE — в реальный клиент. Никогда не пересекаются.
type Brokers struct {
	live  Broker
	paper *Paper
}

func NewBrokers(live *Client, paper *Paper) *Brokers {
	return &Brokers{live: live, paper: paper}
}

func (b *Brokers) ForMode(mode models.Mode) Broker {
	if mode == models.ModeLive {
		return b.live
	}
	return b.paper
}

// Paper даёт доступ к бумажному менеджеру цен (для пиновки цены при покупке).
func (b *Brokers) PaperBroker() *Paper { return b.paper }

// LiveClient — прямой доступ к реальному клиенту, нужен для push-потока
// котировок (WebSocket есть только у живого брокера).
func (b *Brokers) LiveClient() *Client {
	c, _ := b.live.(*Client)
	return c
}
