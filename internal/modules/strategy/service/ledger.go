package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"quant_trader/internal/models"
	brokersvc "quant_trader/internal/modules/broker/service"
	"quant_trader/internal/modules/config"
	storagesvc "quant_trader/internal/modules/storage/service"
	"quant_trader/pkg/db"

	"github.com/jackc/pgx/v5"
)

// узкие интерфейсы хранилища — ровно то, что нужно леджеру
type positionsRepo interface {
	GetBySymbol(ctx context.Context, tx pgx.Tx, symbol string, mode models.Mode) (*models.Position, error)
	ListOpen(ctx context.Context, tx pgx.Tx, mode models.Mode) ([]*models.Position, error)
	CountOpen(ctx context.Context, tx pgx.Tx, mode models.Mode) (int, error)
	Upsert(ctx context.Context, tx pgx.Tx, p *models.Position) error
}

type tradesRepo interface {
	Insert(ctx context.Context, tx pgx.Tx, t *models.Trade) error
	CountBuysSince(ctx context.Context, tx pgx.Tx, mode models.Mode, since time.Time) (int, error)
	ListRecent(ctx context.Context, tx pgx.Tx, mode models.Mode, limit int) ([]*models.Trade, error)
}

// Ledger — машина состояний позиции на ключе (symbol, mode):
// NONE -buy-> HOLDING -sell-> SOLD. Всё чтение и мутация идут через
// транзакции: докупка пересчитывает средневзвешенную цену от единого
// снимка прежней позиции.
type Ledger struct {
	mgr       db.TxManager
	positions positionsRepo
	trades    tradesRepo
	params    *config.Params
	brokers   *brokersvc.Brokers
	now       func() time.Time
}

func NewLedger(mgr *db.PgTxManager, positions *storagesvc.Positions, trades *storagesvc.Trades, params *config.Params, brokers *brokersvc.Brokers) *Ledger {
	return &Ledger{
		mgr:       mgr,
		positions: positions,
		trades:    trades,
		params:    params,
		brokers:   brokers,
		now:       time.Now,
	}
}

// CheckBuySignal — входной фильтр. Порядок проверок фиксирован:
// лимит одновременных позиций, уже держим, пороги momentum/изменения.
func (l *Ledger) CheckBuySignal(ctx context.Context, mode models.Mode, symbol string, price, changePct, momentum float64) (bool, error) {
	if price <= 0 {
		return false, nil
	}
	p := l.params.Snapshot()

	ok := false
	err := l.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		cnt, err := l.positions.CountOpen(ctx, tx, mode)
		if err != nil {
			return err
		}
		if cnt >= p.MaxConcurrentPositions {
			return nil
		}

		pos, err := l.positions.GetBySymbol(ctx, tx, symbol, mode)
		if err != nil {
			return err
		}
		if pos != nil && pos.Quantity > 0 {
			return nil
		}

		ok = momentum > p.BuyMomentumThreshold && changePct > p.BuyChangeThreshold
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("Ledger.CheckBuySignal: %w", err)
	}
	return ok, nil
}

// CheckSellSignal — достигнут ли профит-таргет от средневзвешенной цены.
func (l *Ledger) CheckSellSignal(symbol string, currentPrice float64, pos *models.Position) bool {
	if !pos.Open() || pos.AvgCost <= 0 || currentPrice <= 0 {
		return false
	}
	profitPct := (currentPrice - pos.AvgCost) / pos.AvgCost * 100
	target := l.params.Snapshot().ProfitTargetPct
	if profitPct >= target {
		log.Printf("[SELL] %s profit target hit: %.2f%% >= %.2f%%", symbol, profitPct, target)
		return true
	}
	return false
}

// ExecuteBuy — количество floor(buy_amount/price), ордер брокеру, затем
// в одной транзакции: запись Trade и создание/докупка позиции.
func (l *Ledger) ExecuteBuy(ctx context.Context, mode models.Mode, symbol string, price, momentum float64) models.TradeResult {
	if price <= 0 {
		return models.TradeResult{Success: false, Message: "invalid price"}
	}

	p := l.params.Snapshot()
	quantity := int64(p.BuyAmount / price)
	if quantity <= 0 {
		return models.TradeResult{Success: false, Message: "insufficient quantity"}
	}
	cost := price * float64(quantity)

	if mode == models.ModeSimulated {
		// пин цены исполнения, чтобы бумажная котировка не уехала от сделки
		l.brokers.PaperBroker().SetPrice(symbol, price)
	}

	order, err := l.brokers.ForMode(mode).SubmitOrder(ctx, symbol, models.SideBuy, quantity, "MARKET", price)
	if err != nil || !order.Success {
		msg := order.Message
		if msg == "" {
			msg = "order submit failed"
		}
		return models.TradeResult{Success: false, Message: msg}
	}

	err = l.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := l.trades.Insert(ctx, tx, &models.Trade{
			Symbol:        symbol,
			Side:          models.SideBuy,
			Price:         price,
			Quantity:      quantity,
			Amount:        cost,
			Mode:          mode,
			Momentum:      momentum,
			ExecutedAt:    l.now(),
			BrokerOrderID: order.OrderID,
		}); err != nil {
			return err
		}

		existing, err := l.positions.GetBySymbol(ctx, tx, symbol, mode)
		if err != nil {
			return err
		}

		if existing != nil && existing.Quantity > 0 {
			// докупка: средневзвешенная от единого снимка прежней позиции
			newQty := existing.Quantity + quantity
			newCost := existing.CostBasis + cost
			existing.Quantity = newQty
			existing.CostBasis = newCost
			existing.AvgCost = newCost / float64(newQty)
			existing.Momentum = momentum
			existing.Status = models.StatusHolding
			return l.positions.Upsert(ctx, tx, existing)
		}

		return l.positions.Upsert(ctx, tx, &models.Position{
			Symbol:    symbol,
			Mode:      mode,
			Quantity:  quantity,
			AvgCost:   price,
			CostBasis: cost,
			Momentum:  momentum,
			OpenedAt:  l.now(),
			Status:    models.StatusHolding,
		})
	})
	if err != nil {
		log.Printf("[BUY] %s ledger write failed: %v", symbol, err)
		return models.TradeResult{Success: false, Message: err.Error()}
	}

	log.Printf("[BUY] %s x %d @ $%.2f", symbol, quantity, price)
	return models.TradeResult{Success: true, Quantity: quantity, Price: price, Cost: cost}
}

// ExecuteSell — всегда весь объём. Позиция остаётся строкой со статусом
// SOLD и нулевым количеством, история сделок неизменяема.
func (l *Ledger) ExecuteSell(ctx context.Context, mode models.Mode, symbol string, price float64, pos *models.Position) models.TradeResult {
	if pos == nil || pos.Quantity <= 0 {
		return models.TradeResult{Success: false, Message: "no position to sell"}
	}
	if price <= 0 {
		return models.TradeResult{Success: false, Message: "invalid price"}
	}

	order, err := l.brokers.ForMode(mode).SubmitOrder(ctx, symbol, models.SideSell, pos.Quantity, "MARKET", price)
	if err != nil || !order.Success {
		msg := order.Message
		if msg == "" {
			msg = "order submit failed"
		}
		return models.TradeResult{Success: false, Message: msg}
	}

	var res models.TradeResult
	err = l.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// снимок вызывающего устарел на время ордера: конкурентная докупка
		// могла сдвинуть среднюю и объём, P&L считается от свежей строки
		fresh, err := l.positions.GetBySymbol(ctx, tx, symbol, mode)
		if err != nil {
			return err
		}
		if fresh == nil || fresh.Quantity <= 0 {
			return fmt.Errorf("position %s/%s already closed", symbol, mode)
		}

		quantity := fresh.Quantity
		amount := price * float64(quantity)
		profitLoss := (price - fresh.AvgCost) * float64(quantity)
		profitPct := 0.0
		if fresh.AvgCost > 0 {
			profitPct = (price - fresh.AvgCost) / fresh.AvgCost * 100
		}

		if err := l.trades.Insert(ctx, tx, &models.Trade{
			Symbol:        symbol,
			Side:          models.SideSell,
			Price:         price,
			Quantity:      quantity,
			Amount:        amount,
			Mode:          mode,
			ExecutedAt:    l.now(),
			BrokerOrderID: order.OrderID,
			Outcome:       fmt.Sprintf("P&L: $%.2f (%.2f%%)", profitLoss, profitPct),
		}); err != nil {
			return err
		}

		fresh.Quantity = 0
		fresh.Status = models.StatusSold
		fresh.CurrentPrice = price
		fresh.ProfitLoss = profitLoss
		fresh.ProfitLossPct = profitPct
		if err := l.positions.Upsert(ctx, tx, fresh); err != nil {
			return err
		}

		res = models.TradeResult{Success: true, Quantity: quantity, Price: price, ProfitLoss: profitLoss}
		return nil
	})
	if err != nil {
		log.Printf("[SELL] %s ledger write failed: %v", symbol, err)
		return models.TradeResult{Success: false, Message: err.Error()}
	}

	log.Printf("[SELL] %s x %d @ $%.2f, P&L $%.2f", symbol, res.Quantity, price, res.ProfitLoss)
	return res
}

// Positions — открытые позиции режима.
func (l *Ledger) Positions(ctx context.Context, mode models.Mode) ([]*models.Position, error) {
	var res []*models.Position
	err := l.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		res, err = l.positions.ListOpen(ctx, tx, mode)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Ledger.Positions: %w", err)
	}
	return res, nil
}

// RecentTrades — последние сделки режима, новые первыми.
func (l *Ledger) RecentTrades(ctx context.Context, mode models.Mode, limit int) ([]*models.Trade, error) {
	var res []*models.Trade
	err := l.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		res, err = l.trades.ListRecent(ctx, tx, mode, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Ledger.RecentTrades: %w", err)
	}
	return res, nil
}

// BuysToday — число покупок режима с начала календарного дня.
func (l *Ledger) BuysToday(ctx context.Context, mode models.Mode) (int, error) {
	y, m, d := l.now().Date()
	since := time.Date(y, m, d, 0, 0, 0, 0, l.now().Location())

	cnt := 0
	err := l.mgr.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		cnt, err = l.trades.CountBuysSince(ctx, tx, mode, since)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("Ledger.BuysToday: %w", err)
	}
	return cnt, nil
}
