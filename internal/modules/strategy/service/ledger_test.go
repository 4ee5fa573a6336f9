package service

import (
	"context"
	"testing"
	"time"

	"quant_trader/internal/models"
	brokersvc "quant_trader/internal/modules/broker/service"
	"quant_trader/internal/modules/config"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTxManager struct{}

func (fakeTxManager) RunMaster(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return fn(ctx, nil)
}

type fakePositions struct {
	byKey map[string]*models.Position
}

func newFakePositions() *fakePositions {
	return &fakePositions{byKey: make(map[string]*models.Position)}
}

func key(symbol string, mode models.Mode) string { return symbol + "|" + string(mode) }

func (f *fakePositions) GetBySymbol(_ context.Context, _ pgx.Tx, symbol string, mode models.Mode) (*models.Position, error) {
	p, ok := f.byKey[key(symbol, mode)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePositions) ListOpen(_ context.Context, _ pgx.Tx, mode models.Mode) ([]*models.Position, error) {
	var res []*models.Position
	for _, p := range f.byKey {
		if p.Mode == mode && p.Quantity > 0 {
			cp := *p
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (f *fakePositions) CountOpen(_ context.Context, _ pgx.Tx, mode models.Mode) (int, error) {
	cnt := 0
	for _, p := range f.byKey {
		if p.Mode == mode && p.Quantity > 0 {
			cnt++
		}
	}
	return cnt, nil
}

func (f *fakePositions) Upsert(_ context.Context, _ pgx.Tx, p *models.Position) error {
	cp := *p
	f.byKey[key(p.Symbol, p.Mode)] = &cp
	return nil
}

type fakeTrades struct {
	trades []*models.Trade
}

func (f *fakeTrades) Insert(_ context.Context, _ pgx.Tx, t *models.Trade) error {
	cp := *t
	f.trades = append(f.trades, &cp)
	return nil
}

func (f *fakeTrades) CountBuysSince(_ context.Context, _ pgx.Tx, mode models.Mode, since time.Time) (int, error) {
	cnt := 0
	for _, t := range f.trades {
		if t.Mode == mode && t.Side == models.SideBuy && !t.ExecutedAt.Before(since) {
			cnt++
		}
	}
	return cnt, nil
}

func (f *fakeTrades) ListRecent(_ context.Context, _ pgx.Tx, mode models.Mode, limit int) ([]*models.Trade, error) {
	var res []*models.Trade
	for i := len(f.trades) - 1; i >= 0 && (limit <= 0 || len(res) < limit); i-- {
		if f.trades[i].Mode == mode {
			res = append(res, f.trades[i])
		}
	}
	return res, nil
}

func newTestLedger() (*Ledger, *fakePositions, *fakeTrades) {
	fp := newFakePositions()
	ft := &fakeTrades{}
	l := &Ledger{
		mgr:       fakeTxManager{},
		positions: fp,
		trades:    ft,
		params:    config.NewParams(),
		brokers:   brokersvc.NewBrokers(nil, brokersvc.NewPaper()),
		now:       func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) },
	}
	return l, fp, ft
}

func TestCheckBuySignalThresholds(t *testing.T) {
	l, _, _ := newTestLedger()
	ctx := context.Background()

	// momentum > 0.5 и change > 1.0 — сигнал
	ok, err := l.CheckBuySignal(ctx, models.ModeSimulated, "AAPL", 175, 1.5, 0.6)
	require.NoError(t, err)
	assert.True(t, ok)

	// пороговые значения не включительно
	ok, _ = l.CheckBuySignal(ctx, models.ModeSimulated, "AAPL", 175, 1.0, 0.6)
	assert.False(t, ok)
	ok, _ = l.CheckBuySignal(ctx, models.ModeSimulated, "AAPL", 175, 1.5, 0.5)
	assert.False(t, ok)

	// нулевая цена — сразу нет
	ok, _ = l.CheckBuySignal(ctx, models.ModeSimulated, "AAPL", 0, 1.5, 0.6)
	assert.False(t, ok)
}

func TestCheckBuySignalHeldAndLimit(t *testing.T) {
	l, fp, _ := newTestLedger()
	ctx := context.Background()

	fp.byKey[key("AAPL", models.ModeSimulated)] = &models.Position{
		Symbol: "AAPL", Mode: models.ModeSimulated, Quantity: 100, Status: models.StatusHolding,
	}

	// уже держим этот символ
	ok, err := l.CheckBuySignal(ctx, models.ModeSimulated, "AAPL", 175, 1.5, 0.6)
	require.NoError(t, err)
	assert.False(t, ok)

	// лимит max_concurrent_positions=1 исчерпан и для другого символа
	ok, _ = l.CheckBuySignal(ctx, models.ModeSimulated, "TSLA", 250, 1.5, 0.6)
	assert.False(t, ok)

	// но LIVE-вселенная изолирована от SIMULATED
	ok, _ = l.CheckBuySignal(ctx, models.ModeLive, "TSLA", 250, 1.5, 0.6)
	assert.True(t, ok)
}

func TestCheckSellSignalBoundary(t *testing.T) {
	l, _, _ := newTestLedger()

	pos := &models.Position{
		Symbol: "AAPL", Mode: models.ModeSimulated,
		Quantity: 100, AvgCost: 100, CostBasis: 10000, Status: models.StatusHolding,
	}

	// profit_target_pct = 1.0: ровно на границе — продаём
	assert.True(t, l.CheckSellSignal("AAPL", 101.0, pos))
	// чуть ниже границы — держим
	assert.False(t, l.CheckSellSignal("AAPL", 100.9999, pos))
	// закрытая позиция не продаётся
	sold := &models.Position{Symbol: "AAPL", Quantity: 0, AvgCost: 100, Status: models.StatusSold}
	assert.False(t, l.CheckSellSignal("AAPL", 200, sold))
}

func TestExecuteBuyCreatesPosition(t *testing.T) {
	l, fp, ft := newTestLedger()
	ctx := context.Background()

	// buy_amount=200000, price=175 -> 1142 штуки
	res := l.ExecuteBuy(ctx, models.ModeSimulated, "AAPL", 175, 0.8)
	require.True(t, res.Success)
	assert.Equal(t, int64(1142), res.Quantity)
	assert.InDelta(t, 175*1142, res.Cost, 1e-6)

	pos := fp.byKey[key("AAPL", models.ModeSimulated)]
	require.NotNil(t, pos)
	assert.Equal(t, models.StatusHolding, pos.Status)
	assert.Equal(t, 175.0, pos.AvgCost)
	assert.InDelta(t, pos.AvgCost*float64(pos.Quantity), pos.CostBasis, 1e-6)

	require.Len(t, ft.trades, 1)
	assert.Equal(t, models.SideBuy, ft.trades[0].Side)
	assert.Equal(t, 0.8, ft.trades[0].Momentum)
	assert.NotEmpty(t, ft.trades[0].BrokerOrderID)
}

func TestExecuteBuyAccumulatesWeightedAverage(t *testing.T) {
	l, fp, _ := newTestLedger()
	ctx := context.Background()

	require.True(t, l.ExecuteBuy(ctx, models.ModeSimulated, "AAPL", 100, 0).Success)
	require.True(t, l.ExecuteBuy(ctx, models.ModeSimulated, "AAPL", 101, 0).Success)

	pos := fp.byKey[key("AAPL", models.ModeSimulated)]
	require.NotNil(t, pos)

	// 2000 @ 100 + 1980 @ 101 -> средняя 100.497...
	assert.Equal(t, int64(2000+1980), pos.Quantity)
	wantAvg := (2000*100.0 + 1980*101.0) / float64(2000+1980)
	assert.InDelta(t, wantAvg, pos.AvgCost, 1e-9)
	// инвариант: cost_basis == avg * qty
	assert.InDelta(t, pos.AvgCost*float64(pos.Quantity), pos.CostBasis, 1e-6)
}

func TestExecuteBuyInsufficientQuantity(t *testing.T) {
	l, fp, ft := newTestLedger()

	res := l.ExecuteBuy(context.Background(), models.ModeSimulated, "BRK", 500000, 0)
	assert.False(t, res.Success)
	assert.Equal(t, "insufficient quantity", res.Message)
	assert.Empty(t, fp.byKey)
	assert.Empty(t, ft.trades)
}

func TestExecuteBuyInvalidPrice(t *testing.T) {
	l, _, ft := newTestLedger()

	res := l.ExecuteBuy(context.Background(), models.ModeSimulated, "AAPL", 0, 0)
	assert.False(t, res.Success)
	assert.Empty(t, ft.trades)
}

func TestExecuteSellClosesPosition(t *testing.T) {
	l, fp, ft := newTestLedger()
	ctx := context.Background()

	pos := &models.Position{
		Symbol: "AAPL", Mode: models.ModeSimulated,
		Quantity: 100, AvgCost: 100, CostBasis: 10000, Status: models.StatusHolding,
	}
	fp.byKey[key("AAPL", models.ModeSimulated)] = pos

	res := l.ExecuteSell(ctx, models.ModeSimulated, "AAPL", 102, pos)
	require.True(t, res.Success)
	assert.Equal(t, int64(100), res.Quantity)
	assert.InDelta(t, 200.0, res.ProfitLoss, 1e-9)

	closed := fp.byKey[key("AAPL", models.ModeSimulated)]
	assert.Equal(t, models.StatusSold, closed.Status)
	assert.Zero(t, closed.Quantity)
	assert.InDelta(t, 2.0, closed.ProfitLossPct, 1e-9)

	require.Len(t, ft.trades, 1)
	assert.Equal(t, models.SideSell, ft.trades[0].Side)
	assert.Equal(t, "P&L: $200.00 (2.00%)", ft.trades[0].Outcome)
}

func TestExecuteSellUsesFreshSnapshot(t *testing.T) {
	l, fp, ft := newTestLedger()
	ctx := context.Background()

	require.True(t, l.ExecuteBuy(ctx, models.ModeSimulated, "AAPL", 100, 1.0).Success)
	stale, err := fp.GetBySymbol(ctx, nil, "AAPL", models.ModeSimulated)
	require.NoError(t, err)
	require.EqualValues(t, 2000, stale.Quantity)

	// докупка после того, как вызывающий взял снимок
	require.True(t, l.ExecuteBuy(ctx, models.ModeSimulated, "AAPL", 101, 1.0).Success)

	res := l.ExecuteSell(ctx, models.ModeSimulated, "AAPL", 110, stale)
	require.True(t, res.Success)

	// закрывается свежий объём по свежей средней, не устаревшие 2000 @ $100
	assert.Equal(t, int64(3980), res.Quantity)
	assert.InDelta(t, 37820.0, res.ProfitLoss, 1e-6)

	closed := fp.byKey[key("AAPL", models.ModeSimulated)]
	assert.Zero(t, closed.Quantity)
	assert.Equal(t, models.StatusSold, closed.Status)

	sell := ft.trades[len(ft.trades)-1]
	assert.Equal(t, models.SideSell, sell.Side)
	assert.Equal(t, int64(3980), sell.Quantity)
	assert.Equal(t, "P&L: $37820.00 (9.46%)", sell.Outcome)
}

func TestExecuteSellPositionAlreadyClosed(t *testing.T) {
	l, fp, ft := newTestLedger()
	ctx := context.Background()

	stale := &models.Position{
		Symbol: "AAPL", Mode: models.ModeSimulated,
		Quantity: 100, AvgCost: 100, CostBasis: 10000, Status: models.StatusHolding,
	}
	fp.byKey[key("AAPL", models.ModeSimulated)] = &models.Position{
		Symbol: "AAPL", Mode: models.ModeSimulated,
		Quantity: 0, Status: models.StatusSold,
	}

	res := l.ExecuteSell(ctx, models.ModeSimulated, "AAPL", 110, stale)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "already closed")
	assert.Empty(t, ft.trades)
}

func TestExecuteSellNoPosition(t *testing.T) {
	l, _, ft := newTestLedger()

	res := l.ExecuteSell(context.Background(), models.ModeSimulated, "AAPL", 100, nil)
	assert.False(t, res.Success)
	assert.Equal(t, "no position to sell", res.Message)
	assert.Empty(t, ft.trades)
}

func TestModeIsolation(t *testing.T) {
	l, _, _ := newTestLedger()
	ctx := context.Background()

	require.True(t, l.ExecuteBuy(ctx, models.ModeSimulated, "AAPL", 100, 0).Success)

	simPositions, err := l.Positions(ctx, models.ModeSimulated)
	require.NoError(t, err)
	assert.Len(t, simPositions, 1)

	livePositions, err := l.Positions(ctx, models.ModeLive)
	require.NoError(t, err)
	assert.Empty(t, livePositions)
}

func TestBuysToday(t *testing.T) {
	l, _, ft := newTestLedger()
	ctx := context.Background()

	require.True(t, l.ExecuteBuy(ctx, models.ModeSimulated, "AAPL", 100, 0).Success)
	// вчерашняя сделка не считается
	ft.trades = append(ft.trades, &models.Trade{
		Mode: models.ModeSimulated, Side: models.SideBuy,
		ExecutedAt: time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC),
	})

	cnt, err := l.BuysToday(ctx, models.ModeSimulated)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
}
