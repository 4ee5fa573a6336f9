package service

import (
	"context"
	"log"
	"sync"
	"time"

	"quant_trader/internal/models"
	"quant_trader/internal/momentum"
	brokersvc "quant_trader/internal/modules/broker/service"
	"quant_trader/internal/modules/config"
	strategysvc "quant_trader/internal/modules/strategy/service"
	"quant_trader/internal/notify"
)

const (
	positionsInterval = 60 * time.Second
	quotesInterval    = 30 * time.Second
	entryIntervalSim  = 15 * time.Second
	entryIntervalLive = 45 * time.Second
)

// tradeLedger — операции леджера, нужные циклу мониторинга.
type tradeLedger interface {
	Positions(ctx context.Context, mode models.Mode) ([]*models.Position, error)
	CheckSellSignal(symbol string, currentPrice float64, pos *models.Position) bool
	ExecuteSell(ctx context.Context, mode models.Mode, symbol string, price float64, pos *models.Position) models.TradeResult
	CheckBuySignal(ctx context.Context, mode models.Mode, symbol string, price, changePct, momentum float64) (bool, error)
	ExecuteBuy(ctx context.Context, mode models.Mode, symbol string, price, momentum float64) models.TradeResult
	BuysToday(ctx context.Context, mode models.Mode) (int, error)
}

// Monitor — фоновый цикл наблюдения: обновляет кэши котировок и позиций,
// проверяет выходы по держимым символам и входы по лучшему momentum.
// Все мутирующие шаги идут через TaskQueue.
type Monitor struct {
	cfg      *config.Config
	params   *config.Params
	tracker  *momentum.Tracker
	brokers  *brokersvc.Brokers
	ledger   tradeLedger
	queue    *TaskQueue
	notifier notify.Notifier

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	mode     models.Mode
	quotes   map[string]models.Quote
	held     map[string]*models.Position
	peaks    map[string]float64 // максимум цены с момента открытия, для trailing stop
	lastTick time.Time

	// сериализация одиночных прогонов, когда очередь не запущена
	onceMu sync.Mutex
}

func NewMonitor(cfg *config.Config, params *config.Params, tracker *momentum.Tracker,
	brokers *brokersvc.Brokers, ledger *strategysvc.Ledger, queue *TaskQueue, notifier notify.Notifier) *Monitor {
	return &Monitor{
		cfg:      cfg,
		params:   params,
		tracker:  tracker,
		brokers:  brokers,
		ledger:   ledger,
		queue:    queue,
		notifier: notifier,
		quotes:   make(map[string]models.Quote),
		held:     make(map[string]*models.Position),
		peaks:    make(map[string]float64),
	}
}

// Start — идемпотентный запуск цикла в заданном режиме.
func (m *Monitor) Start(mode models.Mode) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mode = mode
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	m.queue.Start()
	go m.loop(ctx, mode)
	log.Printf("[MONITOR] started, mode=%s", mode)
}

// Stop гасит цикл и добивает очередь. Безопасен без предшествующего Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.queue.Stop()
	log.Printf("[MONITOR] stopped")
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastTick — время последнего обновления котировок (для health-проб).
func (m *Monitor) LastTick() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTick
}

func (m *Monitor) loop(ctx context.Context, mode models.Mode) {
	entryInterval := entryIntervalSim
	if mode == models.ModeLive {
		entryInterval = entryIntervalLive
	}

	positionsT := time.NewTicker(positionsInterval)
	quotesT := time.NewTicker(quotesInterval)
	entryT := time.NewTicker(entryInterval)
	defer positionsT.Stop()
	defer quotesT.Stop()
	defer entryT.Stop()

	// первичное наполнение кэшей, не дожидаясь первого тика
	m.queue.Enqueue("positions.refresh", func() { m.refreshPositions(ctx, mode) })
	m.queue.Enqueue("quotes.refresh", func() { m.refreshQuotes(ctx, mode) })

	// в LIVE между опросами котировки приходят push-потоком
	if mode == models.ModeLive {
		if client := m.brokers.LiveClient(); client != nil && client.Connected() {
			go m.consumeStream(ctx, client.StreamQuotes(ctx, m.cfg.Universe))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-positionsT.C:
			m.queue.Enqueue("positions.refresh", func() { m.refreshPositions(ctx, mode) })
		case <-quotesT.C:
			m.queue.Enqueue("quotes.refresh", func() { m.refreshQuotes(ctx, mode) })
		case <-entryT.C:
			m.queue.Enqueue("entry.check", func() { m.checkEntry(ctx, mode) })
		}
	}
}

// consumeStream вливает push-котировки в кэш и momentum-трекер.
// Проверки выхода остаются за тикерами: поток только освежает цены.
func (m *Monitor) consumeStream(ctx context.Context, quotes <-chan models.Quote) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-quotes:
			if !ok {
				return
			}
			m.mu.Lock()
			m.quotes[q.Symbol] = q
			m.lastTick = time.Now()
			m.mu.Unlock()
			m.tracker.Update(q.Symbol, q.Price, q.ChangePct)
		}
	}
}

// refreshPositions обновляет кэш открытых позиций; в LIVE дополнительно
// сверяет леджер с брокером и логирует расхождения.
func (m *Monitor) refreshPositions(ctx context.Context, mode models.Mode) {
	positions, err := m.ledger.Positions(ctx, mode)
	if err != nil {
		log.Printf("[MONITOR] positions refresh failed: %v", err)
		return
	}

	held := make(map[string]*models.Position, len(positions))
	for _, p := range positions {
		held[p.Symbol] = p
	}

	m.mu.Lock()
	m.held = held
	for sym := range m.peaks {
		if _, ok := held[sym]; !ok {
			delete(m.peaks, sym)
		}
	}
	m.mu.Unlock()

	if mode == models.ModeLive {
		m.reconcile(ctx, held)
	}
}

// reconcile — сверка количества с брокерским учётом. Расхождение не
// чинится автоматически, только сигналится.
func (m *Monitor) reconcile(ctx context.Context, held map[string]*models.Position) {
	brokerPositions, err := m.brokers.ForMode(models.ModeLive).Positions(ctx)
	if err != nil {
		log.Printf("[MONITOR] broker positions failed: %v", err)
		return
	}

	bySymbol := make(map[string]models.BrokerPosition, len(brokerPositions))
	for _, bp := range brokerPositions {
		bySymbol[bp.Symbol] = bp
	}

	for sym, p := range held {
		bp, ok := bySymbol[brokersvc.NormalizeSymbol(sym)]
		if !ok {
			log.Printf("[RECONCILE] %s held in ledger (qty=%d) but absent at broker", sym, p.Quantity)
			m.notifier.Sendf("⚠️ Расхождение: %s в леджере (qty=%d), у брокера нет", sym, p.Quantity)
			continue
		}
		if bp.Quantity != p.Quantity {
			log.Printf("[RECONCILE] %s qty mismatch: ledger=%d broker=%d", sym, p.Quantity, bp.Quantity)
			m.notifier.Sendf("⚠️ Расхождение по %s: леджер=%d, брокер=%d", sym, p.Quantity, bp.Quantity)
		}
	}
}

// refreshQuotes тянет котировки вселенной, кормит momentum-трекер
// и сразу прогоняет проверки выхода по держимым символам.
func (m *Monitor) refreshQuotes(ctx context.Context, mode models.Mode) {
	quotes, err := m.brokers.ForMode(mode).RealtimeQuotes(ctx, m.cfg.Universe)
	if err != nil {
		log.Printf("[MONITOR] quotes refresh failed: %v", err)
		return
	}
	if len(quotes) == 0 {
		return
	}

	m.mu.Lock()
	for _, q := range quotes {
		m.quotes[q.Symbol] = q
	}
	m.lastTick = time.Now()
	held := make(map[string]*models.Position, len(m.held))
	for k, v := range m.held {
		held[k] = v
	}
	m.mu.Unlock()

	for _, q := range quotes {
		m.tracker.Update(q.Symbol, q.Price, q.ChangePct)
	}

	for sym, pos := range held {
		q, ok := m.quoteFor(sym)
		if !ok {
			continue
		}
		m.checkExit(ctx, mode, sym, q.Price, pos)
	}
}

func (m *Monitor) quoteFor(symbol string) (models.Quote, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[symbol]
	return q, ok
}

// checkExit — три условия выхода в порядке приоритета: профит-таргет,
// trailing stop от пика, максимальный срок удержания.
func (m *Monitor) checkExit(ctx context.Context, mode models.Mode, symbol string, price float64, pos *models.Position) {
	if !pos.Open() || price <= 0 {
		return
	}

	m.mu.Lock()
	peak := m.peaks[symbol]
	if price > peak {
		peak = price
		m.peaks[symbol] = price
	}
	m.mu.Unlock()

	p := m.params.Snapshot()
	reason := ""

	switch {
	case m.ledger.CheckSellSignal(symbol, price, pos):
		reason = "profit target"
	case peak > pos.AvgCost && price < peak &&
		(peak-price)/peak*100 >= p.TrailingStopPct:
		reason = "trailing stop"
	case p.MaxHoldDays > 0 && time.Since(pos.OpenedAt) >= time.Duration(p.MaxHoldDays)*24*time.Hour:
		reason = "max hold period"
	default:
		return
	}

	log.Printf("[EXIT] %s @ $%.2f (%s)", symbol, price, reason)
	res := m.ledger.ExecuteSell(ctx, mode, symbol, price, pos)
	if !res.Success {
		log.Printf("[EXIT] %s sell failed: %s", symbol, res.Message)
		return
	}

	m.mu.Lock()
	delete(m.held, symbol)
	delete(m.peaks, symbol)
	m.mu.Unlock()

	m.notifier.Sendf("💰 Продажа %s x %d @ $%.2f (%s), P&L $%.2f",
		symbol, res.Quantity, res.Price, reason, res.ProfitLoss)
}

// checkEntry — вход по лучшему momentum среди недержимых символов,
// с учётом дневного лимита покупок.
func (m *Monitor) checkEntry(ctx context.Context, mode models.Mode) {
	p := m.params.Snapshot()

	buys, err := m.ledger.BuysToday(ctx, mode)
	if err != nil {
		log.Printf("[ENTRY] buys count failed: %v", err)
		return
	}
	if p.MaxDailyTrades > 0 && buys >= p.MaxDailyTrades {
		return
	}

	for _, e := range m.tracker.TopN(len(m.cfg.Universe)) {
		m.mu.Lock()
		_, alreadyHeld := m.held[e.Symbol]
		m.mu.Unlock()
		if alreadyHeld {
			continue
		}

		ok, err := m.ledger.CheckBuySignal(ctx, mode, e.Symbol, e.Price, e.ChangePct, e.Momentum)
		if err != nil {
			log.Printf("[ENTRY] %s signal check failed: %v", e.Symbol, err)
			return
		}
		if !ok {
			continue
		}

		res := m.ledger.ExecuteBuy(ctx, mode, e.Symbol, e.Price, e.Momentum)
		if !res.Success {
			log.Printf("[ENTRY] %s buy failed: %s", e.Symbol, res.Message)
			return
		}

		m.notifier.Sendf("🛒 Покупка %s x %d @ $%.2f (momentum %.4f)",
			e.Symbol, res.Quantity, res.Price, e.Momentum)

		// свежая позиция попадёт в кэш на следующем refresh, но выходы
		// должны видеть её сразу
		m.queue.Enqueue("positions.refresh", func() { m.refreshPositions(ctx, mode) })
		return
	}
}

// EvaluateAndTradeOnce — один синхронный цикл: котировки, выходы, вход.
// Если мониторинг запущен, прогон сериализуется через очередь; без неё —
// через onceMu, два конкурентных вызова не пересекаются на леджере.
func (m *Monitor) EvaluateAndTradeOnce(ctx context.Context, mode models.Mode) {
	run := func() {
		m.refreshPositions(ctx, mode)
		m.refreshQuotes(ctx, mode)
		m.checkEntry(ctx, mode)
	}

	if m.queue.Running() {
		done := make(chan struct{})
		if m.queue.Enqueue("evaluate.once", func() {
			defer close(done)
			run()
		}) {
			select {
			case <-done:
			case <-ctx.Done():
			}
			return
		}
	}

	m.onceMu.Lock()
	defer m.onceMu.Unlock()
	run()
}
