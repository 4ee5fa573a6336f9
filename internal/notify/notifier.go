package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"quant_trader/internal/models"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// LedgerProvider — источник данных для команд /positions и /trades.
type LedgerProvider interface {
	Positions(ctx context.Context, mode models.Mode) ([]*models.Position, error)
	RecentTrades(ctx context.Context, mode models.Mode, limit int) ([]*models.Trade, error)
}

// Telegram — пассивный нотифайер сделок и прогнозов + команды /positions и /trades.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	ledger LedgerProvider
	mode   models.Mode
}

func NewTelegram(token string, chatID int64, ledger LedgerProvider, mode models.Mode) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID, ledger: ledger, mode: mode}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// /positions — открытые позиции текущего режима
func (t *Telegram) handlePositions(ctx context.Context) {
	positions, err := t.ledger.Positions(ctx, t.mode)
	if err != nil {
		t.Sendf("❗️ Ошибка получения позиций: %v", err)
		return
	}
	if len(positions) == 0 {
		t.Send("📭 Открытых позиций нет")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Открытые позиции [%s]:\n", t.mode)
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s qty=%d @ $%.2f basis=$%.2f\n",
			p.Symbol, p.Quantity, p.AvgCost, p.CostBasis)
	}
	t.Send(b.String())
}

// /trades — последние сделки текущего режима
func (t *Telegram) handleTrades(ctx context.Context) {
	trades, err := t.ledger.RecentTrades(ctx, t.mode, 10)
	if err != nil {
		t.Sendf("❗️ Ошибка получения сделок: %v", err)
		return
	}
	if len(trades) == 0 {
		t.Send("📭 Сделок ещё не было")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🧾 Последние сделки [%s]:\n", t.mode)
	for _, tr := range trades {
		line := fmt.Sprintf("- %s %s x %d @ $%.2f", tr.Side, tr.Symbol, tr.Quantity, tr.Price)
		if tr.Outcome != "" {
			line += " — " + tr.Outcome
		}
		b.WriteString(line + "\n")
	}
	t.Send(b.String())
}

// Start: long-polling только для команд в нашем чате.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "positions":
					t.handlePositions(ctx)
				case "trades":
					t.handleTrades(ctx)
				}
			}
		}
	}()
	return nil
}

// Stdout — заглушка, когда токен не задан.
type Stdout struct{}

func (Stdout) Send(msg string) { log.Printf("[NOTIFY] %s", msg) }

func (s Stdout) Sendf(format string, args ...any) { s.Send(fmt.Sprintf(format, args...)) }
