package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"quant_trader/internal/models"
	"quant_trader/internal/modules/config"

	"github.com/bytedance/sonic"
)

// Advisor — внешний советник по символу. Реализации обязаны быть
// всепрощающими: любая ошибка схлопывается в NeutralOpinion,
// наружу ошибки не выходят. Ненастроенный советник (Configured()==false)
// не участвует в гибридной оценке вовсе.
type Advisor interface {
	Analyze(ctx context.Context, symbol string, bars []models.Bar, ind models.TechnicalIndicators) models.AdvisorOpinion
	Configured() bool
}

// ChatAdvisor — советник поверх chat-completions API.
// Ответ прогоняется через многоуровневый парсер (см. parser.go),
// результат кэшируется на (symbol, календарный день).
type ChatAdvisor struct {
	cfg   *config.Config
	http  *http.Client
	cache *opinionCache
}

func NewChatAdvisor(cfg *config.Config) *ChatAdvisor {
	return &ChatAdvisor{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Advisor.Timeout},
		cache: newOpinionCache(),
	}
}

func (a *ChatAdvisor) Configured() bool {
	return a.cfg.Advisor.APIKey != ""
}

func (a *ChatAdvisor) Analyze(ctx context.Context, symbol string, bars []models.Bar, ind models.TechnicalIndicators) models.AdvisorOpinion {
	if !a.Configured() {
		return models.NeutralOpinion()
	}

	if op, ok := a.cache.get(symbol); ok {
		return op
	}

	op, err := a.analyze(ctx, symbol, bars, ind)
	if err != nil {
		log.Printf("[ADVISOR] %s analyze failed: %v", symbol, err)
		return models.NeutralOpinion()
	}

	a.cache.put(symbol, op)
	return op
}

func (a *ChatAdvisor) analyze(ctx context.Context, symbol string, bars []models.Bar, ind models.TechnicalIndicators) (models.AdvisorOpinion, error) {
	prompt := buildPrompt(symbol, bars, ind)

	body, err := sonic.Marshal(map[string]any{
		"model": a.cfg.Advisor.Model,
		"messages": []map[string]string{
			{"role": "system", "content": "You are a professional quantitative trading analyst. Answer in JSON."},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  800,
		"temperature": 0.3,
	})
	if err != nil {
		return models.AdvisorOpinion{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.Advisor.APIBase+"/chat/completions", strings.NewReader(string(body)))
	if err != nil {
		return models.AdvisorOpinion{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.Advisor.APIKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return models.AdvisorOpinion{}, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return models.AdvisorOpinion{}, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	var env struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := sonic.Unmarshal(data, &env); err != nil {
		return models.AdvisorOpinion{}, fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Choices) == 0 {
		return models.AdvisorOpinion{}, fmt.Errorf("empty choices")
	}

	parsed := ParseOpinion(env.Choices[0].Message.Content)
	if parsed.Status == Unparseable {
		log.Printf("[ADVISOR] %s unparseable response, using neutral", symbol)
	}
	return parsed.Opinion, nil
}

// buildPrompt — последние 10 закрытий и снимок индикаторов.
func buildPrompt(symbol string, bars []models.Bar, ind models.TechnicalIndicators) string {
	recent := bars
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a professional stock analyst. Analyze the short-term outlook for this US stock and give a buy recommendation.\n\n")
	fmt.Fprintf(&sb, "Symbol: %s\n\nLast %d daily closes:\n", symbol, len(recent))
	for _, b := range recent {
		fmt.Fprintf(&sb, "%s: $%.2f (%+.2f%%)\n", b.Date.Format("2006-01-02"), b.Close, b.ChangePct)
	}
	fmt.Fprintf(&sb, "\nTechnical indicators:\n")
	fmt.Fprintf(&sb, "- RSI(14): %.2f\n", ind.RSI)
	fmt.Fprintf(&sb, "- MACD signal: %.4f\n", ind.MACDSignal)
	fmt.Fprintf(&sb, "- MA trend: %.4f\n", ind.MATrend)
	fmt.Fprintf(&sb, "- Volatility (ATR%%): %.2f\n", ind.Volatility)
	fmt.Fprintf(&sb, "- 10-day momentum: %.2f%%\n", ind.Momentum)
	fmt.Fprintf(&sb, "\nAnswer in JSON:\n")
	fmt.Fprintf(&sb, `{"score": 0-100, "recommendation": "buy"|"hold"|"sell", "confidence": 0-1, "reasons": ["...", "..."], "predicted_change": pct}`)
	fmt.Fprintf(&sb, "\n\nReturn JSON only.")
	return sb.String()
}
