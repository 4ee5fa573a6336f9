package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quant_trader/internal/models"
	"quant_trader/pkg/logger"

	"github.com/bytedance/sonic"
)

const quoteBatchSize = 20

// RealtimeQuotes — реальные котировки пачками по 20 символов,
// каждый батч через лимитер. Недоступный брокер — пустой срез, не ошибка
// скоринга.
func (c *Client) RealtimeQuotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	if !c.connected {
		return nil, nil
	}

	normalized := make([]string, 0, len(symbols))
	// нормализованный -> исходный, наружу отдаём исходный формат
	symbolMap := make(map[string]string, len(symbols))
	for _, s := range symbols {
		n := NormalizeSymbol(s)
		normalized = append(normalized, n)
		symbolMap[n] = s
	}

	var all []models.Quote
	for i := 0; i < len(normalized); i += quoteBatchSize {
		end := i + quoteBatchSize
		if end > len(normalized) {
			end = len(normalized)
		}
		batch := normalized[i:end]

		if err := c.limiter.Wait(ctx); err != nil {
			return all, err
		}

		quotes, err := c.quoteBatch(ctx, batch, symbolMap)
		if err != nil {
			logger.Error("quote batch failed: %v", err)
			// частичный результат полезнее пустого
			continue
		}
		all = append(all, quotes...)
	}
	return all, nil
}

func (c *Client) quoteBatch(ctx context.Context, batch []string, symbolMap map[string]string) ([]models.Quote, error) {
	requestPath := "/v1/quote/real-time?symbols=" + url.QueryEscape(strings.Join(batch, ","))

	req, err := c.generateRequest(ctx, http.MethodGet, requestPath, "")
	if err != nil {
		return nil, fmt.Errorf("RealtimeQuotes new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RealtimeQuotes do: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("RealtimeQuotes http %d: %s", resp.StatusCode, string(data))
	}

	var r struct {
		Code int    `json:"code"`
		Msg  string `json:"message"`
		Data struct {
			List []struct {
				Symbol    string  `json:"symbol"`
				LastDone  float64 `json:"last_done,string"`
				PrevClose float64 `json:"prev_close,string"`
				Volume    int64   `json:"volume"`
			} `json:"secu_quote"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("RealtimeQuotes decode: %w; body=%s", err, string(data))
	}
	if r.Code != 0 {
		return nil, fmt.Errorf("RealtimeQuotes error: code=%d msg=%s", r.Code, r.Msg)
	}

	res := make([]models.Quote, 0, len(r.Data.List))
	now := time.Now()
	for _, q := range r.Data.List {
		changePct := 0.0
		if q.PrevClose > 0 {
			changePct = (q.LastDone - q.PrevClose) / q.PrevClose * 100
		}

		symbol := q.Symbol
		if orig, ok := symbolMap[q.Symbol]; ok {
			symbol = orig
		}

		res = append(res, models.Quote{
			Symbol:    symbol,
			Price:     q.LastDone,
			ChangePct: changePct,
			Volume:    q.Volume,
			Timestamp: now,
		})
	}
	return res, nil
}
