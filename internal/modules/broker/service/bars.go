package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"quant_trader/internal/models"

	"github.com/bytedance/sonic"
)

var periodMap = map[string]string{
	"1m": "min1", "5m": "min5", "15m": "min15", "30m": "min30",
	"60m": "min60", "1h": "min60",
	"day": "day", "1d": "day", "d": "day",
	"week": "week", "1w": "week", "w": "week",
	"month": "month", "1M": "month", "M": "month",
}

// Bars — исторические свечи. change_pct восстанавливаем по соседним
// закрытиям, брокер его не отдаёт.
func (c *Client) Bars(ctx context.Context, symbol string, period string, count int) ([]models.Bar, error) {
	if !c.connected {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	p, ok := periodMap[period]
	if !ok {
		p = "day"
	}

	requestPath := "/v1/quote/candlestick?symbol=" + url.QueryEscape(NormalizeSymbol(symbol)) +
		"&period=" + p + "&count=" + strconv.Itoa(count) + "&adjust_type=0"

	req, err := c.generateRequest(ctx, http.MethodGet, requestPath, "")
	if err != nil {
		return nil, fmt.Errorf("Bars new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Bars do: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("Bars http %d: %s", resp.StatusCode, string(data))
	}

	var r struct {
		Code int    `json:"code"`
		Msg  string `json:"message"`
		Data struct {
			Candlesticks []struct {
				Timestamp int64   `json:"timestamp"`
				Open      float64 `json:"open,string"`
				High      float64 `json:"high,string"`
				Low       float64 `json:"low,string"`
				Close     float64 `json:"close,string"`
				Volume    int64   `json:"volume"`
			} `json:"candlesticks"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("Bars decode: %w; body=%s", err, string(data))
	}
	if r.Code != 0 {
		return nil, fmt.Errorf("Bars error: code=%d msg=%s", r.Code, r.Msg)
	}

	res := make([]models.Bar, 0, len(r.Data.Candlesticks))
	for _, cs := range r.Data.Candlesticks {
		res = append(res, models.Bar{
			Date:   time.Unix(cs.Timestamp, 0),
			Open:   cs.Open,
			High:   cs.High,
			Low:    cs.Low,
			Close:  cs.Close,
			Volume: cs.Volume,
		})
	}

	for i := 1; i < len(res); i++ {
		prev := res[i-1].Close
		if prev > 0 {
			res[i].ChangePct = (res[i].Close - prev) / prev * 100
		}
	}
	return res, nil
}
