package service

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"quant_trader/internal/models"

	"github.com/bytedance/sonic"
)

// Balance — сводный остаток по счёту. Валюты суммируем как есть:
// итог по основной валюте брокер отдаёт в net_assets.
func (c *Client) Balance(ctx context.Context) (models.Balance, error) {
	neutral := models.Balance{Currency: "USD"}
	if !c.Configured() {
		return neutral, nil
	}

	req, err := c.generateRequest(ctx, http.MethodGet, "/v1/asset/account", "")
	if err != nil {
		return neutral, fmt.Errorf("Balance new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return neutral, fmt.Errorf("Balance do: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return neutral, fmt.Errorf("Balance http %d: %s", resp.StatusCode, string(data))
	}

	var r struct {
		Code int `json:"code"`
		Data struct {
			List []struct {
				Currency      string  `json:"currency"`
				NetAssets     float64 `json:"net_assets,string"`
				AvailableCash float64 `json:"available_cash,string"`
				TotalCash     float64 `json:"total_cash,string"`
			} `json:"list"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return neutral, fmt.Errorf("Balance decode: %w; body=%s", err, string(data))
	}

	var b models.Balance
	b.Currency = "USD"
	for _, row := range r.Data.List {
		b.NetAssets += row.NetAssets
		b.AvailableCash += row.AvailableCash
		b.TotalCash += row.TotalCash
		if row.NetAssets > 0 {
			b.Currency = row.Currency
		}
	}
	return b, nil
}

// Positions — позиции на стороне брокера (для сверки с леджером).
func (c *Client) Positions(ctx context.Context) ([]models.BrokerPosition, error) {
	if !c.connected {
		return nil, nil
	}

	req, err := c.generateRequest(ctx, http.MethodGet, "/v1/asset/stock_positions", "")
	if err != nil {
		return nil, fmt.Errorf("Positions new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Positions do: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("Positions http %d: %s", resp.StatusCode, string(data))
	}

	var r struct {
		Code int `json:"code"`
		Data struct {
			List []struct {
				Positions []struct {
					Symbol      string  `json:"symbol"`
					Quantity    int64   `json:"quantity,string"`
					CostPrice   float64 `json:"cost_price,string"`
					MarketValue float64 `json:"market_value,string"`
				} `json:"stock_info"`
			} `json:"list"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("Positions decode: %w; body=%s", err, string(data))
	}

	var res []models.BrokerPosition
	for _, ch := range r.Data.List {
		for _, p := range ch.Positions {
			res = append(res, models.BrokerPosition{
				Symbol:      p.Symbol,
				Quantity:    p.Quantity,
				CostPrice:   p.CostPrice,
				MarketValue: p.MarketValue,
			})
		}
	}
	return res, nil
}
