package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"quant_trader/internal/models"

	"github.com/bytedance/sonic"
)

// SubmitOrder — выставление ордера. Ошибка брокера возвращается как
// {success:false, message}, никаких мутаций на стороне движка при этом
// не происходит.
func (c *Client) SubmitOrder(
	ctx context.Context,
	symbol string,
	side models.Side,
	quantity int64,
	orderType string,
	price float64,
) (models.OrderResult, error) {

	if quantity <= 0 {
		return models.OrderResult{Success: false, Message: "quantity <= 0"}, nil
	}
	if !c.connected {
		return models.OrderResult{Success: false, Message: "broker not connected"}, nil
	}

	lbType := "MO"
	if orderType == "LIMIT" {
		lbType = "LO"
	}

	body := map[string]string{
		"symbol":             NormalizeSymbol(symbol),
		"side":               string(side),
		"order_type":         lbType,
		"submitted_quantity": strconv.FormatInt(quantity, 10),
		"time_in_force":      "Day",
	}
	if lbType == "LO" && price > 0 {
		body["submitted_price"] = strconv.FormatFloat(price, 'f', -1, 64)
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("SubmitOrder marshal: %w", err)
	}

	const requestPath = "/v1/trade/order"

	req, err := c.generateRequest(ctx, http.MethodPost, requestPath, string(payload))
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("SubmitOrder new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.OrderResult{Success: false, Message: err.Error()}, nil
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return models.OrderResult{
			Success: false,
			Message: fmt.Sprintf("http %d: %s", resp.StatusCode, string(data)),
		}, nil
	}

	var r struct {
		Code int    `json:"code"`
		Msg  string `json:"message"`
		Data struct {
			OrderID string `json:"order_id"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.OrderResult{
			Success: false,
			Message: fmt.Sprintf("decode: %v; body=%s", err, string(data)),
		}, nil
	}
	if r.Code != 0 {
		return models.OrderResult{
			Success: false,
			Message: fmt.Sprintf("order rejected: code=%d msg=%s", r.Code, r.Msg),
		}, nil
	}

	return models.OrderResult{
		Success: true,
		OrderID: r.Data.OrderID,
		Message: "order submitted",
	}, nil
}
