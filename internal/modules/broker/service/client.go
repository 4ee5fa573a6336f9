package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"quant_trader/internal/modules/config"
	"quant_trader/pkg/logger"
)

// Client — REST-клиент брокерского OpenAPI. Подписанные запросы,
// sonic для тела, типизированные конверты ответов.
type Client struct {
	cfg *config.Config

	http    *http.Client
	limiter *RateLimiter

	baseURL     string
	appKey      string
	appSecret   string
	accessToken string

	connected bool
}

func NewClient(cfg *config.Config, limiter *RateLimiter) *Client {
	return &Client{
		cfg:         cfg,
		http:        &http.Client{Timeout: 10 * time.Second},
		limiter:     limiter,
		baseURL:     cfg.Broker.HTTPURL,
		appKey:      cfg.Broker.AppKey,
		appSecret:   cfg.Broker.AppSecret,
		accessToken: cfg.Broker.AccessToken,
	}
}

// Connected — прошла ли стартовая проверка связи.
func (c *Client) Connected() bool { return c.connected }

// Configured — ключи на месте. Без ключей клиент отвечает
// нейтральными данными и не считает это фатальным.
func (c *Client) Configured() bool {
	return c.appKey != "" && c.appSecret != "" && c.accessToken != ""
}

func (c *Client) Connect(ctx context.Context) error {
	if !c.Configured() {
		logger.Warn("broker credentials not configured, live quotes/orders unavailable")
		c.connected = false
		return nil
	}

	// лёгкая проверка доступности — счёт
	if _, err := c.Balance(ctx); err != nil {
		logger.Error("broker connect check failed: %v", err)
		c.connected = false
		return nil
	}

	c.connected = true
	logger.Info("broker connected: %s", c.baseURL)
	return nil
}

func (c *Client) sign(ts, method, requestPath, body string) string {
	msg := ts + strings.ToUpper(method) + requestPath + body
	h := hmac.New(sha256.New, []byte(c.appSecret))
	h.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (c *Client) setAuthHeaders(req *http.Request, ts, sign string) {
	req.Header.Set("X-Api-Key", c.appKey)
	req.Header.Set("X-Api-Signature", sign)
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) generateRequest(ctx context.Context, method, requestPath, body string) (*http.Request, error) {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	sign := c.sign(ts, method, requestPath, body)

	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	} else {
		rd = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, rd)
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req, ts, sign)
	return req, nil
}
