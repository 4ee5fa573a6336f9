package service

import (
	"context"
	"log"
	"time"

	"quant_trader/internal/models"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// StreamQuotes — один WebSocket на всю вселенную символов.
// Возвращает поток Quote по мере прихода push-обновлений от брокера.
// Соединение живёт до отмены ctx, при обрыве переподключаемся.
func (c *Client) StreamQuotes(ctx context.Context, symbols []string) <-chan models.Quote {
	ch := make(chan models.Quote)

	go func() {
		defer close(ch)

		if len(symbols) == 0 || !c.Configured() {
			return
		}

		normalized := make([]string, 0, len(symbols))
		symbolMap := make(map[string]string, len(symbols))
		for _, s := range symbols {
			n := NormalizeSymbol(s)
			normalized = append(normalized, n)
			symbolMap[n] = s
		}

		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		url := c.cfg.Broker.QuoteWSURL

		for {
			log.Printf("[WS] quote connect %s, %d symbols", url, len(normalized))
			conn, _, err := dialer.DialContext(ctx, url, nil)
			if err != nil {
				log.Printf("[WS] quote dial error: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			sub := map[string]any{
				"op":      "subscribe",
				"channel": "quote",
				"symbols": normalized,
				"token":   c.accessToken,
			}
			if err := conn.WriteJSON(sub); err != nil {
				log.Printf("[WS] quote subscribe error: %v", err)
				_ = conn.Close()
				continue
			}

			// keepalive ping каждые 20s — иначе шлюз рвёт соединение
			stopPing := make(chan struct{})
			go func() {
				t := time.NewTicker(20 * time.Second)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-stopPing:
						return
					case <-t.C:
						_ = conn.WriteJSON(map[string]string{"op": "ping"})
					}
				}
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					log.Printf("[WS] quote read error: %v", err)
					close(stopPing)
					_ = conn.Close()
					break
				}

				var frame struct {
					Channel string `json:"channel"`
					Data    []struct {
						Symbol    string  `json:"symbol"`
						LastDone  float64 `json:"last_done,string"`
						PrevClose float64 `json:"prev_close,string"`
						Volume    int64   `json:"volume,string"`
						Timestamp int64   `json:"timestamp"`
					} `json:"data"`
				}
				if err := sonic.Unmarshal(msg, &frame); err != nil {
					continue
				}
				if frame.Channel != "quote" || len(frame.Data) == 0 {
					continue
				}

				for _, row := range frame.Data {
					if row.LastDone <= 0 {
						continue
					}
					sym, ok := symbolMap[row.Symbol]
					if !ok {
						sym = row.Symbol
					}
					var changePct float64
					if row.PrevClose > 0 {
						changePct = (row.LastDone - row.PrevClose) / row.PrevClose * 100
					}
					ts := time.Now()
					if row.Timestamp > 0 {
						ts = time.Unix(row.Timestamp, 0)
					}

					q := models.Quote{
						Symbol:    sym,
						Price:     row.LastDone,
						ChangePct: changePct,
						Volume:    row.Volume,
						Timestamp: ts,
					}

					select {
					case ch <- q:
					case <-ctx.Done():
						_ = conn.Close()
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(time.Second)
			}
		}
	}()

	return ch
}
