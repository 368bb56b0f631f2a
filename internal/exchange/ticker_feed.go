package exchange

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	reconnectDelay  = 5 * time.Second
	readDeadline    = 90 * time.Second
	writeWaitPeriod = 10 * time.Second
)

// tickerMessage is the mini-ticker payload pushed by the exchange stream.
type tickerMessage struct {
	Symbol string `json:"s"`
	Price  string `json:"c"`
}

// TickerFeed streams live mark prices over websocket and publishes them
// into the target manager's price channel.
type TickerFeed struct {
	url     string
	manager *Manager
	logger  *zap.Logger
}

// NewTickerFeed creates a ticker feed for one exchange manager.
func NewTickerFeed(url string, manager *Manager, logger *zap.Logger) *TickerFeed {
	return &TickerFeed{
		url:     url,
		manager: manager,
		logger:  logger.Named("ticker-feed"),
	}
}

// Run connects and pumps prices until the context is cancelled,
// reconnecting with a fixed delay on connection loss.
func (f *TickerFeed) Run(ctx context.Context) {
	for {
		if err := f.streamOnce(ctx); err != nil {
			if ctx.Err() != nil {
				f.logger.Info("Ticker feed stopped")
				return
			}
			f.logger.Warn("Ticker stream interrupted, reconnecting",
				zap.Error(err), zap.Duration("delay", reconnectDelay))
		}
		select {
		case <-ctx.Done():
			f.logger.Info("Ticker feed stopped")
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *TickerFeed) streamOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	f.logger.Info("Connected to ticker stream", zap.String("url", f.url))

	// close the connection when the context ends to unblock ReadMessage
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWaitPeriod),
			)
			conn.Close()
		case <-done:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return err
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ticker tickerMessage
		if err := json.Unmarshal(payload, &ticker); err != nil {
			f.logger.Debug("Skipping unparsable ticker payload", zap.Error(err))
			continue
		}
		price, err := decimal.NewFromString(ticker.Price)
		if err != nil {
			f.logger.Debug("Skipping unparsable ticker price",
				zap.String("symbol", ticker.Symbol), zap.String("price", ticker.Price))
			continue
		}
		f.manager.PublishPrice(ticker.Symbol, price)
	}
}
