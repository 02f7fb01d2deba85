package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/logging"
	"holo-reversal-lab/internal/observability"
	"holo-reversal-lab/internal/replay"
)

// ErrClientClosed is returned by operations on a closed client.
var ErrClientClosed = errors.New("websocket client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// BufferSize is the capacity of the events channel.
	BufferSize int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		BufferSize:        10000,
	}
}

// WSClient streams bars and ticks from a market data websocket.
//
// Wire format, one JSON object per message:
//
//	-> {"op":"subscribe","symbols":["IF2501"]}
//	<- {"type":"bar","symbol":"IF2501","ts":1735722000000,"open":105,"high":105.5,"low":104.8,"close":105.2,"volume":12}
//	<- {"type":"tick","symbol":"IF2501","ts":1735722000500,"bid":105.1,"ask":105.2,"last":105.15}
//	<- {"type":"error","message":"unknown symbol"}
//
// Subscriptions are replayed after every reconnect.
type WSClient struct {
	endpoint string
	config   WSClientConfig
	logger   logrus.FieldLogger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	symbols   []string
	symbolsMu sync.Mutex

	events chan *replay.Event

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig, logger logrus.FieldLogger) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultWSConfig().BufferSize
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logging.OrDiscard(logger).WithField("component", "ws_feed"),
		events:   make(chan *replay.Event, cfg.BufferSize),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// Events returns the stream of decoded market events.
// The channel is closed by Close.
func (c *WSClient) Events() <-chan *replay.Event {
	return c.events
}

// connect establishes WebSocket connection.
func (c *WSClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Subscribe requests bars and ticks for the given symbols.
func (c *WSClient) Subscribe(symbols ...string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if err := c.writeSubscribe(symbols); err != nil {
		return err
	}

	c.symbolsMu.Lock()
	c.symbols = append(c.symbols, symbols...)
	c.symbolsMu.Unlock()
	return nil
}

func (c *WSClient) writeSubscribe(symbols []string) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return errors.New("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(wsRequest{Op: "subscribe", Symbols: symbols}); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the WebSocket connection and the events channel.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.events)
	return nil
}

// readLoop reads messages and reconnects with exponential backoff on errors.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			if !c.reconnect(reconnectDelay) {
				reconnectDelay = min(reconnectDelay*2, c.config.MaxReconnectDelay)
			} else {
				reconnectDelay = c.config.ReconnectDelay
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.logger.WithError(err).Warn("feed read failed, reconnecting")
			observability.RecordFeedError("read")

			c.connMu.Lock()
			if c.conn == conn {
				c.conn.Close()
				c.conn = nil
			}
			c.connMu.Unlock()
			continue
		}

		c.handleMessage(message)
	}
}

// reconnect waits delay, dials again and replays subscriptions.
// Returns false when the attempt failed.
func (c *WSClient) reconnect(delay time.Duration) bool {
	select {
	case <-c.done:
		return false
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.logger.WithError(err).WithField("retry_in", delay).Warn("feed reconnect failed")
		return false
	}
	observability.RecordFeedReconnect()

	c.symbolsMu.Lock()
	symbols := append([]string(nil), c.symbols...)
	c.symbolsMu.Unlock()

	if len(symbols) > 0 {
		if err := c.writeSubscribe(symbols); err != nil {
			c.logger.WithError(err).Warn("feed resubscribe failed")
			return false
		}
	}
	c.logger.WithField("symbols", symbols).Info("feed reconnected")
	return true
}

// handleMessage decodes one message and forwards market events.
func (c *WSClient) handleMessage(message []byte) {
	event, err := decodeMessage(message)
	if err != nil {
		observability.RecordFeedError("decode")
		c.logger.WithError(err).Warn("dropping feed message")
		return
	}
	if event == nil {
		return
	}

	// Block until we can send - never drop events
	select {
	case c.events <- event:
	case <-c.done:
	}
}

// decodeMessage returns nil, nil for messages that carry no market event.
func decodeMessage(message []byte) (*replay.Event, error) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	switch msg.Type {
	case "bar":
		if msg.Symbol == "" {
			return nil, errors.New("bar without symbol")
		}
		return replay.BarEvent(&domain.PriceBar{
			Symbol:      msg.Symbol,
			TimestampMs: msg.TimestampMs,
			Open:        msg.Open,
			High:        msg.High,
			Low:         msg.Low,
			Close:       msg.Close,
			Volume:      msg.Volume,
		}), nil
	case "tick":
		if msg.Symbol == "" {
			return nil, errors.New("tick without symbol")
		}
		return replay.TickEvent(&domain.PriceTick{
			Symbol:      msg.Symbol,
			TimestampMs: msg.TimestampMs,
			BidPrice:    msg.Bid,
			AskPrice:    msg.Ask,
			LastPrice:   msg.Last,
		}), nil
	case "error":
		return nil, fmt.Errorf("server error: %s", msg.Message)
	default:
		// acks, heartbeats
		return nil, nil
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// a dead connection surfaces in readLoop
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

type wsMessage struct {
	Type        string   `json:"type"`
	Symbol      string   `json:"symbol"`
	TimestampMs int64    `json:"ts"`
	Open        float64  `json:"open"`
	High        float64  `json:"high"`
	Low         float64  `json:"low"`
	Close       float64  `json:"close"`
	Volume      float64  `json:"volume"`
	Bid         *float64 `json:"bid"`
	Ask         *float64 `json:"ask"`
	Last        float64  `json:"last"`
	Message     string   `json:"message"`
}
