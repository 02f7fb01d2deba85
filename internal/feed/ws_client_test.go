package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holo-reversal-lab/internal/replay"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testWSConfig() *WSClientConfig {
	return &WSClientConfig{
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 50 * time.Millisecond,
		PingInterval:      time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      time.Second,
		BufferSize:        16,
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func nextEvent(t *testing.T, ch <-chan *replay.Event) *replay.Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "events channel closed")
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestWSClient_SubscribeAndStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Op != "subscribe" || len(req.Symbols) != 1 {
			return
		}
		symbol := req.Symbols[0]

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ack"}`))
		_ = conn.WriteJSON(map[string]any{
			"type": "bar", "symbol": symbol, "ts": 60_000,
			"open": 105, "high": 105.5, "low": 104.8, "close": 105.2, "volume": 12,
		})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteJSON(map[string]any{
			"type": "tick", "symbol": symbol, "ts": 60_500, "bid": 105.1, "last": 105.15,
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), testWSConfig(), nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Subscribe("IF2501"))

	bar := nextEvent(t, client.Events())
	require.Equal(t, replay.EventTypeBar, bar.Type)
	assert.Equal(t, "IF2501", bar.Symbol)
	assert.Equal(t, int64(60_000), bar.TimestampMs)
	assert.Equal(t, 105.5, bar.Bar.High)

	tick := nextEvent(t, client.Events())
	require.Equal(t, replay.EventTypeTick, tick.Type)
	require.NotNil(t, tick.Tick.BidPrice)
	assert.Equal(t, 105.1, *tick.Tick.BidPrice)
	assert.Nil(t, tick.Tick.AskPrice)
	assert.Equal(t, 105.15, tick.Tick.EffectiveAsk())
}

func TestWSClient_ReconnectResubscribes(t *testing.T) {
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := connections.Add(1)

		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		_ = conn.WriteJSON(map[string]any{
			"type": "tick", "symbol": req.Symbols[0], "ts": int64(n) * 1000, "last": 100,
		})
		if n == 1 {
			// drop the first connection
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), testWSConfig(), nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Subscribe("IF2501"))

	first := nextEvent(t, client.Events())
	assert.Equal(t, int64(1000), first.TimestampMs)

	second := nextEvent(t, client.Events())
	assert.Equal(t, int64(2000), second.TimestampMs)
	assert.Equal(t, "IF2501", second.Symbol)
	assert.GreaterOrEqual(t, connections.Load(), int32(2))
}

func TestWSClient_CloseClosesEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), testWSConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, ok := <-client.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, client.Subscribe("IF2501"), ErrClientClosed)
}

func TestDecodeMessage(t *testing.T) {
	e, err := decodeMessage([]byte(`{"type":"heartbeat"}`))
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = decodeMessage([]byte(`{"type":"error","message":"unknown symbol"}`))
	assert.ErrorContains(t, err, "unknown symbol")

	_, err = decodeMessage([]byte(`{"type":"bar"}`))
	assert.Error(t, err)

	raw, err := json.Marshal(wsRequest{Op: "subscribe", Symbols: []string{"A"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"subscribe","symbols":["A"]}`, string(raw))
}
