package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/pkg/contracts/events"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_BroadcastToSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.NoError(t, a.WriteJSON(ClientMsg{Type: "subscribe", GameID: "g1"}))
	require.NoError(t, b.WriteJSON(ClientMsg{Type: "subscribe", GameID: "g2"}))

	require.Eventually(t, func() bool {
		return hub.Subscribers("g1") == 1 && hub.Subscribers("g2") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(OutcomeUpdate{GameID: "g1", Payload: events.Outcome{
		Type:    events.TypePayoutDelayed,
		GameID:  "g1",
		Delayed: &events.PayoutDelayed{GameID: "g1", Winner: "0xabc"},
	}})

	_ = a.SetReadDeadline(time.Now().Add(time.Second))
	var got OutcomeUpdate
	require.NoError(t, a.ReadJSON(&got))
	assert.Equal(t, "g1", got.GameID)
	assert.Equal(t, events.TypePayoutDelayed, got.Payload.Type)
	assert.Equal(t, "0xabc", got.Payload.Delayed.Winner)

	// b não acompanha g1
	_ = b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := b.ReadMessage()
	assert.Error(t, err)
}

func TestHub_PingAndUnsubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv)
	require.NoError(t, c.WriteJSON(ClientMsg{Type: "ping"}))
	_ = c.SetReadDeadline(time.Now().Add(time.Second))
	var pong map[string]string
	require.NoError(t, c.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])

	require.NoError(t, c.WriteJSON(ClientMsg{Type: "subscribe", GameID: "g1"}))
	require.Eventually(t, func() bool { return hub.Subscribers("g1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, c.WriteJSON(ClientMsg{Type: "unsubscribe", GameID: "g1"}))
	require.Eventually(t, func() bool { return hub.Subscribers("g1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_DisconnectDropsSubscriptions(t *testing.T) {
	hub := NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv)
	require.NoError(t, c.WriteJSON(ClientMsg{Type: "subscribe", GameID: "g1"}))
	require.Eventually(t, func() bool { return hub.Subscribers("g1") == 1 }, time.Second, 10*time.Millisecond)

	_ = c.Close()
	require.Eventually(t, func() bool { return hub.Subscribers("g1") == 0 }, time.Second, 10*time.Millisecond)
}
