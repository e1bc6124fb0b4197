package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
	"matchday-service/services"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestClockStatePushedAfterAction(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedMatch(t)

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, env.hub, 1)

	rec := env.do(t, http.MethodPost, "/api/admin/matches/"+id+"/actions/start", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	msg := readMessage(t, conn)
	assert.Equal(t, "clock_state", msg.Type)
	assert.Equal(t, id, msg.MatchID)

	data, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var payload ClockPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, matchclock.StatusLive, payload.Status)
	assert.Equal(t, matchclock.ActionStart, payload.Action)
	assert.Equal(t, 2, payload.Version)
	require.NotNil(t, payload.MatchStartedAt)
	assert.True(t, kickoff.Equal(*payload.MatchStartedAt))
	assert.Equal(t, "00:00", payload.Clock.Text)
}

func TestSubscribeFiltersByMatch(t *testing.T) {
	hub := NewHub(common.NopLogger{}, nil)
	broker := services.NewInMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	require.NoError(t, hub.ForwardClockEvents(ctx, broker))

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "subscribe", "match_ids": []string{"m2"}}))

	// 等待订阅在服务端生效
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			return !c.shouldReceive("m1") && c.shouldReceive("m2")
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	for _, matchID := range []string{"m1", "m2"} {
		msg, err := services.EncodeClockEvent(services.ClockEvent{
			MatchID:    matchID,
			State:      matchclock.State{Status: matchclock.StatusLive},
			OccurredAt: kickoff,
		})
		require.NoError(t, err)
		require.NoError(t, broker.Produce(msg))
	}

	got := readMessage(t, conn)
	assert.Equal(t, "m2", got.MatchID)
	assert.Equal(t, kickoff.Unix(), got.Timestamp)
}

func TestClientMessageHandling(t *testing.T) {
	t.Parallel()

	c := &Client{id: "c1", hub: NewHub(common.NopLogger{}, nil), matchIDs: map[string]bool{}}
	assert.True(t, c.shouldReceive("any"))

	c.handleMessage([]byte(`{"type":"subscribe","match_ids":["a","b"]}`))
	assert.True(t, c.shouldReceive("a"))
	assert.False(t, c.shouldReceive("c"))

	c.handleMessage([]byte(`not json`))
	assert.True(t, c.shouldReceive("b"))

	c.handleMessage([]byte(`{"type":"unsubscribe"}`))
	assert.True(t, c.shouldReceive("c"))
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	allowAll := originChecker([]string{"*"})
	assert.True(t, allowAll(req("https://evil.example")))

	strict := originChecker([]string{"https://matchday.example"})
	assert.True(t, strict(req("https://matchday.example")))
	assert.True(t, strict(req("")))
	assert.False(t, strict(req("https://evil.example")))
}

func TestHubStopDisconnectsClients(t *testing.T) {
	hub := NewHub(common.NopLogger{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)

	cancel()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())

	// Hub 停止后广播不阻塞
	hub.Broadcast(&WSMessage{Type: "clock_state"})
}
