package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"somniadash/internal/dashboard"
)

type fakeSource struct {
	mu      sync.Mutex
	states  []dashboard.State
	updates chan dashboard.Update
}

func newFakeSource(views ...string) *fakeSource {
	s := &fakeSource{updates: make(chan dashboard.Update, 16)}
	for _, v := range views {
		s.states = append(s.states, dashboard.State{View: v, Loading: true})
	}
	return s
}

func (s *fakeSource) Snapshots() []dashboard.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dashboard.State(nil), s.states...)
}

func (s *fakeSource) Subscribe() (<-chan dashboard.Update, func()) {
	return s.updates, func() {}
}

func (s *fakeSource) Refresh(_ context.Context, name string) (dashboard.State, error) {
	if name != "portfolio" {
		return dashboard.State{}, errors.New("unknown view: " + name)
	}
	st := dashboard.State{View: name, Data: map[string]int{"openPositions": 2}, UpdatedAt: time.Now()}
	s.updates <- dashboard.Update{View: name, State: st}
	return st, nil
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_SendsSnapshotsOnConnect(t *testing.T) {
	hub := NewHub(newFakeSource("overview", "portfolio"), zerolog.Nop())
	hub.Start()
	defer hub.Stop()

	conn := dial(t, hub)

	first := readMessage(t, conn)
	second := readMessage(t, conn)
	assert.Equal(t, TypeUpdate, first["type"])
	assert.Equal(t, "overview", first["view"])
	assert.Equal(t, "portfolio", second["view"])

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastsUpdates(t *testing.T) {
	src := newFakeSource()
	hub := NewHub(src, zerolog.Nop())
	hub.Start()
	defer hub.Stop()

	a := dial(t, hub)
	b := dial(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	src.updates <- dashboard.Update{View: "agents", State: dashboard.State{View: "agents", Data: "ok"}}

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, "agents", msg["view"])
		data := msg["data"].(map[string]any)
		assert.Equal(t, "ok", data["data"])
	}
}

func TestHub_RefreshRequest(t *testing.T) {
	hub := NewHub(newFakeSource(), zerolog.Nop())
	hub.Start()
	defer hub.Stop()

	conn := dial(t, hub)
	require.NoError(t, conn.WriteJSON(InMessage{Type: TypeRefresh, View: "portfolio"}))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeUpdate, msg["type"])
	assert.Equal(t, "portfolio", msg["view"])

	require.NoError(t, conn.WriteJSON(InMessage{Type: TypeRefresh, View: "chat"}))
	msg = readMessage(t, conn)
	assert.Equal(t, TypeError, msg["type"])
	assert.Equal(t, "chat", msg["view"])
}

func TestHub_RejectsBadMessages(t *testing.T) {
	hub := NewHub(newFakeSource(), zerolog.Nop())
	hub.Start()
	defer hub.Stop()

	conn := dial(t, hub)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := readMessage(t, conn)
	assert.Equal(t, TypeError, msg["type"])

	require.NoError(t, conn.WriteJSON(InMessage{Type: "subscribe"}))
	msg = readMessage(t, conn)
	assert.Contains(t, msg["error"], "unsupported")
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub := NewHub(newFakeSource(), zerolog.Nop())
	hub.Start()

	conn := dial(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())
}
