package websocket

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

	"go-ocr-inventory/internal/event"
)

func TestHub_BroadcastsBusEvents(t *testing.T) {
	bus := event.NewBus()
	hub := NewHub(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := Upgrader(nil)
	hello := event.New(event.TypeInventoryReconciled, map[string]int{"groups": 0})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(upgrader, w, r, hello)
	}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first event.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, hello.ID, first.ID)

	// The first message is only written after the hub registered the
	// client, so anything published from here on reaches it.
	bus.Publish(event.New(event.TypeDocumentDeleted, map[string]string{"key": "doc1"}))

	var got event.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, event.TypeDocumentDeleted, got.Type)

	payload, err := json.Marshal(got.Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"doc1"}`, string(payload))
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub := NewHub(event.NewBus())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := Upgrader(nil)
	hello := event.New(event.TypeStatusChanged, nil)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(upgrader, w, r, hello)
	}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first event.Event
	require.NoError(t, conn.ReadJSON(&first))

	cancel()

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}

func TestUpgrader_CheckOrigin(t *testing.T) {
	upgrader := Upgrader([]string{"http://console.test"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://console.test")
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://evil.test")
	assert.False(t, upgrader.CheckOrigin(req))

	assert.True(t, Upgrader([]string{"*"}).CheckOrigin(req))
}
