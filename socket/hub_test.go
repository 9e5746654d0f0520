package socket

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

	"medirecords/store"
)

// Helper function to read messages from a WebSocket connection with a timeout.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	require.NoError(t, json.Unmarshal(p, &msg), "Failed to unmarshal WSMessage JSON")
	return msg
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub("patients", "doctors")
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, url, collection string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?collection="+collection, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ack := readMessage(t, conn)
	require.Equal(t, SubscribedType, ack.Type)
	require.Equal(t, collection, ack.Collection)
	return conn
}

func waitSubscribers(t *testing.T, hub *Hub, collection string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Subscribers(collection) == n }, time.Second, 10*time.Millisecond)
}

func TestChangeFeed(t *testing.T) {
	hub, url := startHub(t)

	patients := dial(t, url, "patients")
	doctors := dial(t, url, "doctors")
	waitSubscribers(t, hub, "patients", 1)
	waitSubscribers(t, hub, "doctors", 1)

	hub.Notify("doctors", CreatedType, "d1", store.Document{"_id": "d1", "name": "Dr. Budi"})
	hub.Notify("patients", UpdatedType, "p1", store.Document{"_id": "p1", "age": float64(40)})

	msg := readMessage(t, patients)
	assert.Equal(t, UpdatedType, msg.Type)
	assert.Equal(t, "patients", msg.Collection)
	assert.Equal(t, "p1", msg.ID)
	assert.JSONEq(t, `{"_id":"p1","age":40}`, string(msg.Payload))

	msg = readMessage(t, doctors)
	assert.Equal(t, CreatedType, msg.Type)
	assert.Equal(t, "d1", msg.ID)

	hub.Notify("patients", DeletedType, "p1", nil)
	msg = readMessage(t, patients)
	assert.Equal(t, DeletedType, msg.Type)
	assert.Empty(t, msg.Payload)
}

func TestUnknownCollectionRejectedBeforeUpgrade(t *testing.T) {
	_, url := startHub(t)

	_, resp, err := websocket.DefaultDialer.Dial(url+"?collection=invoices", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url, "patients")
	waitSubscribers(t, hub, "patients", 1)

	require.NoError(t, conn.Close())
	waitSubscribers(t, hub, "patients", 0)
}

func TestNotifyNeverBlocks(t *testing.T) {
	hub := NewHub("patients")

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Notify("patients", CreatedType, "x", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no hub running")
	}
	assert.Len(t, hub.Broadcast, broadcastBuffer)
}
