package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHubBroadcastsToConnectedClients(t *testing.T) {
	hub := NewHub(zap.NewNop(), time.Minute)
	conn := dialTestHub(t, hub)
	defer conn.Close()

	// Registration happens in the upgrade handler before it returns, but the
	// dial only guarantees the handshake; poll briefly for the broadcast.
	type payload struct {
		Type string `json:"type"`
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.Broadcast(payload{Type: "session_opened"})
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		var got payload
		if err := conn.ReadJSON(&got); err == nil {
			if got.Type != "session_opened" {
				t.Fatalf("event type = %q", got.Type)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("client never received the broadcast")
		}
	}
}

func TestHubBroadcastsConcurrently(t *testing.T) {
	hub := NewHub(zap.NewNop(), time.Minute)
	conn := dialTestHub(t, hub)

	// Drain everything the hub sends so the write side keeps moving.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Simultaneous open/exit/cancel transitions all publish; the connection
	// must only ever see one writer.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Broadcast(map[string]string{"type": "session_opened"})
			}
		}()
	}
	wg.Wait()

	conn.Close()
	<-done
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub(zap.NewNop(), time.Minute)
	conn := dialTestHub(t, hub)
	conn.Close()

	// Broadcasting after the client hung up must not panic and must reap the
	// connection eventually.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.Broadcast(map[string]string{"type": "session_completed"})
		hub.mu.RLock()
		remaining := len(hub.clients)
		hub.mu.RUnlock()
		if remaining == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("connection not reaped, %d remaining", remaining)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
