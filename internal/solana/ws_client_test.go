package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTestServer upgrades one connection and runs handler on it.
func wsTestServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialLogs_SubscribeAndReceive(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "logsSubscribe" {
			t.Errorf("method = %s, want logsSubscribe", req.Method)
		}

		conn.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 42})

		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "logsNotification",
			"params": map[string]interface{}{
				"subscription": 42,
				"result": map[string]interface{}{
					"value": map[string]interface{}{
						"signature": "SIG1",
						"logs":      []string{"Program log: hello"},
					},
				},
			},
		})

		// Keep connection open until client closes
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	ctx := context.Background()
	conn, err := DialLogs(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("DialLogs: %v", err)
	}
	defer conn.Close()

	if err := conn.SubscribeLogs(ctx, "PROGRAM1", "processed"); err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	select {
	case raw := <-conn.Messages():
		if !strings.Contains(string(raw), "SIG1") {
			t.Errorf("message missing signature: %s", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestWSConn_MessagesClosedOnServerDrop(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		// Drop immediately after upgrade.
	})
	defer server.Close()

	conn, err := DialLogs(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("DialLogs: %v", err)
	}
	defer conn.Close()

	select {
	case _, ok := <-conn.Messages():
		if ok {
			t.Error("expected channel close, got message")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Messages channel not closed after server drop")
	}
}

func TestWSConn_CloseIdempotent(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	conn, err := DialLogs(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("DialLogs: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestSubscribeLogs_Timeout(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		// Swallow the subscribe request, never confirm.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.SubscribeTimeout = 50 * time.Millisecond

	conn, err := DialLogs(context.Background(), wsURL(server), &cfg)
	if err != nil {
		t.Fatalf("DialLogs: %v", err)
	}
	defer conn.Close()

	if err := conn.SubscribeLogs(context.Background(), "PROGRAM1", "processed"); err == nil {
		t.Fatal("expected subscription timeout")
	}
}
