package starknet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsTestServer is a fake subscription node: it confirms every subscribe
// request and reports received unsubscribe requests.
type wsTestServer struct {
	srv          *httptest.Server
	conns        chan *websocket.Conn
	unsubscribed chan string
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()

	ts := &wsTestServer{
		conns:        make(chan *websocket.Conn, 1),
		unsubscribed: make(chan string, 4),
	}
	upgrader := websocket.Upgrader{}

	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		ts.conns <- conn

		for {
			var req struct {
				ID     uint64        `json:"id"`
				Method string        `json:"method"`
				Params []interface{} `json:"params"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			switch req.Method {
			case "starknet_subscribeTransactionStatus":
				resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "sub-1"}
				if err := conn.WriteJSON(resp); err != nil {
					return
				}
			case "starknet_unsubscribe":
				subID, _ := req.Params[0].(string)
				ts.unsubscribed <- subID
				resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": true}
				if err := conn.WriteJSON(resp); err != nil {
					return
				}
			}
		}
	}))
	return ts
}

func (ts *wsTestServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

// pushStatus sends a status notification for the subscription.
func (ts *wsTestServer) pushStatus(t *testing.T, subID, status string) {
	t.Helper()
	select {
	case conn := <-ts.conns:
		msg := map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "starknet_subscriptionTransactionStatus",
			"params": map[string]interface{}{
				"subscription_id": subID,
				"result":          map[string]string{"status": status},
			},
		}
		if err := conn.WriteJSON(msg); err != nil {
			t.Errorf("push status: %v", err)
		}
		ts.conns <- conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection established")
	}
}

func TestSubscribeTransactionStatus(t *testing.T) {
	ts := newWSTestServer(t)
	defer ts.srv.Close()

	c, err := NewWSClient(context.Background(), ts.url(), nil)
	if err != nil {
		t.Fatalf("NewWSClient failed: %v", err)
	}
	defer c.Close()

	statusCh, cancel, err := c.SubscribeTransactionStatus(context.Background(), "0x1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	ts.pushStatus(t, "sub-1", StatusAcceptedOnL2)

	select {
	case status := <-statusCh:
		if status != StatusAcceptedOnL2 {
			t.Errorf("status: got %q", status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no status delivered")
	}
}

func TestSubscriptionCancelReleasesEntry(t *testing.T) {
	ts := newWSTestServer(t)
	defer ts.srv.Close()

	c, err := NewWSClient(context.Background(), ts.url(), nil)
	if err != nil {
		t.Fatalf("NewWSClient failed: %v", err)
	}
	defer c.Close()

	_, cancel, err := c.SubscribeTransactionStatus(context.Background(), "0x1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	cancel()

	c.subsMu.Lock()
	remaining := len(c.subs)
	c.subsMu.Unlock()
	if remaining != 0 {
		t.Errorf("cancel left %d subscription entries", remaining)
	}

	select {
	case subID := <-ts.unsubscribed:
		if subID != "sub-1" {
			t.Errorf("unsubscribed %q, want sub-1", subID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no unsubscribe request reached the node")
	}

	// Safe to call again.
	cancel()
	select {
	case subID := <-ts.unsubscribed:
		t.Errorf("second cancel sent another unsubscribe for %q", subID)
	case <-time.After(100 * time.Millisecond):
	}
}
