package starknet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		PingInterval:     30 * time.Second,
		WriteTimeout:     10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// WSClient subscribes to transaction status updates over the node's
// WebSocket API. It implements StatusSubscriber.
type WSClient struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to status channel
	subs   map[string]chan string
	subsMu sync.Mutex

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan string
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

var _ StatusSubscriber = (*WSClient)(nil)

// NewWSClient connects to the WebSocket endpoint and starts the read loop.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[string]chan string),
		pendingSubs: make(map[uint64]chan string),
		done:        make(chan struct{}),
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// wsNotification is an incoming subscription message.
type wsNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Params  *struct {
		SubscriptionID string `json:"subscription_id"`
		Result         struct {
			Status string `json:"status"`
		} `json:"result"`
	} `json:"params,omitempty"`
}

// SubscribeTransactionStatus subscribes to status updates for one
// transaction hash. The returned cancel func unsubscribes from the node
// and drops the status channel; callers must invoke it when done. The
// channel closes when the client shuts down.
func (c *WSClient) SubscribeTransactionStatus(ctx context.Context, txHash string) (<-chan string, func(), error) {
	if c.closed.Load() {
		return nil, nil, fmt.Errorf("websocket client closed")
	}

	reqID := c.requestID.Add(1)
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "starknet_subscribeTransactionStatus",
		Params:  []interface{}{txHash},
	}

	subIDCh := make(chan string, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = subIDCh
	c.pendingSubsMu.Unlock()

	defer func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}()

	if err := c.writeJSON(req); err != nil {
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-c.done:
		return nil, nil, fmt.Errorf("websocket client closed")
	case subID := <-subIDCh:
		statusCh := make(chan string, 4)
		c.subsMu.Lock()
		c.subs[subID] = statusCh
		c.subsMu.Unlock()
		return statusCh, c.cancelFunc(subID), nil
	}
}

// cancelFunc builds the idempotent unsubscribe for one subscription:
// drop the local channel, then tell the node to stop sending.
func (c *WSClient) cancelFunc(subID string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			_, ok := c.subs[subID]
			delete(c.subs, subID)
			c.subsMu.Unlock()
			if !ok || c.closed.Load() {
				return
			}
			_ = c.writeJSON(rpcRequest{
				JSONRPC: "2.0",
				ID:      c.requestID.Add(1),
				Method:  "starknet_unsubscribe",
				Params:  []interface{}{subID},
			})
		})
	}
}

func (c *WSClient) writeJSON(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// readLoop dispatches incoming messages to pending and active subscribers.
func (c *WSClient) readLoop() {
	defer c.wg.Done()
	defer c.closeAllSubs()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.Close()
			}
			return
		}

		var msg wsNotification
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch {
		case msg.ID != 0 && msg.Result != nil:
			// Subscription confirmation: result is the subscription id.
			var subID string
			if err := json.Unmarshal(msg.Result, &subID); err != nil {
				continue
			}
			c.pendingSubsMu.Lock()
			if ch, ok := c.pendingSubs[msg.ID]; ok {
				ch <- subID
			}
			c.pendingSubsMu.Unlock()

		case msg.Method == "starknet_subscriptionTransactionStatus" && msg.Params != nil:
			c.subsMu.Lock()
			ch, ok := c.subs[msg.Params.SubscriptionID]
			c.subsMu.Unlock()
			if ok {
				select {
				case ch <- msg.Params.Result.Status:
				default:
					// Slow consumer: drop the update, a later one follows.
				}
			}
		}
	}
}

// pingLoop keeps the connection alive.
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
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.connMu.Unlock()
			if err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *WSClient) closeAllSubs() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

// Close shuts down the client. Safe to call more than once.
func (c *WSClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)
	err := c.conn.Close()
	return err
}
