package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"product-strategy-gateway/internal/logging"
)

// Client is one websocket connection watching a session
type Client struct {
	ID        string
	SessionID string

	conn   *websocket.Conn
	send   chan Message
	hub    *Hub
	config ServerConfig
	logger logging.Logger

	closed bool
	mu     sync.Mutex
}

func newClient(id, sessionID string, conn *websocket.Conn, hub *Hub, config ServerConfig, logger logging.Logger) *Client {
	return &Client{
		ID:        id,
		SessionID: sessionID,
		conn:      conn,
		send:      make(chan Message, 64),
		hub:       hub,
		config:    config,
		logger:    logger,
	}
}

// SafeClose closes the send queue once; the write pump then closes the connection
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

// enqueue queues msg without blocking. It reports false when the queue is full.
func (c *Client) enqueue(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// writePump writes queued messages and heartbeats until the queue is closed
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("WebSocket write failed", "client_id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteJSON(Message{Type: TypeHeartbeat, SessionID: c.SessionID, Timestamp: time.Now().UTC()}); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// readPump consumes client messages until the connection drops. Clients only
// send pings; everything else is ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.SafeClose()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	})

	for {
		var msg map[string]interface{}
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("WebSocket closed unexpectedly", "client_id", c.ID, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))

		if msgType, _ := msg["type"].(string); msgType == "ping" {
			c.enqueue(Message{Type: TypePong, SessionID: c.SessionID, Timestamp: time.Now().UTC()})
		}
	}
}
