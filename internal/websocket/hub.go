// Package websocket streams wizard session events to browser clients.
package websocket

import (
	"context"
	"sync"
	"time"

	"product-strategy-gateway/internal/analysis"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/internal/suggestions"
)

// Message types sent to clients
const (
	TypeConnected    = "connected"
	TypeAnalysis     = "analysis"
	TypeBulkProgress = "bulk_progress"
	TypeHeartbeat    = "heartbeat"
	TypePong         = "pong"
)

// Message is one event delivered to the clients of a session
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub fans session events out to the websocket clients watching that session.
// It implements analysis.Notifier.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}
	mutex      sync.RWMutex
	logger     logging.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		done:       make(chan struct{}),
		logger:     logger.WithComponent("websocket_hub"),
	}
}

// Run starts the hub's main loop; it returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mutex.Lock()
		for client := range h.clients {
			client.SafeClose()
			delete(h.clients, client)
		}
		h.mutex.Unlock()
	}()

	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug("WebSocket client registered", "client_id", client.ID, "session_id", client.SessionID, "total", total)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if client.SessionID != msg.SessionID {
					continue
				}
				if !client.enqueue(msg) {
					// Slow consumer
					h.removeClientUnsafe(client)
				}
			}
			h.mutex.Unlock()

		case <-ctx.Done():
			h.logger.Info("WebSocket hub shutting down")
			return
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeClientUnsafe(client)
}

// removeClientUnsafe removes a client without locking (assumes lock is held)
func (h *Hub) removeClientUnsafe(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.SafeClose()
		h.logger.Debug("WebSocket client removed", "client_id", client.ID, "total", len(h.clients))
	}
}

// Register adds a client. It waits for the hub loop and reports false once the
// hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Done is closed when the hub loop has stopped
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Publish queues a message for the clients of its session. Messages are dropped
// when the queue is full so publishers never block on slow clients.
func (h *Hub) Publish(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast queue full, dropping event", "type", msg.Type, "session_id", msg.SessionID)
	}
}

// Notify implements analysis.Notifier
func (h *Hub) Notify(event analysis.Event) {
	h.Publish(Message{Type: TypeAnalysis, SessionID: event.SessionID, Data: event, Timestamp: event.At})
}

// PublishProgress reports bulk suggestion progress for a session
func (h *Hub) PublishProgress(sessionID string, progress suggestions.Progress) {
	h.Publish(Message{Type: TypeBulkProgress, SessionID: sessionID, Data: progress})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
