package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"product-strategy-gateway/internal/logging"
)

// ServerConfig represents WebSocket server configuration
type ServerConfig struct {
	ReadBufferSize   int
	WriteBufferSize  int
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	PongTimeout      time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64
	AllowedOrigins   []string
}

// DefaultServerConfig returns default WebSocket server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     54 * time.Second,
		PongTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   512,
		AllowedOrigins:   []string{"*"},
	}
}

// Server upgrades HTTP requests and attaches the connections to a hub
type Server struct {
	hub      *Hub
	config   ServerConfig
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer creates a websocket server for hub
func NewServer(hub *Hub, config ServerConfig, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	defaults := DefaultServerConfig()
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.PongTimeout <= 0 {
		config.PongTimeout = defaults.PongTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}

	return &Server{
		hub:    hub,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
			HandshakeTimeout: config.HandshakeTimeout,
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, config.AllowedOrigins)
			},
		},
		logger: logger.WithComponent("websocket"),
	}
}

// ServeSession upgrades the request and streams the events of sessionID until the
// client disconnects. snapshot is sent first as the payload of the connected message.
func (s *Server) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string, snapshot interface{}) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}

	client := newClient(uuid.New().String(), sessionID, conn, s.hub, s.config, s.logger)
	client.enqueue(Message{Type: TypeConnected, SessionID: sessionID, Data: snapshot, Timestamp: time.Now().UTC()})

	if !s.hub.Register(client) {
		_ = conn.Close()
		return fmt.Errorf("websocket hub is not running")
	}
	s.logger.InfoContext(r.Context(), "WebSocket client connected", "client_id", client.ID, "session_id", sessionID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.hub.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	go client.writePump(ctx)
	client.readPump()
	return nil
}

// checkOrigin accepts same-origin requests and the configured origins
func checkOrigin(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}
