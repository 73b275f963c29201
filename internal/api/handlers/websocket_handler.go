package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"product-strategy-gateway/internal/api/response"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/internal/websocket"
)

// WebSocketHandler upgrades session event streams
type WebSocketHandler struct {
	server    *websocket.Server
	lifecycle Lifecycle
	logger    logging.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(server *websocket.Server, lifecycle Lifecycle, logger logging.Logger) *WebSocketHandler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &WebSocketHandler{server: server, lifecycle: lifecycle, logger: logger.WithComponent("websocket_handler")}
}

// HandleSession streams lifecycle and bulk progress events of one session. The
// first message carries the current lifecycle outcome.
func (wh *WebSocketHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	outcome, err := wh.lifecycle.Status(r.Context(), sessionID)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	if err := wh.server.ServeSession(w, r, sessionID, outcome); err != nil {
		wh.logger.WarnContext(r.Context(), "WebSocket session ended with error", "session_id", sessionID, "error", err)
	}
}
