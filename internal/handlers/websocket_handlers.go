package handlers

import (
	"net/http"

	ws "realtime-chat/internal/websocket"
	"realtime-chat/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(hub *ws.Hub) *WebSocketHandlers {
	return &WebSocketHandlers{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket upgrades the connection and starts the client pumps.
// The connection stays anonymous until its first register_identity intent.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	go client.WritePump()
	go client.ReadPump()
}
