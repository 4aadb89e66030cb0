package handlers

import (
	"net/http"

	"minitalk/internal/middleware"
	"minitalk/internal/websocket"
	"minitalk/pkg/logger"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, readBufferSize, writeBufferSize int) *WebSocketHandler {
	if readBufferSize <= 0 {
		readBufferSize = 1024
	}
	if writeBufferSize <= 0 {
		writeBufferSize = 1024
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// The session token authenticates; the Telegram webview
				// origin varies too much to pin.
				return true
			},
		},
	}
}

// Connect upgrades the request to a WebSocket. SessionAuth runs before
// this, so the caller's identity is already on the context.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	platform := ""
	if sc, ok := middleware.GetSession(c); ok {
		platform = sc.Platform
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error reply.
		logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := websocket.NewClient(conn, h.hub, userID, platform)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
