package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/civicmirror/civic-backend/internal/service"
	"github.com/civicmirror/civic-backend/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений локального чата.
type WSHandler struct {
	hub          *ws.Hub
	chat         *service.ChatService
	tokenManager *service.TokenManager
	upgrader     websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер.
func NewWSHandler(hub *ws.Hub, chat *service.ChatService, tokens *service.TokenManager) *WSHandler {
	return &WSHandler{
		hub:          hub,
		chat:         chat,
		tokenManager: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
// Токен передаётся query параметром: браузерный WebSocket API не умеет
// выставлять заголовок Authorization. Подписка привязывается к pin code
// из анкеты жителя.
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access токен обязателен"})
		return
	}

	principal, err := h.tokenManager.ParseAccess(rawToken)
	if err != nil || principal.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "невалидный access токен"})
		return
	}

	pin, err := h.chat.ResidentPin(c.Request.Context(), principal.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	client := ws.NewClient(conn, h.hub, principal.UserID, pin)
	h.hub.Register(client)

	client.Run(c.Request.Context())
}
