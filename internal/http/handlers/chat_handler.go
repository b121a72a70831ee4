package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civicmirror/civic-backend/internal/dto"
	"github.com/civicmirror/civic-backend/internal/service"
)

// ChatHandler — REST слой локального чата района.
type ChatHandler struct {
	chat *service.ChatService
	auth *service.AuthService
}

// NewChatHandler создаёт хэндлер.
func NewChatHandler(chat *service.ChatService, auth *service.AuthService) *ChatHandler {
	return &ChatHandler{chat: chat, auth: auth}
}

// Room обрабатывает GET /chat/room — комната района текущего пользователя.
func (h *ChatHandler) Room(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	room, err := h.chat.Room(c.Request.Context(), principal.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// History обрабатывает GET /chat/messages.
func (h *ChatHandler) History(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	room, err := h.chat.Room(c.Request.Context(), principal.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	limit, offset := pagination(c)
	messages, err := h.chat.History(c.Request.Context(), principal.UserID, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ChatHistoryResponse{Room: room, Messages: messages, Limit: limit, Offset: offset})
}

// Post обрабатывает POST /chat/messages. Сообщение сохраняется в историю
// и рассылается подключённым по WebSocket жителям района.
func (h *ChatHandler) Post(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	var req dto.PostChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Me(c.Request.Context(), principal.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	msg, err := h.chat.Post(c.Request.Context(), principal.UserID, user.Username, req.Message)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}
