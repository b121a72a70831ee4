package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civicmirror/civic-backend/internal/dto"
	"github.com/civicmirror/civic-backend/internal/service"
)

// CommentHandler — HTTP слой обсуждения обращений.
type CommentHandler struct {
	comments *service.CommentService
}

// NewCommentHandler создаёт хэндлер.
func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// Create обрабатывает POST /reports/:id/comments.
func (h *CommentHandler) Create(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), principal.UserID, pathUUID(c, "id"), req.Text)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// List обрабатывает GET /reports/:id/comments.
func (h *CommentHandler) List(c *gin.Context) {
	limit, offset := pagination(c)

	comments, err := h.comments.List(c.Request.Context(), pathUUID(c, "id"), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.CommentListResponse{Comments: comments, Limit: limit, Offset: offset})
}

// Delete обрабатывает DELETE /comments/:id.
func (h *CommentHandler) Delete(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	if err := h.comments.Delete(c.Request.Context(), principal, pathUUID(c, "id")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "комментарий удалён"})
}
