package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civicmirror/civic-backend/internal/dto"
	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/service"
)

// AdminHandler — HTTP слой триажа и управления ролями.
type AdminHandler struct {
	admin   *service.AdminService
	reports *service.ReportService
}

// NewAdminHandler создаёт хэндлер.
func NewAdminHandler(admin *service.AdminService, reports *service.ReportService) *AdminHandler {
	return &AdminHandler{admin: admin, reports: reports}
}

// Queue обрабатывает GET /admin/reports — очередь обращений категории
// текущего администратора.
func (h *AdminHandler) Queue(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	limit, offset := pagination(c)
	reports, err := h.admin.Queue(c.Request.Context(), principal, service.ListReportsInput{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ReportListResponse{Reports: reports, Limit: limit, Offset: offset})
}

// Transition обрабатывает PATCH /admin/reports/:id/status.
func (h *AdminHandler) Transition(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reports.Transition(c.Request.Context(), pathUUID(c, "id"), principal, models.ReportStatus(req.Status))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Stats обрабатывает GET /admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	stats, err := h.admin.Stats(c.Request.Context(), principal)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Promote обрабатывает POST /admin/users/:id/promote.
func (h *AdminHandler) Promote(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	var req dto.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.admin.Promote(c.Request.Context(), principal, pathUUID(c, "id"), req.Role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// SetRole обрабатывает PATCH /admin/users/:id/role.
func (h *AdminHandler) SetRole(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	var req dto.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.admin.SetRole(c.Request.Context(), principal, pathUUID(c, "id"), req.Role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}
