package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/civicmirror/civic-backend/internal/dto"
	"github.com/civicmirror/civic-backend/internal/service"
)

// ReportHandler — HTTP слой обращений жителей.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler создаёт хэндлер.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Create обрабатывает POST /reports. Принимает JSON либо multipart/form-data
// с полем image; во втором случае фото сохраняется и классифицируется.
func (h *ReportHandler) Create(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	var req dto.CreateReportRequest
	var image []byte

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		image = readFormImage(c)
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	report, err := h.reports.Create(c.Request.Context(), principal.UserID, service.CreateReportInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		TypeHint:    req.Type,
		Image:       image,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// List обрабатывает GET /reports.
func (h *ReportHandler) List(c *gin.Context) {
	limit, offset := pagination(c)

	reports, err := h.reports.List(c.Request.Context(), service.ListReportsInput{
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

// Get обрабатывает GET /reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), pathUUID(c, "id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListMine обрабатывает GET /reports/mine.
func (h *ReportHandler) ListMine(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	limit, offset := pagination(c)
	reports, err := h.reports.ListMine(c.Request.Context(), principal.UserID, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ReportListResponse{Reports: reports, Limit: limit, Offset: offset})
}

// ListVoted обрабатывает GET /reports/voted.
func (h *ReportHandler) ListVoted(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	limit, offset := pagination(c)
	reports, err := h.reports.ListVoted(c.Request.Context(), principal.UserID, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ReportListResponse{Reports: reports, Limit: limit, Offset: offset})
}

// Vote обрабатывает POST /reports/:id/vote.
func (h *ReportHandler) Vote(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	report, err := h.reports.Vote(c.Request.Context(), principal.UserID, pathUUID(c, "id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// readFormImage читает файл из поля image, если он есть. Ошибки чтения не
// прерывают создание обращения: оно продолжается без фото.
func readFormImage(c *gin.Context) []byte {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return nil
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil
	}
	defer f.Close()

	image, err := io.ReadAll(f)
	if err != nil {
		return nil
	}
	return image
}
