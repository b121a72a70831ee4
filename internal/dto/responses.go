package dto

import (
	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/service"
)

// AuthResponse represents the result of register, login or refresh
type AuthResponse struct {
	User   *models.User       `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// NewAuthResponse creates an AuthResponse from a service result
func NewAuthResponse(result *service.AuthResult) *AuthResponse {
	return &AuthResponse{
		User:   result.User,
		Tokens: result.TokenPair,
	}
}

// ReportListResponse represents a paginated report list
type ReportListResponse struct {
	Reports []models.ReportWithVotes `json:"reports"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}

// CommentListResponse represents a report discussion page
type CommentListResponse struct {
	Comments []models.CommentWithUser `json:"comments"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

// ChatHistoryResponse represents a locality chat history page
type ChatHistoryResponse struct {
	Room     *models.ChatRoom             `json:"room"`
	Messages []models.ChatMessageWithUser `json:"messages"`
	Limit    int                          `json:"limit"`
	Offset   int                          `json:"offset"`
}
