package dto

// RegisterRequest represents the request to register a new user
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserDetailsRequest represents the request to update resident details
type UserDetailsRequest struct {
	Age         *int    `json:"age"`
	Sex         *string `json:"sex"`
	PhoneNumber *string `json:"phone_number"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	PinCode     *string `json:"pin_code"`
}

// CreateReportRequest represents the JSON request to create a report.
// Multipart uploads carry the same fields as form values plus an image file.
type CreateReportRequest struct {
	Title       string `json:"title" form:"title" binding:"required"`
	Description string `json:"description" form:"description"`
	Location    string `json:"location" form:"location"`
	Type        string `json:"type" form:"type"`
}

// TransitionRequest represents the request to change a report status
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetRoleRequest represents the request to assign an admin role
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// CreateCommentRequest represents the request to comment on a report
type CreateCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// PostChatMessageRequest represents the request to post a locality chat message
type PostChatMessageRequest struct {
	Message string `json:"message" binding:"required"`
}
