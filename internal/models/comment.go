package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment — комментарий жителя к обращению.
type Comment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ReportID  uuid.UUID `db:"report_id" json:"report_id"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CommentWithUser — комментарий вместе с именем автора для выдачи списком.
type CommentWithUser struct {
	Comment
	Username string `db:"username" json:"username"`
}
