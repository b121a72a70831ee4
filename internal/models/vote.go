package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote — голос пользователя за обращение. Пара (user_id, report_id) уникальна,
// это гарантирует ограничение на уровне базы.
type Vote struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ReportID  uuid.UUID `db:"report_id" json:"report_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
