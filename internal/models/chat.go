package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatRoom — локальный чат района, привязан к pin code.
type ChatRoom struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PinCode   string    `db:"pin_code" json:"pin_code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatMessage — сообщение в локальном чате.
type ChatMessage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RoomID    uuid.UUID `db:"room_id" json:"room_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatMessageWithUser — сообщение вместе с именем автора.
type ChatMessageWithUser struct {
	ChatMessage
	Username string `db:"username" json:"username"`
}
