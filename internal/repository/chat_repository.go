package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/repository/common"
)

var ErrRoomNotFound = errors.New("chat room not found")

type ChatRepository struct {
	db *sqlx.DB
}

func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) GetRoomByPin(ctx context.Context, pinCode string) (*models.ChatRoom, error) {
	return common.GetByField[models.ChatRoom](ctx, r.db, "chat_rooms", "pin_code", pinCode, ErrRoomNotFound)
}

// CreateRoom создаёт комнату района. При гонке на один pin code выигрывает
// первая вставка, остальные получают уже существующую комнату.
func (r *ChatRepository) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO chat_rooms (pin_code, name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, room.PinCode, room.Name).Scan(&room.ID, &room.CreatedAt)
	if common.IsUniqueViolation(err, "") {
		existing, getErr := r.GetRoomByPin(ctx, room.PinCode)
		if getErr != nil {
			return getErr
		}
		*room = *existing
		return nil
	}
	return err
}

func (r *ChatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (room_id, user_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, msg.RoomID, msg.UserID, msg.Message).Scan(&msg.ID, &msg.CreatedAt)
}

// ListMessages возвращает историю комнаты вместе с именами авторов,
// новые первыми.
func (r *ChatRepository) ListMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]models.ChatMessageWithUser, error) {
	var messages []models.ChatMessageWithUser
	err := r.db.SelectContext(ctx, &messages, `
		SELECT m.*, u.username
		FROM chat_messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.created_at DESC LIMIT $2 OFFSET $3
	`, roomID, limit, offset)
	return messages, err
}
