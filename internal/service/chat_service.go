package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/civicmirror/civic-backend/internal/logger"
	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/pkg/apperror"
	"github.com/civicmirror/civic-backend/internal/repository"
	"github.com/civicmirror/civic-backend/internal/validation"
)

// ChatRepository описывает хранилище локальных чатов.
type ChatRepository interface {
	GetRoomByPin(ctx context.Context, pinCode string) (*models.ChatRoom, error)
	CreateRoom(ctx context.Context, room *models.ChatRoom) error
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]models.ChatMessageWithUser, error)
}

// ChatBroadcaster рассылает события подписчикам pin code.
type ChatBroadcaster interface {
	BroadcastToChannel(pinCode string, event string, data any) error
}

// ChatService — локальные чаты районов. Комната определяется pin code из
// анкеты жителя: участвовать можно только в чате своего района.
type ChatService struct {
	rooms     ChatRepository
	contacts  ContactRepository
	broadcast ChatBroadcaster
}

// NewChatService создаёт сервис чатов. Broadcaster может быть nil,
// тогда события не рассылаются.
func NewChatService(rooms ChatRepository, contacts ContactRepository, broadcast ChatBroadcaster) *ChatService {
	return &ChatService{rooms: rooms, contacts: contacts, broadcast: broadcast}
}

// Room возвращает комнату района текущего пользователя, создавая её при
// первом обращении. Гонку одновременных созданий разрешает уникальность
// pin code в базе.
func (s *ChatService) Room(ctx context.Context, userID uuid.UUID) (*models.ChatRoom, error) {
	pin, err := s.residentPin(ctx, userID)
	if err != nil {
		return nil, err
	}

	room := &models.ChatRoom{
		PinCode: pin,
		Name:    fmt.Sprintf("Район %s", pin),
	}
	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Post сохраняет сообщение и рассылает его подключённым жителям района.
// Рассылка best-effort: сообщение уже в истории, ошибка доставки логируется.
func (s *ChatService) Post(ctx context.Context, userID uuid.UUID, username, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if err := validation.ValidateNonEmpty("сообщение", text); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("сообщение", text, validation.MinMessageLength, validation.MaxMessageLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	room, err := s.Room(ctx, userID)
	if err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		RoomID:  room.ID,
		UserID:  userID,
		Message: text,
	}
	if err := s.rooms.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	if s.broadcast != nil {
		event := models.ChatMessageWithUser{ChatMessage: *msg, Username: username}
		if err := s.broadcast.BroadcastToChannel(room.PinCode, "chat_message", event); err != nil {
			logger.Log.WithError(err).Warn("chat service: не удалось разослать сообщение")
		}
	}

	return msg, nil
}

// History возвращает историю чата района пользователя, новые первыми.
func (s *ChatService) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ChatMessageWithUser, error) {
	room, err := s.Room(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.rooms.ListMessages(ctx, room.ID, normalizeLimit(limit), maxInt(offset, 0))
}

// ResidentPin возвращает pin code района пользователя для подписки WebSocket.
func (s *ChatService) ResidentPin(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.residentPin(ctx, userID)
}

func (s *ChatService) residentPin(ctx context.Context, userID uuid.UUID) (string, error) {
	detail, err := s.contacts.GetDetails(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrDetailsNotFound) {
			return "", apperror.New(apperror.ErrCodeBadRequest, "заполните pin code в анкете, чтобы пользоваться чатом района")
		}
		return "", err
	}
	if detail.PinCode == nil || *detail.PinCode == "" {
		return "", apperror.New(apperror.ErrCodeBadRequest, "заполните pin code в анкете, чтобы пользоваться чатом района")
	}
	return *detail.PinCode, nil
}
