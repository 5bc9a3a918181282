package services

import (
	"context"
	"strings"
	"time"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// ChatService guards two-party rooms and persists their messages.
type ChatService struct {
	store    *repositories.Store
	messages repositories.ChatMessageRepository
	now      Clock
}

func NewChatService(store *repositories.Store, messages repositories.ChatMessageRepository, now Clock) *ChatService {
	return &ChatService{store: store, messages: messages, now: now}
}

// Room returns an active room that userID belongs to.
func (s *ChatService) Room(ctx context.Context, userID, roomID uint) (*models.ChatRoom, error) {
	room, err := s.store.WithContext(ctx).ChatRooms.GetRoomByID(roomID)
	if err != nil {
		return nil, notFoundAs(err, apperrors.NotFound)
	}
	if !room.HasMember(userID) || !room.Active {
		return nil, apperrors.E(apperrors.PermissionDenied)
	}
	return room, nil
}

func (s *ChatService) Rooms(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	return s.store.WithContext(ctx).ChatRooms.ListRooms(userID)
}

// History pages a room's messages, newest first.
func (s *ChatService) History(ctx context.Context, userID, roomID uint, skip, limit int64) ([]models.ChatMessage, error) {
	if _, err := s.Room(ctx, userID, roomID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	return s.messages.GetMessagesByRoom(ctx, roomID, skip, limit)
}

// Post stores a frame from userID with a server UTC timestamp. The sender
// identity comes from the session, not from the frame.
func (s *ChatService) Post(ctx context.Context, room *models.ChatRoom, sender *models.User, text string) (*models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.E(apperrors.EmptyContent)
	}
	msg := &models.ChatMessage{
		RoomID:    room.ID,
		UserID:    sender.ID,
		UserName:  sender.Username,
		Message:   text,
		Timestamp: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
