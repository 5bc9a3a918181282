package services

import (
	"context"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// NotificationService is the recipient's read side of notifications plus
// device registration for push.
type NotificationService struct {
	store *repositories.Store
}

func NewNotificationService(store *repositories.Store) *NotificationService {
	return &NotificationService{store: store}
}

// NotificationView is a notification rendered in one language.
type NotificationView struct {
	models.Notification
	Message string `json:"message"`
}

func (s *NotificationService) List(ctx context.Context, userID uint, lang models.Language, filter repositories.NotificationFilter, page repositories.Page) ([]NotificationView, error) {
	if filter.TargetKind != "" && filter.TargetKind != models.KindFriendRequest && filter.TargetKind != models.KindResponseRequest {
		return nil, apperrors.New(apperrors.UnknownField, "target_kind")
	}
	notifications, err := s.store.WithContext(ctx).Notifications.List(userID, filter, page)
	if err != nil {
		return nil, err
	}
	views := make([]NotificationView, 0, len(notifications))
	for i := range notifications {
		views = append(views, NotificationView{Notification: notifications[i], Message: notifications[i].Message(lang)})
	}
	return views, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.store.WithContext(ctx).Notifications.UnreadCount(userID)
}

// MarkRead marks the caller's ids read. Unknown or foreign ids are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.store.WithContext(ctx).Notifications.MarkRead(userID, uniq(ids))
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.store.WithContext(ctx).Notifications.MarkAllRead(userID)
}

// RegisterDevice upserts a push registration for userID.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uint, req models.RegisterDeviceRequest) (*models.Device, error) {
	device := &models.Device{
		UserID:         userID,
		RegistrationID: req.RegistrationID,
		Language:       models.ParseLanguage(req.Language),
	}
	if err := s.store.WithContext(ctx).Devices.UpsertDevice(device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *NotificationService) UnregisterDevice(ctx context.Context, registrationID string) error {
	return s.store.WithContext(ctx).Devices.DeactivateDevice(registrationID)
}
