package repositories

import (
	"time"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationFilter narrows notification listings.
type NotificationFilter struct {
	UnreadOnly bool
	TargetKind models.Kind
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(n *models.Notification) error
	InsertCoalesced(n *models.Notification) (bool, error)
	GetByCoalesceKeyForUpdate(key string) (*models.Notification, error)
	GetNotification(recipientID, id uint) (*models.Notification, error)
	SaveNotification(n *models.Notification) error
	SoftDeleteNotification(n *models.Notification) error

	AddActor(notificationID, userID uint, at time.Time) (bool, error)
	RemoveActor(notificationID, userID uint) (bool, error)
	Actors(notificationID uint) ([]models.NotificationActor, error)

	HideByTarget(recipientID uint, target models.Ref) error
	HideByOrigin(recipientID uint, origin models.Ref, targetKind models.Kind) error
	HardDeleteFriendship(a, b uint, connectionID uint) (int64, error)

	List(recipientID uint, filter NotificationFilter, page Page) ([]models.Notification, error)
	UnreadCount(recipientID uint) (int64, error)
	MarkRead(recipientID uint, ids []uint) (int64, error)
	MarkAllRead(recipientID uint) (int64, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(n *models.Notification) error {
	return r.db.Create(n).Error
}

// InsertCoalesced inserts n unless a live row with the same coalesce key
// exists. It reports whether the row was created.
func (r *postgresNotificationRepository) InsertCoalesced(n *models.Notification) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(n)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetByCoalesceKeyForUpdate locks the live row for key until the transaction ends.
func (r *postgresNotificationRepository) GetByCoalesceKeyForUpdate(key string) (*models.Notification, error) {
	var n models.Notification
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("coalesce_key = ?", key).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *postgresNotificationRepository) GetNotification(recipientID, id uint) (*models.Notification, error) {
	var n models.Notification
	err := r.db.Preload("Actors", orderActors).Where("id = ? AND recipient_id = ?", id, recipientID).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *postgresNotificationRepository) SaveNotification(n *models.Notification) error {
	return r.db.Omit(clause.Associations).Save(n).Error
}

func (r *postgresNotificationRepository) SoftDeleteNotification(n *models.Notification) error {
	return r.db.Delete(n).Error
}

// AddActor appends userID to the actor set; it reports false when already present.
func (r *postgresNotificationRepository) AddActor(notificationID, userID uint, at time.Time) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.NotificationActor{NotificationID: notificationID, UserID: userID, CreatedAt: at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *postgresNotificationRepository) RemoveActor(notificationID, userID uint) (bool, error) {
	res := r.db.Where("notification_id = ? AND user_id = ?", notificationID, userID).Delete(&models.NotificationActor{})
	return res.RowsAffected > 0, res.Error
}

// Actors returns the actor list newest first, ties by user id ascending.
func (r *postgresNotificationRepository) Actors(notificationID uint) ([]models.NotificationActor, error) {
	var actors []models.NotificationActor
	err := orderActors(r.db.Where("notification_id = ?", notificationID)).Find(&actors).Error
	return actors, err
}

func orderActors(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC, user_id ASC")
}

// HideByTarget hides the recipient's notifications about target and marks them read.
func (r *postgresNotificationRepository) HideByTarget(recipientID uint, target models.Ref) error {
	return r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND target_kind = ? AND target_id = ?", recipientID, target.Kind, target.ID).
		Updates(map[string]interface{}{"is_visible": false, "is_read": true}).Error
}

// HideByOrigin hides the recipient's notifications of targetKind about origin
// and releases their coalesce keys so the next event starts a fresh row.
func (r *postgresNotificationRepository) HideByOrigin(recipientID uint, origin models.Ref, targetKind models.Kind) error {
	return r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND origin_kind = ? AND origin_id = ? AND target_kind = ?",
			recipientID, origin.Kind, origin.ID, targetKind).
		Updates(map[string]interface{}{"is_visible": false, "is_read": true, "coalesce_key": nil}).Error
}

// HardDeleteFriendship removes friendship notifications between a and b in
// both directions: anything about the connection itself, and friend request
// or acceptance notifications where the other user is an actor.
func (r *postgresNotificationRepository) HardDeleteFriendship(a, b uint, connectionID uint) (int64, error) {
	friendshipKinds := []models.Kind{models.KindFriendRequest, models.KindUser, models.KindConnection}
	var ids []uint
	err := r.db.Unscoped().Model(&models.Notification{}).
		Joins("JOIN notification_actors ON notification_actors.notification_id = notifications.id").
		Where("notifications.target_kind IN ?", friendshipKinds).
		Where("((notifications.recipient_id = ? AND notification_actors.user_id = ?) OR (notifications.recipient_id = ? AND notification_actors.user_id = ?))", a, b, b, a).
		Distinct().Pluck("notifications.id", &ids).Error
	if err != nil {
		return 0, err
	}
	var byConnection []uint
	err = r.db.Unscoped().Model(&models.Notification{}).
		Where("target_kind = ? AND target_id = ? AND recipient_id IN ?", models.KindConnection, connectionID, []uint{a, b}).
		Pluck("id", &byConnection).Error
	if err != nil {
		return 0, err
	}
	ids = append(ids, byConnection...)
	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.db.Where("notification_id IN ?", ids).Delete(&models.NotificationActor{}).Error; err != nil {
		return 0, err
	}
	res := r.db.Unscoped().Where("id IN ?", ids).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

// List returns visible notifications, most recently updated first, with actors loaded
func (r *postgresNotificationRepository) List(recipientID uint, filter NotificationFilter, page Page) ([]models.Notification, error) {
	var notifications []models.Notification
	db := r.db.Preload("Actors", orderActors).
		Where("recipient_id = ? AND is_visible = ?", recipientID, true)
	if filter.UnreadOnly {
		db = db.Where("is_read = ?", false)
	}
	if filter.TargetKind != "" {
		db = db.Where("target_kind = ?", filter.TargetKind)
	}
	err := page.apply(db.Order("notification_updated_at DESC, id DESC")).Find(&notifications).Error
	return notifications, err
}

func (r *postgresNotificationRepository) UnreadCount(recipientID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_visible = ? AND is_read = ?", recipientID, true, false).
		Count(&count).Error
	return count, err
}

// MarkRead is idempotent; ids belonging to other recipients are ignored.
func (r *postgresNotificationRepository) MarkRead(recipientID uint, ids []uint) (int64, error) {
	res := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND id IN ? AND is_read = ?", recipientID, ids, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *postgresNotificationRepository) MarkAllRead(recipientID uint) (int64, error) {
	res := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
