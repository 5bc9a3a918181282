package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionRepository stores (subscriber, author, kind) triples.
type SubscriptionRepository interface {
	Subscribe(sub *models.Subscription) error
	Unsubscribe(subscriberID, authorID uint, kind models.Kind) error
	SubscriberIDs(authorID uint, kind models.Kind) ([]uint, error)
	ListSubscriptions(subscriberID uint) ([]models.Subscription, error)
	DeleteBetween(a, b uint) error
}

type postgresSubscriptionRepository struct {
	db *gorm.DB
}

func NewPostgresSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &postgresSubscriptionRepository{db: db}
}

// Subscribe is idempotent.
func (r *postgresSubscriptionRepository) Subscribe(sub *models.Subscription) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(sub).Error
}

func (r *postgresSubscriptionRepository) Unsubscribe(subscriberID, authorID uint, kind models.Kind) error {
	return r.db.Where("subscriber_id = ? AND author_id = ? AND content_kind = ?", subscriberID, authorID, kind).
		Delete(&models.Subscription{}).Error
}

func (r *postgresSubscriptionRepository) SubscriberIDs(authorID uint, kind models.Kind) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Subscription{}).Where("author_id = ? AND content_kind = ?", authorID, kind).
		Order("subscriber_id ASC").Pluck("subscriber_id", &ids).Error
	return ids, err
}

func (r *postgresSubscriptionRepository) ListSubscriptions(subscriberID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("subscriber_id = ?", subscriberID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// DeleteBetween drops subscriptions in both directions.
func (r *postgresSubscriptionRepository) DeleteBetween(a, b uint) error {
	return r.db.Where("(subscriber_id = ? AND author_id = ?) OR (subscriber_id = ? AND author_id = ?)", a, b, b, a).
		Delete(&models.Subscription{}).Error
}
