package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReadRepository tracks which users have seen which content.
type ReadRepository interface {
	MarkRead(ref models.Ref, userID uint) error
	ReaderIDs(ref models.Ref) ([]uint, error)
	ReadSet(kind models.Kind, ids []uint, userID uint) (map[uint]bool, error)
}

type postgresReadRepository struct {
	db *gorm.DB
}

func NewPostgresReadRepository(db *gorm.DB) ReadRepository {
	return &postgresReadRepository{db: db}
}

// MarkRead is idempotent.
func (r *postgresReadRepository) MarkRead(ref models.Ref, userID uint) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ContentRead{Kind: ref.Kind, ContentID: ref.ID, UserID: userID}).Error
}

func (r *postgresReadRepository) ReaderIDs(ref models.Ref) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ContentRead{}).Where("kind = ? AND content_id = ?", ref.Kind, ref.ID).
		Order("created_at ASC").Pluck("user_id", &ids).Error
	return ids, err
}

// ReadSet reports, for each id of kind, whether userID has read it.
func (r *postgresReadRepository) ReadSet(kind models.Kind, ids []uint, userID uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var read []uint
	err := r.db.Model(&models.ContentRead{}).Where("kind = ? AND user_id = ? AND content_id IN ?", kind, userID, ids).
		Pluck("content_id", &read).Error
	if err != nil {
		return nil, err
	}
	for _, id := range read {
		out[id] = true
	}
	return out, nil
}
