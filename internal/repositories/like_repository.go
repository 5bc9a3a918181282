package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the interface for like operations
type LikeRepository interface {
	CreateLike(like *models.Like) error
	GetLikeByID(id uint) (*models.Like, error)
	GetLike(userID uint, parent models.Ref) (*models.Like, error)
	DeleteLike(like *models.Like) error
	CountLikes(parent models.Ref) (int64, error)
	GetLikesByParent(parent models.Ref, page Page) ([]models.Like, error)
	SoftDeleteByParents(parents []models.Ref) error
}

type postgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new LikeRepository
func NewPostgresLikeRepository(db *gorm.DB) LikeRepository {
	return &postgresLikeRepository{db: db}
}

// CreateLike inserts like; a live duplicate fails with gorm.ErrDuplicatedKey.
func (r *postgresLikeRepository) CreateLike(like *models.Like) error {
	return r.db.Create(like).Error
}

func (r *postgresLikeRepository) GetLikeByID(id uint) (*models.Like, error) {
	var like models.Like
	if err := r.db.First(&like, id).Error; err != nil {
		return nil, err
	}
	return &like, nil
}

func (r *postgresLikeRepository) GetLike(userID uint, parent models.Ref) (*models.Like, error) {
	var like models.Like
	err := r.db.Where("user_id = ? AND parent_kind = ? AND parent_id = ?", userID, parent.Kind, parent.ID).First(&like).Error
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func (r *postgresLikeRepository) DeleteLike(like *models.Like) error {
	return r.db.Delete(like).Error
}

func (r *postgresLikeRepository) CountLikes(parent models.Ref) (int64, error) {
	var count int64
	err := r.db.Model(&models.Like{}).Where("parent_kind = ? AND parent_id = ?", parent.Kind, parent.ID).Count(&count).Error
	return count, err
}

func (r *postgresLikeRepository) GetLikesByParent(parent models.Ref, page Page) ([]models.Like, error) {
	var likes []models.Like
	db := r.db.Where("parent_kind = ? AND parent_id = ?", parent.Kind, parent.ID).Order("created_at DESC")
	err := page.apply(db).Find(&likes).Error
	return likes, err
}

func (r *postgresLikeRepository) SoftDeleteByParents(parents []models.Ref) error {
	return softDeleteByParents(r.db, &models.Like{}, parents)
}

// softDeleteByParents soft-deletes rows of model whose (parent_kind, parent_id)
// is in parents, one statement per kind.
func softDeleteByParents(db *gorm.DB, model interface{}, parents []models.Ref) error {
	byKind := make(map[models.Kind][]uint)
	for _, p := range parents {
		byKind[p.Kind] = append(byKind[p.Kind], p.ID)
	}
	for kind, ids := range byKind {
		if err := db.Where("parent_kind = ? AND parent_id IN ?", kind, ids).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
