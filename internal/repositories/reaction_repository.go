package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
)

// ReactionRepository defines the interface for emoji reaction operations
type ReactionRepository interface {
	CreateReaction(reaction *models.Reaction) error
	GetReactionByID(id uint) (*models.Reaction, error)
	GetReaction(userID uint, emoji string, parent models.Ref) (*models.Reaction, error)
	DeleteReaction(reaction *models.Reaction) error
	GetReactionsByParent(parent models.Ref) ([]models.Reaction, error)
	SoftDeleteByParents(parents []models.Ref) error
}

type postgresReactionRepository struct {
	db *gorm.DB
}

func NewPostgresReactionRepository(db *gorm.DB) ReactionRepository {
	return &postgresReactionRepository{db: db}
}

// CreateReaction inserts reaction; a live duplicate fails with gorm.ErrDuplicatedKey.
func (r *postgresReactionRepository) CreateReaction(reaction *models.Reaction) error {
	return r.db.Create(reaction).Error
}

func (r *postgresReactionRepository) GetReactionByID(id uint) (*models.Reaction, error) {
	var reaction models.Reaction
	if err := r.db.First(&reaction, id).Error; err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *postgresReactionRepository) GetReaction(userID uint, emoji string, parent models.Ref) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.Where("user_id = ? AND emoji = ? AND parent_kind = ? AND parent_id = ?",
		userID, emoji, parent.Kind, parent.ID).First(&reaction).Error
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *postgresReactionRepository) DeleteReaction(reaction *models.Reaction) error {
	return r.db.Delete(reaction).Error
}

func (r *postgresReactionRepository) GetReactionsByParent(parent models.Ref) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := r.db.Where("parent_kind = ? AND parent_id = ?", parent.Kind, parent.ID).
		Order("created_at DESC").Find(&reactions).Error
	return reactions, err
}

func (r *postgresReactionRepository) SoftDeleteByParents(parents []models.Ref) error {
	return softDeleteByParents(r.db, &models.Reaction{}, parents)
}
