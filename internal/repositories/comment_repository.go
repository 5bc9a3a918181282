package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(comment *models.Comment) error
	GetCommentByID(id uint) (*models.Comment, error)
	GetCommentsByParent(parent models.Ref, page Page) ([]models.Comment, error)
	UpdateComment(comment *models.Comment) error
	ParticipantIDs(parent models.Ref, excludeCommentID uint) ([]uint, error)
	DescendantIDs(parentIDs []uint) ([]uint, error)
	IDsByRoot(root models.Ref) ([]uint, error)
	SoftDeleteComments(ids []uint) error
}

type postgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new CommentRepository
func NewPostgresCommentRepository(db *gorm.DB) CommentRepository {
	return &postgresCommentRepository{db: db}
}

func (r *postgresCommentRepository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

func (r *postgresCommentRepository) GetCommentByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetCommentsByParent lists direct children of parent, oldest first
func (r *postgresCommentRepository) GetCommentsByParent(parent models.Ref, page Page) ([]models.Comment, error) {
	var comments []models.Comment
	db := r.db.Where("parent_kind = ? AND parent_id = ?", parent.Kind, parent.ID).Order("created_at ASC, id ASC")
	err := page.apply(db).Find(&comments).Error
	return comments, err
}

func (r *postgresCommentRepository) UpdateComment(comment *models.Comment) error {
	return r.db.Save(comment).Error
}

// ParticipantIDs returns the distinct authors of live comments directly under
// parent, excluding the comment that triggered the lookup.
func (r *postgresCommentRepository) ParticipantIDs(parent models.Ref, excludeCommentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Comment{}).
		Where("parent_kind = ? AND parent_id = ? AND id <> ?", parent.Kind, parent.ID, excludeCommentID).
		Distinct().Order("author_id ASC").Pluck("author_id", &ids).Error
	return ids, err
}

// DescendantIDs walks reply chains below parentIDs and returns every live
// descendant comment id.
func (r *postgresCommentRepository) DescendantIDs(parentIDs []uint) ([]uint, error) {
	var all []uint
	frontier := parentIDs
	for len(frontier) > 0 {
		var next []uint
		err := r.db.Model(&models.Comment{}).
			Where("parent_kind = ? AND parent_id IN ?", models.KindComment, frontier).
			Pluck("id", &next).Error
		if err != nil {
			return nil, err
		}
		all = append(all, next...)
		frontier = next
	}
	return all, nil
}

// IDsByRoot returns every live comment in the thread of root.
func (r *postgresCommentRepository) IDsByRoot(root models.Ref) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Comment{}).
		Where("root_kind = ? AND root_id = ?", root.Kind, root.ID).Pluck("id", &ids).Error
	return ids, err
}

func (r *postgresCommentRepository) SoftDeleteComments(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Where("id IN ?", ids).Delete(&models.Comment{}).Error
}
