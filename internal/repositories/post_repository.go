package repositories

import (
	"fmt"
	"time"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
)

// PostRepository handles the four top-level post kinds behind one interface.
// Loaders dispatch on models.Kind.
type PostRepository interface {
	CreatePost(post models.Content) error
	SavePost(post models.Content) error
	GetPost(ref models.Ref) (models.Content, error)
	GetPostUnscoped(ref models.Ref) (models.Content, error)
	SoftDeletePost(ref models.Ref) error
	ListByAuthor(kind models.Kind, authorID uint, page Page) ([]models.Content, error)
	ListByAuthors(kind models.Kind, authorIDs []uint, before *time.Time, limit int) ([]models.Content, error)
	ResponsesToQuestion(questionID uint, page Page) ([]models.Content, error)
	HasResponded(authorID, questionID uint) (bool, error)
}

type postgresPostRepository struct {
	db *gorm.DB
}

func NewPostgresPostRepository(db *gorm.DB) PostRepository {
	return &postgresPostRepository{db: db}
}

// NewContent returns an empty row for kind.
func NewContent(kind models.Kind) (models.Content, error) {
	switch kind {
	case models.KindResponse:
		return &models.Response{}, nil
	case models.KindNote:
		return &models.Note{}, nil
	case models.KindMoment:
		return &models.Moment{}, nil
	case models.KindCheckIn:
		return &models.CheckIn{}, nil
	}
	return nil, fmt.Errorf("unsupported post kind %q", kind)
}

func findPosts[T any, PT interface {
	*T
	models.Content
}](db *gorm.DB) ([]models.Content, error) {
	var rows []T
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Content, 0, len(rows))
	for i := range rows {
		out = append(out, PT(&rows[i]))
	}
	return out, nil
}

func findByKind(kind models.Kind, db *gorm.DB) ([]models.Content, error) {
	switch kind {
	case models.KindResponse:
		return findPosts[models.Response](db)
	case models.KindNote:
		return findPosts[models.Note](db)
	case models.KindMoment:
		return findPosts[models.Moment](db)
	case models.KindCheckIn:
		return findPosts[models.CheckIn](db)
	}
	return nil, fmt.Errorf("unsupported post kind %q", kind)
}

func (r *postgresPostRepository) CreatePost(post models.Content) error {
	return r.db.Create(post).Error
}

func (r *postgresPostRepository) SavePost(post models.Content) error {
	return r.db.Save(post).Error
}

// GetPost loads a live post by reference
func (r *postgresPostRepository) GetPost(ref models.Ref) (models.Content, error) {
	post, err := NewContent(ref.Kind)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	if err := r.db.First(post, ref.ID).Error; err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postgresPostRepository) GetPostUnscoped(ref models.Ref) (models.Content, error) {
	post, err := NewContent(ref.Kind)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	if err := r.db.Unscoped().First(post, ref.ID).Error; err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postgresPostRepository) SoftDeletePost(ref models.Ref) error {
	post, err := NewContent(ref.Kind)
	if err != nil {
		return err
	}
	return r.db.Delete(post, ref.ID).Error
}

// ListByAuthor lists an author's posts of kind, newest first
func (r *postgresPostRepository) ListByAuthor(kind models.Kind, authorID uint, page Page) ([]models.Content, error) {
	db := r.db.Where("author_id = ?", authorID).Order("created_at DESC, id DESC")
	return findByKind(kind, page.apply(db))
}

// ListByAuthors is the feed query: posts of kind by any of authorIDs created
// strictly before the cursor, newest first.
func (r *postgresPostRepository) ListByAuthors(kind models.Kind, authorIDs []uint, before *time.Time, limit int) ([]models.Content, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	db := r.db.Where("author_id IN ?", authorIDs)
	if before != nil {
		db = db.Where("created_at < ?", *before)
	}
	return findByKind(kind, db.Order("created_at DESC, id DESC").Limit(limit))
}

func (r *postgresPostRepository) ResponsesToQuestion(questionID uint, page Page) ([]models.Content, error) {
	db := r.db.Where("question_id = ?", questionID).Order("created_at DESC, id DESC")
	return findByKind(models.KindResponse, page.apply(db))
}

func (r *postgresPostRepository) HasResponded(authorID, questionID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Response{}).
		Where("author_id = ? AND question_id = ?", authorID, questionID).Count(&count).Error
	return count > 0, err
}
