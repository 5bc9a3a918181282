package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository defines the interface for question data operations
type QuestionRepository interface {
	CreateQuestion(q *models.Question) error
	GetQuestionUnscoped(id uint) (*models.Question, error)
	GetDailyQuestions(date string) ([]models.Question, error)
	ListUnselected(limit int) ([]models.Question, error)
	SaveQuestion(q *models.Question) error
	ResetSelected() error
}

type postgresQuestionRepository struct {
	db *gorm.DB
}

func NewPostgresQuestionRepository(db *gorm.DB) QuestionRepository {
	return &postgresQuestionRepository{db: db}
}

func (r *postgresQuestionRepository) CreateQuestion(q *models.Question) error {
	return r.db.Create(q).Error
}

// GetQuestionUnscoped also returns deleted questions so callers can tell
// "deleted" from "never existed".
func (r *postgresQuestionRepository) GetQuestionUnscoped(id uint) (*models.Question, error) {
	var q models.Question
	if err := r.db.Unscoped().First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// GetDailyQuestions returns live questions stamped with date, oldest first.
func (r *postgresQuestionRepository) GetDailyQuestions(date string) ([]models.Question, error) {
	var selected []models.Question
	if err := r.db.Where("selected_dates IS NOT NULL").Order("id ASC").Find(&selected).Error; err != nil {
		return nil, err
	}
	out := selected[:0]
	for _, q := range selected {
		if q.SelectedOn(date) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *postgresQuestionRepository) ListUnselected(limit int) ([]models.Question, error) {
	var qs []models.Question
	err := r.db.Where("selected = ? AND is_admin_question = ?", false, true).
		Order("id ASC").Limit(limit).Find(&qs).Error
	return qs, err
}

func (r *postgresQuestionRepository) SaveQuestion(q *models.Question) error {
	return r.db.Save(q).Error
}

// ResetSelected clears the selected flag on every question.
func (r *postgresQuestionRepository) ResetSelected() error {
	return r.db.Model(&models.Question{}).Where("selected = ?", true).Update("selected", false).Error
}

// ResponseRequestRepository defines the interface for response request data operations
type ResponseRequestRepository interface {
	CreateResponseRequest(req *models.ResponseRequest) error
	PendingFor(requesteeID, questionID uint) ([]models.ResponseRequest, error)
	FulfillFor(requesteeID, questionID uint) error
	ListReceived(requesteeID uint, page Page) ([]models.ResponseRequest, error)
}

type postgresResponseRequestRepository struct {
	db *gorm.DB
}

func NewPostgresResponseRequestRepository(db *gorm.DB) ResponseRequestRepository {
	return &postgresResponseRequestRepository{db: db}
}

// CreateResponseRequest inserts req; a live duplicate fails with gorm.ErrDuplicatedKey.
func (r *postgresResponseRequestRepository) CreateResponseRequest(req *models.ResponseRequest) error {
	return r.db.Create(req).Error
}

// PendingFor lists live requests asking requesteeID to answer questionID.
func (r *postgresResponseRequestRepository) PendingFor(requesteeID, questionID uint) ([]models.ResponseRequest, error) {
	var reqs []models.ResponseRequest
	err := r.db.Where("requestee_id = ? AND question_id = ?", requesteeID, questionID).
		Order("created_at ASC, id ASC").Find(&reqs).Error
	return reqs, err
}

// FulfillFor soft-deletes the requests answered by a response.
func (r *postgresResponseRequestRepository) FulfillFor(requesteeID, questionID uint) error {
	return r.db.Where("requestee_id = ? AND question_id = ?", requesteeID, questionID).
		Delete(&models.ResponseRequest{}).Error
}

func (r *postgresResponseRequestRepository) ListReceived(requesteeID uint, page Page) ([]models.ResponseRequest, error) {
	var reqs []models.ResponseRequest
	db := r.db.Where("requestee_id = ?", requesteeID).Order("created_at DESC")
	err := page.apply(db).Find(&reqs).Error
	return reqs, err
}
