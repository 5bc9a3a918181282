package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is a prompt users respond to. Daily questions are picked by the
// selection job and stamped into SelectedDates ("2006-01-02").
type Question struct {
	ID              uint                        `json:"id" gorm:"primaryKey"`
	Content         string                      `json:"content" gorm:"type:text;not null"`
	ContentKo       string                      `json:"content_ko" gorm:"type:text"`
	Selected        bool                        `json:"-" gorm:"not null;default:false;index"`
	SelectedDates   datatypes.JSONSlice[string] `json:"-"`
	IsAdminQuestion bool                        `json:"is_admin_question" gorm:"not null;default:true"`
	CreatedAt       time.Time                   `json:"created_at"`
	DeletedAt       gorm.DeletedAt              `json:"-" gorm:"index"`
}

// SelectedOn reports whether the question was picked for date.
func (q *Question) SelectedOn(date string) bool {
	for _, d := range q.SelectedDates {
		if d == date {
			return true
		}
	}
	return false
}

// Text returns the question in lang, falling back to English.
func (q *Question) Text(lang Language) string {
	if lang == LanguageKo && q.ContentKo != "" {
		return q.ContentKo
	}
	return q.Content
}

// Response is an answer to a Question.
type Response struct {
	PostBase
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	Content    string `json:"content" gorm:"type:text;not null"`
}

func (r *Response) Ref() Ref     { return Ref{Kind: KindResponse, ID: r.ID} }
func (r *Response) Body() string { return r.Content }

// ResponseRequest asks the requestee to answer a question.
type ResponseRequest struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	RequesterID uint           `json:"requester_id" gorm:"index;not null"`
	RequesteeID uint           `json:"requestee_id" gorm:"index;not null"`
	QuestionID  uint           `json:"question_id" gorm:"index;not null"`
	Message     string         `json:"message,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (r *ResponseRequest) Ref() Ref { return Ref{Kind: KindResponseRequest, ID: r.ID} }

type CreateResponseRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Content    string `json:"content" validate:"max=5000"`
	AccessRequest
}

type CreateResponseRequestRequest struct {
	QuestionID  uint   `json:"question_id" validate:"required"`
	RequesteeID uint   `json:"requestee_id" validate:"required"`
	Message     string `json:"message,omitempty" validate:"max=200"`
}
