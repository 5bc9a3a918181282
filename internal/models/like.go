package models

import (
	"time"

	"gorm.io/gorm"
)

// Like represents a like on a post or comment. Unique per (user, parent) among live rows.
type Like struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"index;not null"`
	ParentKind Kind           `json:"parent_kind" gorm:"size:20;not null;index:idx_like_parent"`
	ParentID   uint           `json:"parent_id" gorm:"not null;index:idx_like_parent"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (l *Like) Ref() Ref       { return Ref{Kind: KindLike, ID: l.ID} }
func (l *Like) ParentRef() Ref { return Ref{Kind: l.ParentKind, ID: l.ParentID} }

// CreateLikeRequest defines the request body for liking a post or comment
type CreateLikeRequest struct {
	ParentKind Kind `json:"parent_kind" validate:"required,oneof=response note moment check_in comment"`
	ParentID   uint `json:"parent_id" validate:"required"`
}
