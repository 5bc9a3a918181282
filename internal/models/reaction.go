package models

import (
	"time"

	"gorm.io/gorm"
)

// Reaction is an emoji left on a post or comment. Unique per
// (user, emoji, parent) among live rows.
type Reaction struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"index;not null"`
	Emoji      string         `json:"emoji" gorm:"size:16;not null"`
	ParentKind Kind           `json:"parent_kind" gorm:"size:20;not null;index:idx_reaction_parent"`
	ParentID   uint           `json:"parent_id" gorm:"not null;index:idx_reaction_parent"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (r *Reaction) Ref() Ref       { return Ref{Kind: KindReaction, ID: r.ID} }
func (r *Reaction) ParentRef() Ref { return Ref{Kind: r.ParentKind, ID: r.ParentID} }

type CreateReactionRequest struct {
	ParentKind Kind   `json:"parent_kind" validate:"required,oneof=response note moment check_in comment"`
	ParentID   uint   `json:"parent_id" validate:"required"`
	Emoji      string `json:"emoji" validate:"required,max=16"`
}
