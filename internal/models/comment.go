package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment hangs off a post or another comment. RootKind/RootID always name
// the top-level post so thread fan-out and audience checks need one lookup.
type Comment struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	AuthorID   uint           `json:"author_id" gorm:"index;not null"`
	ParentKind Kind           `json:"parent_kind" gorm:"size:20;not null;index:idx_comment_parent"`
	ParentID   uint           `json:"parent_id" gorm:"not null;index:idx_comment_parent"`
	RootKind   Kind           `json:"root_kind" gorm:"size:20;not null;index:idx_comment_root"`
	RootID     uint           `json:"root_id" gorm:"not null;index:idx_comment_root"`
	Content    string         `json:"content" gorm:"type:text;not null"`
	IsPrivate  bool           `json:"is_private" gorm:"not null;default:false"`
	IsEdited   bool           `json:"is_edited" gorm:"not null;default:false"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (c *Comment) Ref() Ref       { return Ref{Kind: KindComment, ID: c.ID} }
func (c *Comment) ParentRef() Ref { return Ref{Kind: c.ParentKind, ID: c.ParentID} }
func (c *Comment) RootRef() Ref   { return Ref{Kind: c.RootKind, ID: c.RootID} }

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool { return c.ParentKind == KindComment }

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	ParentKind Kind   `json:"parent_kind" validate:"required,oneof=response note moment check_in comment"`
	ParentID   uint   `json:"parent_id" validate:"required"`
	Content    string `json:"content" validate:"max=500"`
	IsPrivate  bool   `json:"is_private"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"max=500"`
}
