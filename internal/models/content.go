package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Kind tags a row in the polymorphic (kind, id) references used by comments,
// reactions, likes, reports and notifications.
type Kind string

const (
	KindResponse        Kind = "response"
	KindNote            Kind = "note"
	KindMoment          Kind = "moment"
	KindCheckIn         Kind = "check_in"
	KindComment         Kind = "comment"
	KindReaction        Kind = "reaction"
	KindLike            Kind = "like"
	KindQuestion        Kind = "question"
	KindResponseRequest Kind = "response_request"
	KindFriendRequest   Kind = "friend_request"
	KindConnection      Kind = "connection"
	KindUser            Kind = "user"
	KindDailyPrompt     Kind = "daily_prompt"
)

// IsPost reports whether kind is top-level user content that carries its own visibility.
func (k Kind) IsPost() bool {
	switch k {
	case KindResponse, KindNote, KindMoment, KindCheckIn:
		return true
	}
	return false
}

// IsParent reports whether kind may hold comments, reactions and likes.
func (k Kind) IsParent() bool {
	return k.IsPost() || k == KindComment
}

// Visibility is the post-level audience selector.
type Visibility string

const (
	VisibilityFriends      Visibility = "friends"
	VisibilityCloseFriends Visibility = "close_friends"
	VisibilityEveryone     Visibility = "everyone"
	VisibilityPrivate      Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityFriends, VisibilityCloseFriends, VisibilityEveryone, VisibilityPrivate:
		return true
	}
	return false
}

// Ref points at any row by kind and id.
type Ref struct {
	Kind Kind `json:"kind"`
	ID   uint `json:"id"`
}

func (r Ref) String() string { return fmt.Sprintf("%s:%d", r.Kind, r.ID) }

func (r Ref) IsZero() bool { return r.Kind == "" && r.ID == 0 }

// Content is implemented by every top-level post type.
type Content interface {
	Ref() Ref
	GetAuthorID() uint
	GetCreatedAt() time.Time
	Access() Access
	Body() string
}

// Access is the per-post audience selection.
type Access struct {
	Visibility    Visibility
	ShareEveryone bool
	ShareFriends  []uint
	ShareGroups   []uint
}

// HasShareSet reports whether an explicit per-post share set is in use.
func (a Access) HasShareSet() bool {
	return len(a.ShareFriends) > 0 || len(a.ShareGroups) > 0
}

// PostBase holds the columns shared by responses, notes, moments and check-ins.
type PostBase struct {
	ID            uint                      `json:"id" gorm:"primaryKey"`
	AuthorID      uint                      `json:"author_id" gorm:"index;not null"`
	Visibility    Visibility                `json:"visibility" gorm:"size:20;not null;default:'friends'"`
	ShareEveryone bool                      `json:"share_everyone" gorm:"not null;default:false"`
	ShareFriends  datatypes.JSONSlice[uint] `json:"share_friends,omitempty"`
	ShareGroups   datatypes.JSONSlice[uint] `json:"share_groups,omitempty"`
	IsEdited      bool                      `json:"is_edited" gorm:"not null;default:false"`
	CreatedAt     time.Time                 `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time                 `json:"updated_at"`
	DeletedAt     gorm.DeletedAt            `json:"-" gorm:"index"`
}

func (p *PostBase) GetAuthorID() uint       { return p.AuthorID }
func (p *PostBase) GetCreatedAt() time.Time { return p.CreatedAt }

func (p *PostBase) Access() Access {
	return Access{
		Visibility:    p.Visibility,
		ShareEveryone: p.ShareEveryone,
		ShareFriends:  []uint(p.ShareFriends),
		ShareGroups:   []uint(p.ShareGroups),
	}
}

func (p *PostBase) MarkEdited() { p.IsEdited = true }

// ApplyAccess copies an audience selection onto the post.
func (p *PostBase) ApplyAccess(a Access) {
	if a.Visibility == "" {
		a.Visibility = VisibilityFriends
	}
	p.Visibility = a.Visibility
	p.ShareEveryone = a.ShareEveryone
	p.ShareFriends = datatypes.JSONSlice[uint](a.ShareFriends)
	p.ShareGroups = datatypes.JSONSlice[uint](a.ShareGroups)
}

// ContentRead records that a user has seen a piece of content.
type ContentRead struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Kind      Kind      `json:"kind" gorm:"size:20;not null;uniqueIndex:idx_content_read"`
	ContentID uint      `json:"content_id" gorm:"not null;uniqueIndex:idx_content_read"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_content_read;index"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessRequest is the audience part of create/update payloads.
type AccessRequest struct {
	Visibility    Visibility `json:"visibility" validate:"omitempty,oneof=friends close_friends everyone private"`
	ShareEveryone bool       `json:"share_everyone"`
	ShareFriends  []uint     `json:"share_friends,omitempty"`
	ShareGroups   []uint     `json:"share_groups,omitempty"`
}

func (r AccessRequest) ToAccess() Access {
	return Access{
		Visibility:    r.Visibility,
		ShareEveryone: r.ShareEveryone,
		ShareFriends:  r.ShareFriends,
		ShareGroups:   r.ShareGroups,
	}
}

// MarkReadRequest is the body of bulk read-marking endpoints.
type MarkReadRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,dive,gt=0"`
}
