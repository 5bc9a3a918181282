package models

import (
	"time"

	"gorm.io/gorm"
)

// FriendRequest is pending while Accepted is nil. At most one live request per
// (requester, requestee).
type FriendRequest struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	RequesterID     uint           `json:"requester_id" gorm:"index;not null"`
	RequesteeID     uint           `json:"requestee_id" gorm:"index;not null"`
	Accepted        *bool          `json:"accepted"`
	RequesterChoice Choice         `json:"requester_choice" gorm:"size:10;not null;default:'friend'"`
	RequesteeChoice Choice         `json:"requestee_choice" gorm:"size:10;not null;default:'friend'"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

func (r *FriendRequest) Ref() Ref { return Ref{Kind: KindFriendRequest, ID: r.ID} }

func (r *FriendRequest) IsPending() bool { return r.Accepted == nil }

// CreateFriendRequest defines the request body for sending a friend request
type CreateFriendRequest struct {
	RequesteeID uint   `json:"requestee_id" validate:"required"`
	Choice      Choice `json:"choice,omitempty" validate:"omitempty,oneof=friend neighbor"`
}

// RespondFriendRequest defines the request body for accepting/refusing a friend request
type RespondFriendRequest struct {
	Accept bool   `json:"accept"`
	Choice Choice `json:"choice,omitempty" validate:"omitempty,oneof=friend neighbor"`
}

// DefaultFriendGroupName is created for every user at signup.
const DefaultFriendGroupName = "close friends"

// FriendGroup is a named set of a user's friends used for per-post share overrides.
type FriendGroup struct {
	ID        uint                `json:"id" gorm:"primaryKey"`
	UserID    uint                `json:"user_id" gorm:"index;not null"`
	Name      string              `json:"name" gorm:"size:50;not null"`
	Members   []FriendGroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time           `json:"created_at"`
}

type FriendGroupMember struct {
	GroupID  uint `json:"group_id" gorm:"primaryKey;autoIncrement:false"`
	FriendID uint `json:"friend_id" gorm:"primaryKey;autoIncrement:false;index"`
}

type CreateFriendGroupRequest struct {
	Name      string `json:"name" validate:"required,max=50"`
	MemberIDs []uint `json:"member_ids,omitempty"`
}
