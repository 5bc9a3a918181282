package models

import (
	"time"

	"gorm.io/gorm"
)

// Choice is one side's tier for a connection.
type Choice string

const (
	ChoiceFriend   Choice = "friend"
	ChoiceNeighbor Choice = "neighbor"
)

func (c Choice) Valid() bool { return c == ChoiceFriend || c == ChoiceNeighbor }

// Connection is the undirected edge between two users, stored once per pair
// with UserLowID < UserHighID. Each endpoint owns the side named after it.
type Connection struct {
	ID                      uint           `json:"id" gorm:"primaryKey"`
	UserLowID               uint           `json:"user_low_id" gorm:"not null;index"`
	UserHighID              uint           `json:"user_high_id" gorm:"not null;index"`
	UserLowChoice           Choice         `json:"user_low_choice" gorm:"size:10;not null"`
	UserHighChoice          Choice         `json:"user_high_choice" gorm:"size:10;not null"`
	UserLowUpdatePastPosts  bool           `json:"user_low_update_past_posts" gorm:"not null;default:false"`
	UserHighUpdatePastPosts bool           `json:"user_high_update_past_posts" gorm:"not null;default:false"`
	UserLowUpgradeTime      *time.Time     `json:"user_low_upgrade_time"`
	UserHighUpgradeTime     *time.Time     `json:"user_high_upgrade_time"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
	DeletedAt               gorm.DeletedAt `json:"-" gorm:"index"`
}

// Side is a copy of one endpoint's state.
type Side struct {
	Choice          Choice
	UpdatePastPosts bool
	UpgradeTime     *time.Time
}

// CanonicalPair orders two user ids so the lower comes first.
func CanonicalPair(a, b uint) (low, high uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// BeforeCreate rejects rows that are not already canonical.
func (c *Connection) BeforeCreate(_ *gorm.DB) error {
	if c.UserLowID == c.UserHighID {
		return ErrSelfConnection
	}
	if c.UserLowID > c.UserHighID {
		return ErrNonCanonicalPair
	}
	return nil
}

// Involves reports whether userID is an endpoint.
func (c *Connection) Involves(userID uint) bool {
	return c.UserLowID == userID || c.UserHighID == userID
}

// Other returns the opposite endpoint of userID.
func (c *Connection) Other(userID uint) uint {
	if c.UserLowID == userID {
		return c.UserHighID
	}
	return c.UserLowID
}

// SideOf returns the side owned by userID.
func (c *Connection) SideOf(userID uint) Side {
	if c.UserLowID == userID {
		return Side{Choice: c.UserLowChoice, UpdatePastPosts: c.UserLowUpdatePastPosts, UpgradeTime: c.UserLowUpgradeTime}
	}
	return Side{Choice: c.UserHighChoice, UpdatePastPosts: c.UserHighUpdatePastPosts, UpgradeTime: c.UserHighUpgradeTime}
}

func (c *Connection) setSide(userID uint, s Side) {
	if c.UserLowID == userID {
		c.UserLowChoice, c.UserLowUpdatePastPosts, c.UserLowUpgradeTime = s.Choice, s.UpdatePastPosts, s.UpgradeTime
		return
	}
	c.UserHighChoice, c.UserHighUpdatePastPosts, c.UserHighUpgradeTime = s.Choice, s.UpdatePastPosts, s.UpgradeTime
}

// InitSide sets the state of a side on a freshly created edge. A friend side
// starts retroactive: every past close-friends post is visible.
func (c *Connection) InitSide(userID uint, choice Choice) {
	if choice == ChoiceFriend {
		c.setSide(userID, Side{Choice: ChoiceFriend, UpdatePastPosts: true})
		return
	}
	c.setSide(userID, Side{Choice: ChoiceNeighbor})
}

// ApplyChoice moves userID's side through the tier state machine and reports
// whether anything changed.
func (c *Connection) ApplyChoice(userID uint, choice Choice, updatePastPosts bool, now time.Time) bool {
	side := c.SideOf(userID)
	switch {
	case side.Choice != ChoiceFriend && choice == ChoiceFriend:
		side.Choice = ChoiceFriend
		side.UpdatePastPosts = updatePastPosts
		if updatePastPosts {
			side.UpgradeTime = nil
		} else {
			t := now
			side.UpgradeTime = &t
		}
	case side.Choice == ChoiceFriend && choice == ChoiceNeighbor:
		side.Choice = ChoiceNeighbor
		side.UpgradeTime = nil
	default:
		return false
	}
	c.setSide(userID, side)
	return true
}

type UpdateConnectionRequest struct {
	Choice          Choice `json:"choice" validate:"required,oneof=friend neighbor"`
	UpdatePastPosts bool   `json:"update_past_posts"`
}
