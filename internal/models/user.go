package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// Language is a supported UI/notification language.
type Language string

const (
	LanguageKo Language = "ko"
	LanguageEn Language = "en"
)

// ParseLanguage maps anything that is not Korean to English.
func ParseLanguage(s string) Language {
	if len(s) >= 2 && (s[:2] == "ko" || s[:2] == "KO") {
		return LanguageKo
	}
	return LanguageEn
}

// User is soft-deleted on account deletion; username and email stay on the
// row so uniqueness only has to hold among live users.
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Username     string         `json:"username" gorm:"size:30;not null"`
	Email        string         `json:"-" gorm:"size:254;not null"`
	Password     string         `json:"-"`
	ProfileImage string         `json:"profile_image,omitempty"`
	Bio          string         `json:"bio,omitempty" gorm:"size:300"`
	Pronouns     string         `json:"pronouns,omitempty" gorm:"size:30"`
	Language     Language       `json:"language" gorm:"size:2;not null;default:'en'"`
	NotiTime     *string        `json:"noti_time,omitempty" gorm:"size:5;index"` // "HH:MM" in Timezone
	Timezone     string         `json:"timezone" gorm:"size:64;not null;default:'Asia/Seoul'"`
	UserGroup    string         `json:"-" gorm:"size:16"`
	Version      string         `json:"-" gorm:"size:16"`
	VerChangedAt *time.Time     `json:"-"`
	IsActive     bool           `json:"-" gorm:"not null;default:true"`
	IsStaff      bool           `json:"-" gorm:"not null;default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"-"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// UserCompact is the shape embedded in lists and notifications.
type UserCompact struct {
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, ProfileImage: u.ProfileImage}
}

// Location returns the user's time zone, defaulting to Asia/Seoul.
func (u *User) Location() *time.Location {
	if loc, err := time.LoadLocation(u.Timezone); err == nil && u.Timezone != "" {
		return loc
	}
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.UTC
	}
	return loc
}

// FavoriteFriend and HiddenFriend are user-owned opaque sets; members must be connected.
type FavoriteFriend struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	FriendID  uint      `json:"friend_id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`
}

type HiddenFriend struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	FriendID  uint      `json:"friend_id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Language string `json:"language,omitempty" validate:"omitempty,oneof=ko en"`
	Timezone string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserRequest struct {
	Username     *string `json:"username,omitempty"`
	Bio          *string `json:"bio,omitempty" validate:"omitempty,max=300"`
	Pronouns     *string `json:"pronouns,omitempty" validate:"omitempty,max=30"`
	ProfileImage *string `json:"profile_image,omitempty" validate:"omitempty,url"`
	Language     *string `json:"language,omitempty" validate:"omitempty,oneof=ko en"`
	NotiTime     *string `json:"noti_time,omitempty" validate:"omitempty,datetime=15:04"`
	Timezone     *string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
