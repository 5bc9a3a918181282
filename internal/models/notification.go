package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification is addressed to one recipient. Origin is the semantic subject
// (the liked post, the question); target is the row that triggered it.
// Coalescable notifications carry a CoalesceKey that is unique among live rows.
type Notification struct {
	ID                    uint                `json:"id" gorm:"primaryKey"`
	RecipientID           uint                `json:"recipient_id" gorm:"index;not null"`
	OriginKind            Kind                `json:"origin_kind" gorm:"size:20"`
	OriginID              uint                `json:"origin_id"`
	TargetKind            Kind                `json:"target_kind" gorm:"size:20;not null;index"`
	TargetID              uint                `json:"target_id"`
	Emoji                 string              `json:"emoji,omitempty" gorm:"size:16"`
	CoalesceKey           *string             `json:"-" gorm:"size:160"`
	MessageKo             string              `json:"message_ko" gorm:"type:text"`
	MessageEn             string              `json:"message_en" gorm:"type:text"`
	RedirectURL           string              `json:"redirect_url"`
	IsRead                bool                `json:"is_read" gorm:"not null;default:false;index"`
	IsVisible             bool                `json:"is_visible" gorm:"not null;default:true"`
	NotificationUpdatedAt time.Time           `json:"notification_updated_at" gorm:"index"`
	Actors                []NotificationActor `json:"actors,omitempty" gorm:"foreignKey:NotificationID"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"-"`
	DeletedAt             gorm.DeletedAt      `json:"-" gorm:"index"`
}

func (n *Notification) Origin() Ref { return Ref{Kind: n.OriginKind, ID: n.OriginID} }
func (n *Notification) Target() Ref { return Ref{Kind: n.TargetKind, ID: n.TargetID} }

// Message picks the localized text.
func (n *Notification) Message(lang Language) string {
	if lang == LanguageKo {
		return n.MessageKo
	}
	return n.MessageEn
}

// NotificationActor is one entry of a notification's ordered actor list.
// Order is CreatedAt descending, ties broken by UserID ascending.
type NotificationActor struct {
	ID             uint      `json:"-" gorm:"primaryKey"`
	NotificationID uint      `json:"-" gorm:"not null;uniqueIndex:idx_notification_actor"`
	UserID         uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_notification_actor"`
	CreatedAt      time.Time `json:"created_at"`
}

// Subscription fans new content of ContentKind by AuthorID to SubscriberID.
type Subscription struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SubscriberID uint      `json:"subscriber_id" gorm:"not null;uniqueIndex:idx_subscription"`
	AuthorID     uint      `json:"author_id" gorm:"not null;uniqueIndex:idx_subscription;index"`
	ContentKind  Kind      `json:"content_kind" gorm:"size:20;not null;uniqueIndex:idx_subscription"`
	CreatedAt    time.Time `json:"created_at"`
}

type SubscribeRequest struct {
	AuthorID    uint `json:"author_id" validate:"required"`
	ContentKind Kind `json:"content_kind" validate:"required,oneof=response note"`
}

// Device is a push registration. Devices are deactivated, never deleted, when
// the provider reports them gone.
type Device struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	UserID         uint      `json:"user_id" gorm:"index;not null"`
	RegistrationID string    `json:"-" gorm:"size:512;not null;uniqueIndex"`
	Language       Language  `json:"language" gorm:"size:2;not null;default:'en'"`
	Active         bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type RegisterDeviceRequest struct {
	RegistrationID string `json:"registration_id" validate:"required,max=512"`
	Language       string `json:"language" validate:"omitempty,oneof=ko en"`
}
