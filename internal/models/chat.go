package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatRoom joins exactly two users. It is deactivated, not deleted, on unfriend.
type ChatRoom struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserLowID  uint      `json:"user_low_id" gorm:"not null;uniqueIndex:idx_chat_room_pair"`
	UserHighID uint      `json:"user_high_id" gorm:"not null;uniqueIndex:idx_chat_room_pair"`
	Active     bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r *ChatRoom) HasMember(userID uint) bool {
	return r.UserLowID == userID || r.UserHighID == userID
}

// ChatMessage is stored in MongoDB
type ChatMessage struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	RoomID    uint               `json:"room_id" bson:"room_id"`
	UserID    uint               `json:"userId" bson:"user_id"`
	UserName  string             `json:"userName" bson:"user_name"`
	Message   string             `json:"message" bson:"message"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

// ChatFrame is the websocket wire format.
type ChatFrame struct {
	UserID    uint      `json:"userId"`
	UserName  string    `json:"userName"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}
