package repositories

import (
	"context"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatMessageRepository defines the interface for chat log operations
type ChatMessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	GetMessagesByRoom(ctx context.Context, roomID uint, skip, limit int64) ([]models.ChatMessage, error)
}

// MongoChatMessageRepository implements ChatMessageRepository for MongoDB
type MongoChatMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoChatMessageRepository creates a new MongoChatMessageRepository
func NewMongoChatMessageRepository(db *mongo.Database) *MongoChatMessageRepository {
	return &MongoChatMessageRepository{collection: db.Collection("chat_messages")}
}

// CreateMessage stores msg. The caller stamps the timestamp.
func (r *MongoChatMessageRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	msg.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

// GetMessagesByRoom returns a room's messages, newest first
func (r *MongoChatMessageRepository) GetMessagesByRoom(ctx context.Context, roomID uint, skip, limit int64) ([]models.ChatMessage, error) {
	messages := []models.ChatMessage{}
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"room_id": roomID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
