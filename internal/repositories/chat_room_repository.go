package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRoomRepository stores two-party chat rooms keyed by canonical pair.
type ChatRoomRepository interface {
	EnsureRoom(a, b uint) (*models.ChatRoom, error)
	GetRoom(a, b uint) (*models.ChatRoom, error)
	GetRoomByID(id uint) (*models.ChatRoom, error)
	DeactivateRoom(a, b uint) error
	ListRooms(userID uint) ([]models.ChatRoom, error)
}

type postgresChatRoomRepository struct {
	db *gorm.DB
}

func NewPostgresChatRoomRepository(db *gorm.DB) ChatRoomRepository {
	return &postgresChatRoomRepository{db: db}
}

// EnsureRoom returns the pair's room, creating it or reactivating it as needed.
func (r *postgresChatRoomRepository) EnsureRoom(a, b uint) (*models.ChatRoom, error) {
	low, high := models.CanonicalPair(a, b)
	room := models.ChatRoom{UserLowID: low, UserHighID: high, Active: true}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&room).Error; err != nil {
		return nil, err
	}
	existing, err := r.GetRoom(low, high)
	if err != nil {
		return nil, err
	}
	if !existing.Active {
		existing.Active = true
		if err := r.db.Model(existing).Update("active", true).Error; err != nil {
			return nil, err
		}
	}
	return existing, nil
}

func (r *postgresChatRoomRepository) GetRoom(a, b uint) (*models.ChatRoom, error) {
	low, high := models.CanonicalPair(a, b)
	var room models.ChatRoom
	if err := r.db.Where("user_low_id = ? AND user_high_id = ?", low, high).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *postgresChatRoomRepository) GetRoomByID(id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *postgresChatRoomRepository) DeactivateRoom(a, b uint) error {
	low, high := models.CanonicalPair(a, b)
	return r.db.Model(&models.ChatRoom{}).Where("user_low_id = ? AND user_high_id = ?", low, high).
		Update("active", false).Error
}

func (r *postgresChatRoomRepository) ListRooms(userID uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.Where("(user_low_id = ? OR user_high_id = ?) AND active = ?", userID, userID, true).
		Order("updated_at DESC").Find(&rooms).Error
	return rooms, err
}
