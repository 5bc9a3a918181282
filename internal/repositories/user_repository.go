package repositories

import (
	"strings"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByID(id uint) (*models.User, error)
	GetUserByIDUnscoped(id uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUsersByIDs(ids []uint) ([]models.User, error)
	UsernameTaken(username string) (bool, error)
	EmailTaken(email string) (bool, error)
	SearchUsers(query string, excludeIDs []uint, page Page) ([]models.User, error)
	UpdateUser(user *models.User) error
	SoftDeleteUser(id uint) error
	Timezones() ([]string, error)
	GetUsersForPrompt(timezone, hhmm string, includeUnset bool) ([]models.User, error)

	AddFavorite(userID, friendID uint) error
	RemoveFavorite(userID, friendID uint) error
	ListFavoriteIDs(userID uint) ([]uint, error)
	AddHidden(userID, friendID uint) error
	RemoveHidden(userID, friendID uint) error
	ListHiddenIDs(userID uint) ([]uint, error)
	RemoveFromFriendSets(a, b uint) error
}

type postgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new UserRepository over db
func NewPostgresUserRepository(db *gorm.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

// CreateUser creates a new user in the database
func (r *postgresUserRepository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

// GetUserByID retrieves a live user by ID
func (r *postgresUserRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByIDUnscoped also returns soft-deleted users
func (r *postgresUserRepository) GetUserByIDUnscoped(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.Unscoped().First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername matches case-insensitively among live users
func (r *postgresUserRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("lower(username) = ?", strings.ToLower(username)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *postgresUserRepository) GetUsersByIDs(ids []uint) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *postgresUserRepository) UsernameTaken(username string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("lower(username) = ?", strings.ToLower(username)).Count(&count).Error
	return count > 0, err
}

func (r *postgresUserRepository) EmailTaken(email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("lower(email) = ?", strings.ToLower(email)).Count(&count).Error
	return count > 0, err
}

// SearchUsers finds active users whose username contains query
func (r *postgresUserRepository) SearchUsers(query string, excludeIDs []uint, page Page) ([]models.User, error) {
	var users []models.User
	db := r.db.Where("lower(username) LIKE ? AND is_active = ?", "%"+strings.ToLower(query)+"%", true)
	if len(excludeIDs) > 0 {
		db = db.Where("id NOT IN ?", excludeIDs)
	}
	err := page.apply(db.Order("username ASC")).Find(&users).Error
	return users, err
}

// UpdateUser saves all fields of user
func (r *postgresUserRepository) UpdateUser(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *postgresUserRepository) SoftDeleteUser(id uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "deleted_at": r.db.NowFunc()}).Error
}

// Timezones lists the distinct time zones of live users.
func (r *postgresUserRepository) Timezones() ([]string, error) {
	var zones []string
	err := r.db.Model(&models.User{}).Distinct("timezone").Where("is_active = ?", true).Pluck("timezone", &zones).Error
	return zones, err
}

// GetUsersForPrompt returns users in timezone whose notification time is hhmm,
// plus users with no notification time when includeUnset is true.
func (r *postgresUserRepository) GetUsersForPrompt(timezone, hhmm string, includeUnset bool) ([]models.User, error) {
	var users []models.User
	db := r.db.Where("timezone = ? AND is_active = ?", timezone, true)
	if includeUnset {
		db = db.Where("(noti_time = ? OR noti_time IS NULL)", hhmm)
	} else {
		db = db.Where("noti_time = ?", hhmm)
	}
	err := db.Order("id ASC").Find(&users).Error
	return users, err
}

func (r *postgresUserRepository) AddFavorite(userID, friendID uint) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.FavoriteFriend{UserID: userID, FriendID: friendID}).Error
}

func (r *postgresUserRepository) RemoveFavorite(userID, friendID uint) error {
	return r.db.Where("user_id = ? AND friend_id = ?", userID, friendID).Delete(&models.FavoriteFriend{}).Error
}

func (r *postgresUserRepository) ListFavoriteIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.FavoriteFriend{}).Where("user_id = ?", userID).Order("created_at DESC").Pluck("friend_id", &ids).Error
	return ids, err
}

func (r *postgresUserRepository) AddHidden(userID, friendID uint) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.HiddenFriend{UserID: userID, FriendID: friendID}).Error
}

func (r *postgresUserRepository) RemoveHidden(userID, friendID uint) error {
	return r.db.Where("user_id = ? AND friend_id = ?", userID, friendID).Delete(&models.HiddenFriend{}).Error
}

func (r *postgresUserRepository) ListHiddenIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.HiddenFriend{}).Where("user_id = ?", userID).Order("created_at DESC").Pluck("friend_id", &ids).Error
	return ids, err
}

// RemoveFromFriendSets drops a and b from each other's favorites and hidden sets
func (r *postgresUserRepository) RemoveFromFriendSets(a, b uint) error {
	cond := "(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)"
	if err := r.db.Where(cond, a, b, b, a).Delete(&models.FavoriteFriend{}).Error; err != nil {
		return err
	}
	return r.db.Where(cond, a, b, b, a).Delete(&models.HiddenFriend{}).Error
}
