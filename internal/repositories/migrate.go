package repositories

import (
	"fmt"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
)

// partialIndexes enforce uniqueness among live rows only. AutoMigrate cannot
// express the WHERE clause, so they are created by hand. The statements run
// unchanged on PostgreSQL and SQLite.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_users_username ON users (lower(username)) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_users_email ON users (lower(email)) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_connections_pair ON connections (user_low_id, user_high_id) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_friend_requests_pair ON friend_requests (requester_id, requestee_id) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_response_requests ON response_requests (requester_id, requestee_id, question_id) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_reactions ON reactions (user_id, emoji, parent_kind, parent_id) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_likes ON likes (user_id, parent_kind, parent_id) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_notifications_coalesce ON notifications (coalesce_key) WHERE deleted_at IS NULL AND coalesce_key IS NOT NULL`,
}

// AllModels lists every table owned by the relational store.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.FavoriteFriend{},
		&models.HiddenFriend{},
		&models.Connection{},
		&models.FriendRequest{},
		&models.FriendGroup{},
		&models.FriendGroupMember{},
		&models.Question{},
		&models.Response{},
		&models.ResponseRequest{},
		&models.Note{},
		&models.Moment{},
		&models.CheckIn{},
		&models.Comment{},
		&models.Reaction{},
		&models.Like{},
		&models.ContentRead{},
		&models.Notification{},
		&models.NotificationActor{},
		&models.Subscription{},
		&models.Device{},
		&models.UserReport{},
		&models.ContentReport{},
		&models.ChatRoom{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
