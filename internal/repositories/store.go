package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Store groups every relational repository over one *gorm.DB handle. A Store
// obtained inside Transaction shares that transaction across all repositories.
type Store struct {
	db *gorm.DB

	Users            UserRepository
	Connections      ConnectionRepository
	FriendRequests   FriendRequestRepository
	FriendGroups     FriendGroupRepository
	Questions        QuestionRepository
	ResponseRequests ResponseRequestRepository
	Posts            PostRepository
	Comments         CommentRepository
	Reactions        ReactionRepository
	Likes            LikeRepository
	Reads            ReadRepository
	Notifications    NotificationRepository
	Subscriptions    SubscriptionRepository
	Devices          DeviceRepository
	Reports          ReportRepository
	ChatRooms        ChatRoomRepository
}

// NewStore wires all Postgres repositories over db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:               db,
		Users:            NewPostgresUserRepository(db),
		Connections:      NewPostgresConnectionRepository(db),
		FriendRequests:   NewPostgresFriendRequestRepository(db),
		FriendGroups:     NewPostgresFriendGroupRepository(db),
		Questions:        NewPostgresQuestionRepository(db),
		ResponseRequests: NewPostgresResponseRequestRepository(db),
		Posts:            NewPostgresPostRepository(db),
		Comments:         NewPostgresCommentRepository(db),
		Reactions:        NewPostgresReactionRepository(db),
		Likes:            NewPostgresLikeRepository(db),
		Reads:            NewPostgresReadRepository(db),
		Notifications:    NewPostgresNotificationRepository(db),
		Subscriptions:    NewPostgresSubscriptionRepository(db),
		Devices:          NewPostgresDeviceRepository(db),
		Reports:          NewPostgresReportRepository(db),
		ChatRooms:        NewPostgresChatRoomRepository(db),
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

// WithContext returns a Store whose queries carry ctx.
func (s *Store) WithContext(ctx context.Context) *Store {
	return NewStore(s.db.WithContext(ctx))
}

// Transaction runs fn in a database transaction. Calling it on a Store that is
// already inside a transaction opens a savepoint, so a failing fn only rolls
// back its own writes.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a translated unique-constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// Page is 1-based paging with a default size.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 10
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	p = p.normalize()
	return db.Offset((p.Number - 1) * p.Size).Limit(p.Size)
}
