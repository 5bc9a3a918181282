package services

import (
	"github.com/anonto42/whoami-today/backend/internal/push"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// Services wires every service over one store and one notifier.
type Services struct {
	Notifier      *Notifier
	Connections   *ConnectionService
	Content       *ContentService
	Interactions  *InteractionService
	Friends       *FriendRequestService
	Questions     *QuestionService
	Schedule      *ScheduleService
	Users         *UserService
	Notifications *NotificationService
	Subscriptions *SubscriptionService
	Chat          *ChatService

	closer *roomCloser
}

type Options struct {
	Dispatcher    push.Dispatcher
	ChatMessages  repositories.ChatMessageRepository
	AdminUsername string
	Clock         Clock
}

func New(store *repositories.Store, opts Options) *Services {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	notifier := NewNotifier(opts.Dispatcher, opts.Clock)
	closer := &roomCloser{}
	connections := NewConnectionService(store, opts.Clock)
	connections.closer = closer
	users := NewUserService(store, notifier)
	users.closer = closer
	return &Services{
		closer:        closer,
		Notifier:      notifier,
		Connections:   connections,
		Content:       NewContentService(store, notifier),
		Interactions:  NewInteractionService(store, notifier),
		Friends:       NewFriendRequestService(store, notifier),
		Questions:     NewQuestionService(store, notifier),
		Schedule:      NewScheduleService(store, notifier, opts.AdminUsername),
		Users:         users,
		Notifications: NewNotificationService(store),
		Subscriptions: NewSubscriptionService(store),
		Chat:          NewChatService(store, opts.ChatMessages, opts.Clock),
	}
}

// OnRoomClosed registers fn to run, after commit, for every chat room an
// unfriend or account deletion deactivates.
func (s *Services) OnRoomClosed(fn func(roomID uint)) {
	s.closer.set(fn)
}
