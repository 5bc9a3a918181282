package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
	"github.com/anonto42/whoami-today/backend/internal/testutil"
)

type env struct {
	ctx      context.Context
	clock    *testutil.Clock
	store    *repositories.Store
	pushes   *testutil.RecordingDispatcher
	notifier *Notifier

	connections   *ConnectionService
	content       *ContentService
	interactions  *InteractionService
	friends       *FriendRequestService
	questions     *QuestionService
	schedule      *ScheduleService
	users         *UserService
	notifications *NotificationService
	subscriptions *SubscriptionService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	return envOn(testutil.NewStore(t, clock), clock)
}

// newConcurrentEnv runs on Postgres when TEST_POSTGRES_DSN is set.
func newConcurrentEnv(t *testing.T) *env {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	return envOn(testutil.ConcurrentStore(t, clock), clock)
}

func envOn(st *repositories.Store, clock *testutil.Clock) *env {
	pushes := &testutil.RecordingDispatcher{}
	notifier := NewNotifier(pushes, clock.Now)
	return &env{
		ctx:           context.Background(),
		clock:         clock,
		store:         st,
		pushes:        pushes,
		notifier:      notifier,
		connections:   NewConnectionService(st, clock.Now),
		content:       NewContentService(st, notifier),
		interactions:  NewInteractionService(st, notifier),
		friends:       NewFriendRequestService(st, notifier),
		questions:     NewQuestionService(st, notifier),
		schedule:      NewScheduleService(st, notifier, "whoami"),
		users:         NewUserService(st, notifier),
		notifications: NewNotificationService(st),
		subscriptions: NewSubscriptionService(st),
	}
}

func (e *env) user(t *testing.T, name string) *models.User {
	return testutil.CreateUser(t, e.store, name)
}

// inbox lists the recipient's visible notifications, newest first.
func (e *env) inbox(t *testing.T, recipientID uint) []models.Notification {
	t.Helper()
	list, err := e.store.Notifications.List(recipientID, repositories.NotificationFilter{}, repositories.Page{Size: 100})
	require.NoError(t, err)
	return list
}

func (e *env) post(t *testing.T, authorID uint, in PostInput) models.Content {
	t.Helper()
	post, err := e.content.Create(e.ctx, authorID, in)
	require.NoError(t, err)
	return post
}
