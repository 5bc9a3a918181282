package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/push"
	"github.com/anonto42/whoami-today/backend/internal/testutil"
)

func TestDailyPromptIsSentOncePerDate(t *testing.T) {
	e := newEnv(t)
	e.user(t, "whoami")
	early, late := e.user(t, "early"), e.user(t, "late")
	morning := "09:00"
	early.NotiTime = &morning
	require.NoError(t, e.store.Users.UpdateUser(early))

	testutil.Question(t, e.store, "What are you grateful for?")
	_, err := e.schedule.SelectQuestions(e.ctx, "2024-03-01", 1)
	require.NoError(t, err)

	// 07:00 UTC is 16:00 in Seoul.
	at := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	sent, err := e.schedule.DispatchDailyPrompt(e.ctx, at)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	inbox := e.inbox(t, late.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Today's question: What are you grateful for?", inbox[0].MessageEn)
	assert.Empty(t, e.inbox(t, early.ID))

	sent, err = e.schedule.DispatchDailyPrompt(e.ctx, at.Add(30*time.Second))
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, e.inbox(t, late.ID), 1)

	sent, err = e.schedule.DispatchDailyPrompt(e.ctx, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, e.inbox(t, early.ID), 1)
}

func TestDailyPromptWithoutSelectionSendsNothing(t *testing.T) {
	e := newEnv(t)
	e.user(t, "whoami")
	e.user(t, "someone")

	sent, err := e.schedule.DispatchDailyPrompt(e.ctx, time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestCollectStaleFriendRequests(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	_, err := e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	changed := e.clock.Now()
	b.VerChangedAt = &changed
	require.NoError(t, e.store.Users.UpdateUser(b))

	n, err := e.schedule.CollectStaleFriendRequests(e.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

type countingSender struct {
	mu   sync.Mutex
	tags map[string]int
}

func (s *countingSender) Send(_ context.Context, _ models.Device, job push.Job) error {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[job.Tag()]++
	return nil
}

func TestDailyPromptPushesEveryRecipientPastQueueSize(t *testing.T) {
	e := newEnv(t)
	e.user(t, "whoami")
	const recipients = 40
	for i := 0; i < recipients; i++ {
		u := e.user(t, fmt.Sprintf("user%02d", i))
		require.NoError(t, e.store.Devices.UpsertDevice(&models.Device{UserID: u.ID, RegistrationID: fmt.Sprintf("tok-%d", i)}))
	}
	testutil.Question(t, e.store, "What made you laugh?")
	_, err := e.schedule.SelectQuestions(e.ctx, "2024-03-01", 1)
	require.NoError(t, err)

	sender := &countingSender{tags: map[string]int{}}
	pusher := push.NewService(sender, e.store.Devices, push.Options{Workers: 2, QueueSize: 4, Timeout: time.Second})
	pusher.Start(context.Background())
	schedule := NewScheduleService(e.store, NewNotifier(pusher, e.clock.Now), "whoami")

	sent, err := schedule.DispatchDailyPrompt(e.ctx, time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	pusher.Stop()

	assert.Equal(t, recipients, sent)
	assert.Len(t, sender.tags, recipients)
}
