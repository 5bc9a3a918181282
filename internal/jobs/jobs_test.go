package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/services"
	"github.com/anonto42/whoami-today/backend/internal/testutil"
)

func TestRunnerRunsOncePerMinute(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, 3, 1, 7, 0, 10, 0, time.UTC))
	runner := NewRunner(NewLocalLocker(clock.Now), clock.Now)
	calls := 0
	job := Job{Name: "count", Run: func(context.Context, time.Time) (string, error) {
		calls++
		return "", nil
	}}

	ran, err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, ran)

	clock.Advance(30 * time.Second)
	ran, err = runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, ran)

	clock.Advance(time.Minute)
	ran, err = runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, calls)
}

func TestRunnerReportsJobErrors(t *testing.T) {
	runner := NewRunner(NewLocalLocker(nil), nil)
	boom := errors.New("boom")
	ran, err := runner.Run(context.Background(), Job{Name: "fail", Run: func(context.Context, time.Time) (string, error) {
		return "", boom
	}})
	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)
}

func TestLockKeyIsPerMinute(t *testing.T) {
	at := time.Date(2024, 3, 1, 16, 5, 59, 0, time.FixedZone("KST", 9*3600))
	assert.Equal(t, "job:daily-prompt:202403010705", LockKey(DailyPromptJob, at))
}

func TestSelectThenPrompt(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewClock(time.Date(2024, 2, 29, 7, 0, 0, 0, time.UTC))
	st := testutil.NewStore(t, clock)
	pushes := &testutil.RecordingDispatcher{}
	notifier := services.NewNotifier(pushes, clock.Now)
	schedule := services.NewScheduleService(st, notifier, "whoami")

	testutil.CreateUser(t, st, "whoami")
	user := testutil.CreateUser(t, st, "someone")
	testutil.Question(t, st, "What made you laugh?")

	runner := NewRunner(NewLocalLocker(clock.Now), clock.Now)
	_, err := runner.Run(ctx, SelectQuestions(schedule, time.UTC, 1))
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	ran, err := runner.Run(ctx, DailyPrompt(schedule))
	require.NoError(t, err)
	assert.True(t, ran)
	require.Len(t, pushes.For(user.ID), 1)

	ran, err = runner.Run(ctx, DailyPrompt(schedule))
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Len(t, pushes.For(user.ID), 1)
}
