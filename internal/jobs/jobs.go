// Package jobs runs the scheduled tasks. Each run takes a lock keyed by job
// name and wall-clock minute, so a cron firing twice in one minute, or on two
// hosts, does the work once.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/metrics"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

const lockTTL = 2 * time.Minute

const (
	DailyPromptJob     = "daily-prompt"
	FriendRequestGCJob = "friend-request-gc"
	SelectQuestionsJob = "select-questions"
)

// DefaultQuestionsPerDay is how many questions select-questions picks.
const DefaultQuestionsPerDay = 3

// Job is one scheduled task. Run returns a short summary for the log.
type Job struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (string, error)
}

type Runner struct {
	locker Locker
	now    func() time.Time
}

func NewRunner(locker Locker, now func() time.Time) *Runner {
	if now == nil {
		now = time.Now
	}
	return &Runner{locker: locker, now: now}
}

// LockKey is the per-minute lock for name.
func LockKey(name string, now time.Time) string {
	return fmt.Sprintf("job:%s:%s", name, now.UTC().Format("200601021504"))
}

// Run executes job unless another run holds this minute's lock. It reports
// whether the job body ran.
func (r *Runner) Run(ctx context.Context, job Job) (bool, error) {
	now := r.now().UTC()
	ok, err := r.locker.Acquire(ctx, LockKey(job.Name, now), lockTTL)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(job.Name, "error").Inc()
		return false, fmt.Errorf("acquire lock for %s: %w", job.Name, err)
	}
	if !ok {
		metrics.JobRunsTotal.WithLabelValues(job.Name, "locked").Inc()
		zap.L().Info("job already ran this minute", zap.String("job", job.Name))
		return false, nil
	}

	started := time.Now()
	summary, err := job.Run(ctx, now)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(job.Name, "error").Inc()
		zap.L().Error("job failed", zap.String("job", job.Name), zap.Error(err))
		return true, err
	}
	metrics.JobRunsTotal.WithLabelValues(job.Name, "ok").Inc()
	zap.L().Info("job finished",
		zap.String("job", job.Name),
		zap.String("result", summary),
		zap.Duration("took", time.Since(started)),
	)
	return true, nil
}

func DailyPrompt(schedule *services.ScheduleService) Job {
	return Job{Name: DailyPromptJob, Run: func(ctx context.Context, now time.Time) (string, error) {
		sent, err := schedule.DispatchDailyPrompt(ctx, now)
		return fmt.Sprintf("%d prompts", sent), err
	}}
}

func FriendRequestGC(schedule *services.ScheduleService) Job {
	return Job{Name: FriendRequestGCJob, Run: func(ctx context.Context, _ time.Time) (string, error) {
		n, err := schedule.CollectStaleFriendRequests(ctx)
		return fmt.Sprintf("%d requests removed", n), err
	}}
}

// SelectQuestions picks n questions for the day after now in loc.
func SelectQuestions(schedule *services.ScheduleService, loc *time.Location, n int) Job {
	if n <= 0 {
		n = DefaultQuestionsPerDay
	}
	return Job{Name: SelectQuestionsJob, Run: func(ctx context.Context, now time.Time) (string, error) {
		date := now.In(loc).AddDate(0, 0, 1).Format("2006-01-02")
		picked, err := schedule.SelectQuestions(ctx, date, n)
		return fmt.Sprintf("%d questions for %s", len(picked), date), err
	}}
}
