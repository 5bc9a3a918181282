package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// DefaultPromptTime is when users without a preference get the daily prompt.
const DefaultPromptTime = "16:00"

// ScheduleService holds the bodies of the scheduled jobs. Each is safe to run
// repeatedly within the same minute.
type ScheduleService struct {
	store         *repositories.Store
	notifier      *Notifier
	adminUsername string
}

func NewScheduleService(store *repositories.Store, notifier *Notifier, adminUsername string) *ScheduleService {
	return &ScheduleService{store: store, notifier: notifier, adminUsername: adminUsername}
}

// DispatchDailyPrompt notifies every user whose local notification time is
// now's local HH:MM with the first question selected for their local date.
// Recipients already prompted for that question and date are skipped.
func (s *ScheduleService) DispatchDailyPrompt(ctx context.Context, now time.Time) (int, error) {
	st := s.store.WithContext(ctx)
	admin, err := st.Users.GetUserByUsername(s.adminUsername)
	if err != nil {
		return 0, err
	}
	zones, err := st.Users.Timezones()
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, tz := range zones {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			zap.L().Warn("skipping unknown timezone", zap.String("timezone", tz), zap.Error(err))
			continue
		}
		local := now.In(loc)
		hhmm, date := local.Format("15:04"), local.Format("2006-01-02")
		questions, err := st.Questions.GetDailyQuestions(date)
		if err != nil {
			return sent, err
		}
		if len(questions) == 0 {
			continue
		}
		users, err := st.Users.GetUsersForPrompt(tz, hhmm, hhmm == DefaultPromptTime)
		if err != nil {
			return sent, err
		}
		if len(users) == 0 {
			continue
		}
		question := &questions[0]
		out := &Outbox{}
		err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
			events := make([]Event, 0, len(users))
			for _, u := range users {
				events = append(events, DailyPrompt{Question: question, AdminID: admin.ID, RecipientID: u.ID, Date: date})
			}
			return s.notifier.Handle(ctx, tx, out, events...)
		})
		if err != nil {
			return sent, err
		}
		sent += len(out.Jobs())
		if err := s.notifier.FlushWait(ctx, out); err != nil {
			return sent, err
		}
	}
	return sent, nil
}

// CollectStaleFriendRequests deletes pending requests made before the
// requestee's last version change.
func (s *ScheduleService) CollectStaleFriendRequests(ctx context.Context) (int64, error) {
	return s.store.WithContext(ctx).FriendRequests.DeleteStalePending()
}

// SelectQuestions picks n daily questions for date.
func (s *ScheduleService) SelectQuestions(ctx context.Context, date string, n int) ([]models.Question, error) {
	return NewQuestionService(s.store, s.notifier).SelectDaily(ctx, date, n)
}
