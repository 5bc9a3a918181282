package services

import (
	"context"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// QuestionService serves questions, daily selection and response requests.
type QuestionService struct {
	store    *repositories.Store
	notifier *Notifier
}

func NewQuestionService(store *repositories.Store, notifier *Notifier) *QuestionService {
	return &QuestionService{store: store, notifier: notifier}
}

func liveQuestion(st *repositories.Store, id uint) (*models.Question, error) {
	q, err := st.Questions.GetQuestionUnscoped(id)
	if err != nil {
		return nil, notFoundAs(err, apperrors.NoSuchQuestion)
	}
	if q.DeletedAt.Valid {
		return nil, apperrors.E(apperrors.DeletedQuestion)
	}
	return q, nil
}

func (s *QuestionService) Get(ctx context.Context, id uint) (*models.Question, error) {
	return liveQuestion(s.store.WithContext(ctx), id)
}

// Daily returns the questions selected for date ("2006-01-02").
func (s *QuestionService) Daily(ctx context.Context, date string) ([]models.Question, error) {
	return s.store.WithContext(ctx).Questions.GetDailyQuestions(date)
}

// Responses pages the answers to a question that viewer may see.
func (s *QuestionService) Responses(ctx context.Context, viewerID, questionID uint, page repositories.Page) ([]models.Content, error) {
	st := s.store.WithContext(ctx)
	if _, err := liveQuestion(st, questionID); err != nil {
		return nil, err
	}
	posts, err := st.Posts.ResponsesToQuestion(questionID, page)
	if err != nil {
		return nil, err
	}
	return NewAudience(st).FilterPosts(viewerID, posts)
}

// SelectDaily stamps n questions with date. Repeated calls for the same date
// return the existing selection. When unselected candidates run out the
// selected flag is reset and picking starts over.
func (s *QuestionService) SelectDaily(ctx context.Context, date string, n int) ([]models.Question, error) {
	var picked []models.Question
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		existing, err := tx.Questions.GetDailyQuestions(date)
		if err != nil {
			return err
		}
		if len(existing) >= n {
			picked = existing
			return nil
		}
		picked, err = tx.Questions.ListUnselected(n - len(existing))
		if err != nil {
			return err
		}
		if len(picked) < n-len(existing) {
			if err := tx.Questions.ResetSelected(); err != nil {
				return err
			}
			seen := map[uint]bool{}
			for _, q := range append(existing, picked...) {
				seen[q.ID] = true
			}
			more, err := tx.Questions.ListUnselected(n)
			if err != nil {
				return err
			}
			for _, q := range more {
				if len(picked) >= n-len(existing) {
					break
				}
				if !seen[q.ID] {
					picked = append(picked, q)
				}
			}
			// the reset also cleared today's earlier picks
			for i := range existing {
				if err := tx.Questions.SaveQuestion(&existing[i]); err != nil {
					return err
				}
			}
		}
		for i := range picked {
			picked[i].Selected = true
			if !picked[i].SelectedOn(date) {
				picked[i].SelectedDates = append(picked[i].SelectedDates, date)
			}
			if err := tx.Questions.SaveQuestion(&picked[i]); err != nil {
				return err
			}
		}
		picked = append(existing, picked...)
		return nil
	})
	return picked, err
}

// RequestResponse asks a connected friend to answer a question. Requests
// from different users to the same requestee coalesce into one notification.
func (s *QuestionService) RequestResponse(ctx context.Context, requesterID uint, req models.CreateResponseRequestRequest) (*models.ResponseRequest, error) {
	if requesterID == req.RequesteeID {
		return nil, apperrors.Wrap(apperrors.InvalidPair, models.ErrSelfConnection)
	}
	rr := &models.ResponseRequest{
		RequesterID: requesterID,
		RequesteeID: req.RequesteeID,
		QuestionID:  req.QuestionID,
		Message:     req.Message,
	}
	out := &Outbox{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := liveQuestion(tx, req.QuestionID); err != nil {
			return err
		}
		if err := checkBlocks(tx, requesterID, req.RequesteeID); err != nil {
			return err
		}
		if _, err := tx.Connections.GetConnection(requesterID, req.RequesteeID); err != nil {
			return notFoundAs(err, apperrors.NotFriend)
		}
		answered, err := tx.Posts.HasResponded(req.RequesteeID, req.QuestionID)
		if err != nil {
			return err
		}
		if answered {
			return apperrors.E(apperrors.RequestAlreadyAnswered)
		}
		if err := tx.ResponseRequests.CreateResponseRequest(rr); err != nil {
			if repositories.IsDuplicate(err) {
				return apperrors.Wrap(apperrors.ExistingResponseRequest, err)
			}
			return err
		}
		return s.notifier.Handle(ctx, tx, out, ResponseRequestCreated{Request: rr})
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Flush(out)
	return rr, nil
}

func (s *QuestionService) ReceivedRequests(ctx context.Context, userID uint, page repositories.Page) ([]models.ResponseRequest, error) {
	return s.store.WithContext(ctx).ResponseRequests.ListReceived(userID, page)
}
