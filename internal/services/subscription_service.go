package services

import (
	"context"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// SubscriptionService manages who is told about an author's new responses and notes.
type SubscriptionService struct {
	store *repositories.Store
}

func NewSubscriptionService(store *repositories.Store) *SubscriptionService {
	return &SubscriptionService{store: store}
}

func subscribable(kind models.Kind) bool {
	return kind == models.KindResponse || kind == models.KindNote
}

// Subscribe is idempotent. Only connected users may subscribe.
func (s *SubscriptionService) Subscribe(ctx context.Context, subscriberID uint, req models.SubscribeRequest) error {
	if subscriberID == req.AuthorID {
		return apperrors.Wrap(apperrors.InvalidPair, models.ErrSelfConnection)
	}
	if !subscribable(req.ContentKind) {
		return apperrors.New(apperrors.UnknownField, "content_kind")
	}
	st := s.store.WithContext(ctx)
	if err := checkBlocks(st, subscriberID, req.AuthorID); err != nil {
		return err
	}
	if err := requireConnected(st, subscriberID, req.AuthorID); err != nil {
		return err
	}
	return st.Subscriptions.Subscribe(&models.Subscription{
		SubscriberID: subscriberID,
		AuthorID:     req.AuthorID,
		ContentKind:  req.ContentKind,
	})
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, subscriberID, authorID uint, kind models.Kind) error {
	return s.store.WithContext(ctx).Subscriptions.Unsubscribe(subscriberID, authorID, kind)
}

func (s *SubscriptionService) List(ctx context.Context, subscriberID uint) ([]models.Subscription, error) {
	return s.store.WithContext(ctx).Subscriptions.ListSubscriptions(subscriberID)
}
