package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// FriendRequestService runs the friend-request state machine:
// pending -> accepted | refused, or withdrawn by the requester.
type FriendRequestService struct {
	store    *repositories.Store
	notifier *Notifier
}

func NewFriendRequestService(store *repositories.Store, notifier *Notifier) *FriendRequestService {
	return &FriendRequestService{store: store, notifier: notifier}
}

// Create sends a friend request from requesterID.
func (s *FriendRequestService) Create(ctx context.Context, requesterID uint, req models.CreateFriendRequest) (*models.FriendRequest, error) {
	if requesterID == req.RequesteeID {
		return nil, apperrors.Wrap(apperrors.InvalidPair, models.ErrSelfConnection)
	}
	choice := req.Choice
	if choice == "" {
		choice = models.ChoiceFriend
	}
	if !choice.Valid() {
		return nil, apperrors.New(apperrors.UnknownField, "choice")
	}
	fr := &models.FriendRequest{
		RequesterID:     requesterID,
		RequesteeID:     req.RequesteeID,
		RequesterChoice: choice,
		RequesteeChoice: models.ChoiceFriend,
	}
	out := &Outbox{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.Users.GetUserByID(req.RequesteeID); err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
		if err := checkBlocks(tx, requesterID, req.RequesteeID); err != nil {
			return err
		}
		if _, err := tx.Connections.GetConnection(requesterID, req.RequesteeID); err == nil {
			return apperrors.E(apperrors.AlreadyFriends)
		} else if !repositories.IsNotFound(err) {
			return err
		}
		if err := tx.FriendRequests.CreateFriendRequest(fr); err != nil {
			if repositories.IsDuplicate(err) {
				return apperrors.Wrap(apperrors.ExistingFriendRequest, err)
			}
			return err
		}
		return s.notifier.Handle(ctx, tx, out, FriendRequestCreated{Request: fr})
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Flush(out)
	return fr, nil
}

// pendingFor locks request id and checks that userID is on the expected side.
func pendingFor(tx *repositories.Store, id, userID uint, asRequestee bool) (*models.FriendRequest, error) {
	fr, err := tx.FriendRequests.GetFriendRequestForUpdate(id)
	if err != nil {
		return nil, notFoundAs(err, apperrors.NotFound)
	}
	owner := fr.RequesterID
	if asRequestee {
		owner = fr.RequesteeID
	}
	if owner != userID {
		return nil, apperrors.E(apperrors.PermissionDenied)
	}
	return fr, nil
}

// Accept accepts request id as its requestee. The connection and chat room
// are created, both users are notified, and a pending reverse request is
// accepted with it. Accepting an accepted request is a no-op.
func (s *FriendRequestService) Accept(ctx context.Context, userID, id uint, choice models.Choice) (*models.FriendRequest, error) {
	if choice != "" && !choice.Valid() {
		return nil, apperrors.New(apperrors.UnknownField, "choice")
	}
	var fr *models.FriendRequest
	out := &Outbox{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		head, err := tx.FriendRequests.GetFriendRequestByID(id)
		if err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
		if head.RequesteeID != userID {
			return apperrors.E(apperrors.PermissionDenied)
		}

		// Both directions are locked in id order before any write.
		locked, err := tx.FriendRequests.LockBetween(head.RequesterID, head.RequesteeID)
		if err != nil {
			return err
		}
		var reverse *models.FriendRequest
		for i := range locked {
			if locked[i].ID == id {
				fr = &locked[i]
			} else if locked[i].RequesterID == head.RequesteeID && locked[i].IsPending() {
				reverse = &locked[i]
			}
		}
		if fr == nil {
			return apperrors.E(apperrors.NotFound)
		}
		if !fr.IsPending() {
			return nil
		}
		if err := checkBlocks(tx, userID, fr.RequesterID); err != nil {
			return err
		}

		accepted := true
		fr.Accepted = &accepted
		if choice != "" {
			fr.RequesteeChoice = choice
		}
		if err := tx.FriendRequests.SaveFriendRequest(fr); err != nil {
			return err
		}
		if reverse != nil {
			reverse.Accepted = &accepted
			if err := tx.FriendRequests.SaveFriendRequest(reverse); err != nil {
				return err
			}
		}
		conn, created, err := ensureConnection(ctx, tx, fr.RequesterID, fr.RequesteeID, fr.RequesterChoice, fr.RequesteeChoice)
		if err != nil {
			return err
		}
		if _, err := tx.ChatRooms.EnsureRoom(fr.RequesterID, fr.RequesteeID); err != nil {
			return err
		}

		ev := FriendRequestAccepted{Request: fr}
		if created {
			ev.Connection = conn
		}
		events := []Event{ev}
		if reverse != nil {
			events = append(events, FriendRequestClosed{Request: reverse})
		}
		return s.notifier.Handle(ctx, tx, out, events...)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Flush(out)
	return fr, nil
}

// Refuse closes a pending request as its requestee.
func (s *FriendRequestService) Refuse(ctx context.Context, userID, id uint) error {
	return s.close(ctx, userID, id, true)
}

// Destroy withdraws a pending request as its requester.
func (s *FriendRequestService) Destroy(ctx context.Context, userID, id uint) error {
	return s.close(ctx, userID, id, false)
}

func (s *FriendRequestService) close(ctx context.Context, userID, id uint, asRequestee bool) error {
	out := &Outbox{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		fr, err := pendingFor(tx, id, userID, asRequestee)
		if err != nil {
			return err
		}
		if !fr.IsPending() {
			return apperrors.E(apperrors.NotFound)
		}
		if asRequestee {
			refused := false
			fr.Accepted = &refused
			if err := tx.FriendRequests.SaveFriendRequest(fr); err != nil {
				return err
			}
		}
		if err := tx.FriendRequests.SoftDeleteFriendRequest(fr); err != nil {
			return err
		}
		return s.notifier.Handle(ctx, tx, out, FriendRequestClosed{Request: fr})
	})
	if err != nil {
		return err
	}
	s.notifier.Flush(out)
	return nil
}

// FriendRequestView pairs a request with the other user's profile.
type FriendRequestView struct {
	models.FriendRequest
	User models.UserCompact `json:"user"`
}

func (s *FriendRequestService) ListReceived(ctx context.Context, userID uint, page repositories.Page) ([]FriendRequestView, error) {
	st := s.store.WithContext(ctx)
	requests, err := st.FriendRequests.GetReceivedFriendRequests(userID, page)
	if err != nil {
		return nil, err
	}
	return withUsers(st, requests, func(r models.FriendRequest) uint { return r.RequesterID })
}

func (s *FriendRequestService) ListSent(ctx context.Context, userID uint, page repositories.Page) ([]FriendRequestView, error) {
	st := s.store.WithContext(ctx)
	requests, err := st.FriendRequests.GetSentFriendRequests(userID, page)
	if err != nil {
		return nil, err
	}
	return withUsers(st, requests, func(r models.FriendRequest) uint { return r.RequesteeID })
}

func withUsers(st *repositories.Store, requests []models.FriendRequest, other func(models.FriendRequest) uint) ([]FriendRequestView, error) {
	ids := make([]uint, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, other(r))
	}
	users, err := st.Users.GetUsersByIDs(uniq(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.UserCompact, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].ToCompact()
	}
	views := make([]FriendRequestView, 0, len(requests))
	for _, r := range requests {
		u, ok := byID[other(r)]
		if !ok {
			continue
		}
		views = append(views, FriendRequestView{FriendRequest: r, User: u})
	}
	return views, nil
}

// Recommend suggests friends of friends ranked by mutual friend count.
// Blocked users and users with a pending request either way are left out.
func (s *FriendRequestService) Recommend(ctx context.Context, userID uint, limit int) ([]models.UserCompact, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	st := s.store.WithContext(ctx)
	conns, err := st.Connections.ListConnections(userID)
	if err != nil {
		return nil, err
	}
	exclude := map[uint]struct{}{userID: {}}
	for i := range conns {
		exclude[conns[i].Other(userID)] = struct{}{}
	}
	blocked, err := st.Reports.BlockedIDs(userID)
	if err != nil {
		return nil, err
	}
	for _, id := range blocked {
		exclude[id] = struct{}{}
	}

	mutual := map[uint]int{}
	for i := range conns {
		friend := conns[i].Other(userID)
		theirs, err := st.Connections.ListConnections(friend)
		if err != nil {
			return nil, err
		}
		for j := range theirs {
			candidate := theirs[j].Other(friend)
			if _, skip := exclude[candidate]; !skip {
				mutual[candidate]++
			}
		}
	}
	ranked := make([]uint, 0, len(mutual))
	for id := range mutual {
		if _, err := st.FriendRequests.GetFriendRequestBetween(userID, id); err == nil {
			continue
		}
		if _, err := st.FriendRequests.GetFriendRequestBetween(id, userID); err == nil {
			continue
		}
		ranked = append(ranked, id)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if mutual[ranked[i]] != mutual[ranked[j]] {
			return mutual[ranked[i]] > mutual[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	users, err := st.Users.GetUsersByIDs(ranked)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.UserCompact, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].ToCompact()
	}
	out := make([]models.UserCompact, 0, len(ranked))
	for _, id := range ranked {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	zap.L().Debug("friend recommendations", zap.Uint("user_id", userID), zap.Int("count", len(out)))
	return out, nil
}
