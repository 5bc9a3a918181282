package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/audience"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// ConnectionService owns the connection graph.
type ConnectionService struct {
	store  *repositories.Store
	now    Clock
	closer *roomCloser
}

// roomCloser forwards rooms deactivated by an unfriend to the live socket
// hub once the transaction has committed.
type roomCloser struct {
	mu sync.RWMutex
	fn func(roomID uint)
}

func (r *roomCloser) set(fn func(roomID uint)) {
	r.mu.Lock()
	r.fn = fn
	r.mu.Unlock()
}

func (r *roomCloser) close(roomIDs ...uint) {
	if r == nil {
		return
	}
	r.mu.RLock()
	fn := r.fn
	r.mu.RUnlock()
	if fn == nil {
		return
	}
	for _, id := range roomIDs {
		fn(id)
	}
}

func NewConnectionService(store *repositories.Store, now Clock) *ConnectionService {
	return &ConnectionService{store: store, now: now}
}

// mapConnectionError turns model hook errors into coded errors.
func mapConnectionError(err error) error {
	switch {
	case errors.Is(err, models.ErrSelfConnection):
		return apperrors.Wrap(apperrors.InvalidPair, err)
	case errors.Is(err, models.ErrNonCanonicalPair):
		return apperrors.Wrap(apperrors.CanonicalizationError, err)
	}
	return err
}

// InsertConnection stores conn exactly as given. Producers must canonicalize
// first; a reversed pair fails with CanonicalizationError.
func (s *ConnectionService) InsertConnection(ctx context.Context, conn *models.Connection) error {
	return mapConnectionError(s.store.WithContext(ctx).Connections.CreateConnection(conn))
}

// UpsertConnection creates the a-b edge or moves a's side to choice. A new
// edge gives b the friend tier.
func (s *ConnectionService) UpsertConnection(ctx context.Context, a, b uint, choice models.Choice, updatePastPosts bool) (*models.Connection, error) {
	var conn *models.Connection
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		conn, _, err = ensureConnection(ctx, tx, a, b, choice, models.ChoiceFriend)
		if err != nil {
			return err
		}
		if conn.ApplyChoice(a, choice, updatePastPosts, s.now()) {
			return tx.Connections.SaveConnection(conn)
		}
		return nil
	})
	return conn, err
}

// UpdateChoice changes a's side of an existing edge.
func (s *ConnectionService) UpdateChoice(ctx context.Context, a, b uint, choice models.Choice, updatePastPosts bool) (*models.Connection, error) {
	if !choice.Valid() {
		return nil, apperrors.New(apperrors.UnknownField, "choice")
	}
	var conn *models.Connection
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		conn, err = tx.Connections.GetConnectionForUpdate(a, b)
		if err != nil {
			return notFoundAs(err, apperrors.NotFriend)
		}
		if conn.ApplyChoice(a, choice, updatePastPosts, s.now()) {
			return tx.Connections.SaveConnection(conn)
		}
		return nil
	})
	return conn, err
}

// ensureConnection returns the live a-b edge, creating it with the given
// initial choices when absent. created is false when the edge already existed,
// including when a concurrent writer created it first.
func ensureConnection(ctx context.Context, tx *repositories.Store, a, b uint, choiceA, choiceB models.Choice) (*models.Connection, bool, error) {
	if a == b {
		return nil, false, apperrors.Wrap(apperrors.InvalidPair, models.ErrSelfConnection)
	}
	conn, err := tx.Connections.GetConnectionForUpdate(a, b)
	if err == nil {
		return conn, false, nil
	}
	if !repositories.IsNotFound(err) {
		return nil, false, err
	}

	low, high := models.CanonicalPair(a, b)
	conn = &models.Connection{UserLowID: low, UserHighID: high}
	conn.InitSide(a, choiceA)
	conn.InitSide(b, choiceB)
	err = tx.Transaction(ctx, func(sp *repositories.Store) error {
		return sp.Connections.CreateConnection(conn)
	})
	if repositories.IsDuplicate(err) {
		existing, err := tx.Connections.GetConnectionForUpdate(a, b)
		return existing, false, err
	}
	if err != nil {
		return nil, false, mapConnectionError(err)
	}
	return conn, true, nil
}

// RemoveConnection unfriends a and b and runs the unfriend cascade.
func (s *ConnectionService) RemoveConnection(ctx context.Context, a, b uint) error {
	var roomID uint
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		conn, err := tx.Connections.GetConnectionForUpdate(a, b)
		if err != nil {
			return notFoundAs(err, apperrors.NotFriend)
		}
		if err := tx.Connections.SoftDeleteConnection(conn); err != nil {
			return err
		}
		roomID, err = unfriendCascade(tx, conn)
		return err
	})
	if err != nil {
		return err
	}
	if roomID != 0 {
		s.closer.close(roomID)
	}
	return nil
}

// unfriendCascade returns the id of the chat room it deactivated, or 0.
func unfriendCascade(tx *repositories.Store, conn *models.Connection) (uint, error) {
	a, b := conn.UserLowID, conn.UserHighID
	removed, err := tx.Notifications.HardDeleteFriendship(a, b, conn.ID)
	if err != nil {
		return 0, err
	}
	requests, err := tx.FriendRequests.HardDeleteBetween(a, b)
	if err != nil {
		return 0, err
	}
	if err := tx.Users.RemoveFromFriendSets(a, b); err != nil {
		return 0, err
	}
	if err := tx.FriendGroups.RemoveFriendFromGroups(a, b); err != nil {
		return 0, err
	}
	if err := tx.FriendGroups.RemoveFriendFromGroups(b, a); err != nil {
		return 0, err
	}

	var roomID uint
	room, err := tx.ChatRooms.GetRoom(a, b)
	switch {
	case err == nil:
		if room.Active {
			roomID = room.ID
		}
		if err := tx.ChatRooms.DeactivateRoom(a, b); err != nil {
			return 0, err
		}
	case !repositories.IsNotFound(err):
		return 0, err
	}
	zap.L().Info("connection removed",
		zap.Uint("user_low_id", a), zap.Uint("user_high_id", b),
		zap.Int64("notifications_deleted", removed), zap.Int64("friend_requests_deleted", requests))
	return roomID, nil
}

// GetConnection returns the live edge or nil.
func (s *ConnectionService) GetConnection(ctx context.Context, a, b uint) (*models.Connection, error) {
	conn, err := s.store.WithContext(ctx).Connections.GetConnection(a, b)
	if repositories.IsNotFound(err) {
		return nil, nil
	}
	return conn, err
}

func (s *ConnectionService) IsConnected(ctx context.Context, a, b uint) (bool, error) {
	conn, err := s.GetConnection(ctx, a, b)
	return conn != nil, err
}

// IsCloseFriend reports whether author has marked viewer a close friend.
func (s *ConnectionService) IsCloseFriend(ctx context.Context, viewerID, authorID uint) (bool, error) {
	conn, err := s.GetConnection(ctx, viewerID, authorID)
	if err != nil {
		return false, err
	}
	return audience.IsCloseFriend(conn, viewerID, authorID), nil
}

// Friend is one row of a friends list.
type Friend struct {
	User        models.UserCompact `json:"user"`
	MyChoice    models.Choice      `json:"my_choice"`
	TheirChoice models.Choice      `json:"their_choice"`
	IsFavorite  bool               `json:"is_favorite"`
	IsHidden    bool               `json:"is_hidden"`
	Since       string             `json:"since"`
}

// ListFriends returns userID's live connections with the peer's profile.
func (s *ConnectionService) ListFriends(ctx context.Context, userID uint) ([]Friend, error) {
	st := s.store.WithContext(ctx)
	conns, err := st.Connections.ListConnections(userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(conns))
	for i := range conns {
		ids = append(ids, conns[i].Other(userID))
	}
	users, err := st.Users.GetUsersByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	favorites, err := st.Users.ListFavoriteIDs(userID)
	if err != nil {
		return nil, err
	}
	hidden, err := st.Users.ListHiddenIDs(userID)
	if err != nil {
		return nil, err
	}
	favSet, hiddenSet := toSet(favorites), toSet(hidden)

	friends := make([]Friend, 0, len(conns))
	for i := range conns {
		other := conns[i].Other(userID)
		u, ok := byID[other]
		if !ok {
			continue
		}
		_, fav := favSet[other]
		_, hid := hiddenSet[other]
		friends = append(friends, Friend{
			User:        u.ToCompact(),
			MyChoice:    conns[i].SideOf(userID).Choice,
			TheirChoice: conns[i].SideOf(other).Choice,
			IsFavorite:  fav,
			IsHidden:    hid,
			Since:       conns[i].CreatedAt.Format("2006-01-02"),
		})
	}
	return friends, nil
}
