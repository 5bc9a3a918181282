package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
	"github.com/anonto42/whoami-today/backend/internal/testutil"
)

func TestFriendRequestValidation(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")

	_, err := e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: a.ID})
	assert.ErrorIs(t, err, apperrors.E(apperrors.InvalidPair))

	_, err = e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: 9999})
	assert.ErrorIs(t, err, apperrors.E(apperrors.NotFound))

	_, err = e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID, Choice: "bestie"})
	assert.ErrorIs(t, err, apperrors.E(apperrors.UnknownField))

	_, err = e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
	require.NoError(t, err)
	_, err = e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
	assert.ErrorIs(t, err, apperrors.E(apperrors.ExistingFriendRequest))

	inbox := e.inbox(t, b.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, "a sent you a friend request.", inbox[0].MessageEn)
}

func TestFriendRequestToConnectedUser(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	testutil.Befriend(t, e.store, a.ID, b.ID)

	_, err := e.friends.Create(e.ctx, b.ID, models.CreateFriendRequest{RequesteeID: a.ID})
	assert.ErrorIs(t, err, apperrors.E(apperrors.AlreadyFriends))
}

func TestFriendRequestAcrossBlock(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	require.NoError(t, e.store.Reports.ReportUser(&models.UserReport{ReporterID: a.ID, ReportedID: b.ID}))

	_, err := e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
	assert.ErrorIs(t, err, apperrors.E(apperrors.BlockingUserTag))
	_, err = e.friends.Create(e.ctx, b.ID, models.CreateFriendRequest{RequesteeID: a.ID})
	assert.ErrorIs(t, err, apperrors.E(apperrors.BlockedUserTag))
}

func TestAcceptCreatesConnectionOnce(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	req, err := e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID, Choice: models.ChoiceNeighbor})
	require.NoError(t, err)

	_, err = e.friends.Accept(e.ctx, a.ID, req.ID, "")
	assert.ErrorIs(t, err, apperrors.E(apperrors.PermissionDenied))

	accepted, err := e.friends.Accept(e.ctx, b.ID, req.ID, "")
	require.NoError(t, err)
	require.NotNil(t, accepted.Accepted)
	assert.True(t, *accepted.Accepted)

	conn, err := e.connections.GetConnection(e.ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, models.ChoiceNeighbor, conn.SideOf(a.ID).Choice)
	assert.Equal(t, models.ChoiceFriend, conn.SideOf(b.ID).Choice)

	room, err := e.store.ChatRooms.GetRoom(a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, room.Active)

	inboxA := e.inbox(t, a.ID)
	require.Len(t, inboxA, 1)
	assert.Equal(t, "You and b are now friends!", inboxA[0].MessageEn)
	assert.Equal(t, models.Ref{Kind: models.KindUser, ID: b.ID}, inboxA[0].Origin())
	assert.Equal(t, models.Ref{Kind: models.KindConnection, ID: conn.ID}, inboxA[0].Target())
	assert.Equal(t, fmt.Sprintf("/users/%d", b.ID), inboxA[0].RedirectURL)

	inboxB := e.inbox(t, b.ID)
	require.Len(t, inboxB, 1, "the request notification is hidden once accepted")
	assert.Equal(t, "You and a are now friends!", inboxB[0].MessageEn)
	assert.Equal(t, models.Ref{Kind: models.KindUser, ID: a.ID}, inboxB[0].Origin())
	assert.Equal(t, models.Ref{Kind: models.KindConnection, ID: conn.ID}, inboxB[0].Target())

	pushes := len(e.pushes.Jobs())
	again, err := e.friends.Accept(e.ctx, b.ID, req.ID, "")
	require.NoError(t, err)
	assert.True(t, *again.Accepted)
	assert.Len(t, e.pushes.Jobs(), pushes)
	assert.Len(t, e.inbox(t, a.ID), 1)
}

func TestSymmetricRequestsYieldOneConnection(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	ab, err := e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
	require.NoError(t, err)
	ba, err := e.friends.Create(e.ctx, b.ID, models.CreateFriendRequest{RequesteeID: a.ID})
	require.NoError(t, err)

	_, err = e.friends.Accept(e.ctx, b.ID, ab.ID, "")
	require.NoError(t, err)
	_, err = e.friends.Accept(e.ctx, a.ID, ba.ID, "")
	require.NoError(t, err)

	conns, err := e.store.Connections.ListConnections(a.ID)
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	reverse, err := e.store.FriendRequests.GetFriendRequestByID(ba.ID)
	require.NoError(t, err)
	require.NotNil(t, reverse.Accepted)
	assert.True(t, *reverse.Accepted)

	for _, n := range e.inbox(t, a.ID) {
		assert.NotEqual(t, models.KindFriendRequest, n.TargetKind)
	}
	assert.Len(t, e.inbox(t, a.ID), 1)
}

func TestRefuseAndDestroyCloseTheRequest(t *testing.T) {
	e := newEnv(t)
	a, b, c := e.user(t, "a"), e.user(t, "b"), e.user(t, "c")

	refused, err := e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
	require.NoError(t, err)
	require.NoError(t, e.friends.Refuse(e.ctx, b.ID, refused.ID))
	assert.Empty(t, e.inbox(t, b.ID))
	_, err = e.store.FriendRequests.GetFriendRequestByID(refused.ID)
	assert.True(t, repositories.IsNotFound(err))
	assert.ErrorIs(t, e.friends.Refuse(e.ctx, b.ID, refused.ID), apperrors.E(apperrors.NotFound))

	withdrawn, err := e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: c.ID})
	require.NoError(t, err)
	assert.ErrorIs(t, e.friends.Destroy(e.ctx, c.ID, withdrawn.ID), apperrors.E(apperrors.PermissionDenied))
	require.NoError(t, e.friends.Destroy(e.ctx, a.ID, withdrawn.ID))
	assert.Empty(t, e.inbox(t, c.ID))

	_, err = e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
	assert.NoError(t, err)
}

func TestListRequestsCarryTheOtherUser(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	_, err := e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
	require.NoError(t, err)

	received, err := e.friends.ListReceived(e.ctx, b.ID, repositories.Page{})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "a", received[0].User.Username)

	sent, err := e.friends.ListSent(e.ctx, a.ID, repositories.Page{})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "b", sent[0].User.Username)
}

func TestRecommendRanksByMutualFriends(t *testing.T) {
	e := newEnv(t)
	me, f1, f2 := e.user(t, "me"), e.user(t, "f1"), e.user(t, "f2")
	two, one, pending, blocked := e.user(t, "two"), e.user(t, "one"), e.user(t, "pending"), e.user(t, "blocked")
	testutil.Befriend(t, e.store, me.ID, f1.ID)
	testutil.Befriend(t, e.store, me.ID, f2.ID)
	testutil.Befriend(t, e.store, f1.ID, two.ID)
	testutil.Befriend(t, e.store, f2.ID, two.ID)
	testutil.Befriend(t, e.store, f1.ID, one.ID)
	testutil.Befriend(t, e.store, f1.ID, pending.ID)
	testutil.Befriend(t, e.store, f2.ID, blocked.ID)
	_, err := e.friends.Create(e.ctx, pending.ID, models.CreateFriendRequest{RequesteeID: me.ID})
	require.NoError(t, err)
	require.NoError(t, e.store.Reports.ReportUser(&models.UserReport{ReporterID: blocked.ID, ReportedID: me.ID}))

	got, err := e.friends.Recommend(e.ctx, me.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Username)
	assert.Equal(t, "one", got[1].Username)
}

func TestConcurrentSymmetricAccepts(t *testing.T) {
	e := newConcurrentEnv(t)
	for round := 0; round < 5; round++ {
		a := e.user(t, testutil.UniqueName("a"))
		b := e.user(t, testutil.UniqueName("b"))
		ab, err := e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
		require.NoError(t, err)
		ba, err := e.friends.Create(e.ctx, b.ID, models.CreateFriendRequest{RequesteeID: a.ID})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = e.friends.Accept(e.ctx, b.ID, ab.ID, "")
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = e.friends.Accept(e.ctx, a.ID, ba.ID, "")
		}()
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		conns, err := e.store.Connections.ListConnections(a.ID)
		require.NoError(t, err)
		assert.Len(t, conns, 1)
		for _, id := range []uint{ab.ID, ba.ID} {
			fr, err := e.store.FriendRequests.GetFriendRequestByID(id)
			require.NoError(t, err)
			require.NotNil(t, fr.Accepted)
			assert.True(t, *fr.Accepted)
		}
	}
}
