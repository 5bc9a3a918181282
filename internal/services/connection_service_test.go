package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
	"github.com/anonto42/whoami-today/backend/internal/testutil"
)

func TestInsertConnectionRejectsReversedPair(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")

	err := e.connections.InsertConnection(e.ctx, &models.Connection{
		UserLowID: b.ID, UserHighID: a.ID,
		UserLowChoice: models.ChoiceFriend, UserHighChoice: models.ChoiceFriend,
	})
	assert.ErrorIs(t, err, apperrors.E(apperrors.CanonicalizationError))

	err = e.connections.InsertConnection(e.ctx, &models.Connection{
		UserLowID: a.ID, UserHighID: a.ID,
		UserLowChoice: models.ChoiceFriend, UserHighChoice: models.ChoiceFriend,
	})
	assert.ErrorIs(t, err, apperrors.E(apperrors.InvalidPair))
}

func TestUpsertConnectionIsOrderIndependent(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")

	first, err := e.connections.UpsertConnection(e.ctx, b.ID, a.ID, models.ChoiceNeighbor, false)
	require.NoError(t, err)
	assert.Equal(t, a.ID, first.UserLowID)
	assert.Equal(t, models.ChoiceNeighbor, first.SideOf(b.ID).Choice)
	assert.Equal(t, models.ChoiceFriend, first.SideOf(a.ID).Choice)

	second, err := e.connections.UpsertConnection(e.ctx, a.ID, b.ID, models.ChoiceFriend, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	connected, err := e.connections.IsConnected(e.ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestCloseFriendUpgradeIsNotRetroactiveByDefault(t *testing.T) {
	e := newEnv(t)
	author, viewer := e.user(t, "author"), e.user(t, "viewer")
	testutil.Connect(t, e.store, author.ID, viewer.ID, models.ChoiceNeighbor, models.ChoiceFriend)

	closeOnly := models.Access{Visibility: models.VisibilityCloseFriends}
	before := e.post(t, author.ID, PostInput{Kind: models.KindNote, Content: "before", Access: closeOnly})

	_, err := e.connections.UpdateChoice(e.ctx, author.ID, viewer.ID, models.ChoiceFriend, false)
	require.NoError(t, err)
	after := e.post(t, author.ID, PostInput{Kind: models.KindNote, Content: "after", Access: closeOnly})

	_, err = e.content.Get(e.ctx, viewer.ID, before.Ref())
	assert.ErrorIs(t, err, apperrors.E(apperrors.PermissionDenied))
	_, err = e.content.Get(e.ctx, viewer.ID, after.Ref())
	assert.NoError(t, err)

	isClose, err := e.connections.IsCloseFriend(e.ctx, viewer.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, isClose)

	_, err = e.connections.UpdateChoice(e.ctx, author.ID, viewer.ID, models.ChoiceNeighbor, false)
	require.NoError(t, err)
	_, err = e.content.Get(e.ctx, viewer.ID, after.Ref())
	assert.ErrorIs(t, err, apperrors.E(apperrors.PermissionDenied))

	_, err = e.connections.UpdateChoice(e.ctx, author.ID, viewer.ID, models.ChoiceFriend, true)
	require.NoError(t, err)
	_, err = e.content.Get(e.ctx, viewer.ID, before.Ref())
	assert.NoError(t, err)
}

func TestViewerSideDoesNotGrantCloseFriendAccess(t *testing.T) {
	e := newEnv(t)
	author, viewer := e.user(t, "author"), e.user(t, "viewer")
	testutil.Connect(t, e.store, author.ID, viewer.ID, models.ChoiceNeighbor, models.ChoiceFriend)
	post := e.post(t, author.ID, PostInput{Kind: models.KindNote, Content: "close", Access: models.Access{Visibility: models.VisibilityCloseFriends}})

	_, err := e.content.Get(e.ctx, viewer.ID, post.Ref())
	assert.ErrorIs(t, err, apperrors.E(apperrors.PermissionDenied))
}

func TestRemoveConnectionCascades(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	req, err := e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
	require.NoError(t, err)
	_, err = e.friends.Accept(e.ctx, b.ID, req.ID, "")
	require.NoError(t, err)

	require.NoError(t, e.users.AddFavorite(e.ctx, a.ID, b.ID))
	require.NoError(t, e.users.AddHidden(e.ctx, b.ID, a.ID))
	group, err := e.users.CreateGroup(e.ctx, a.ID, models.CreateFriendGroupRequest{Name: "inner", MemberIDs: []uint{b.ID}})
	require.NoError(t, err)
	require.NotEmpty(t, e.inbox(t, a.ID))
	require.NotEmpty(t, e.inbox(t, b.ID))

	require.NoError(t, e.connections.RemoveConnection(e.ctx, b.ID, a.ID))

	conn, err := e.connections.GetConnection(e.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.Empty(t, e.inbox(t, a.ID))
	assert.Empty(t, e.inbox(t, b.ID))

	_, err = e.store.FriendRequests.GetFriendRequestBetween(a.ID, b.ID)
	assert.True(t, repositories.IsNotFound(err))

	favorites, err := e.store.Users.ListFavoriteIDs(a.ID)
	require.NoError(t, err)
	assert.Empty(t, favorites)
	hidden, err := e.store.Users.ListHiddenIDs(b.ID)
	require.NoError(t, err)
	assert.Empty(t, hidden)
	members, err := e.store.FriendGroups.MemberIDs(a.ID, []uint{group.ID})
	require.NoError(t, err)
	assert.Empty(t, members)

	room, err := e.store.ChatRooms.GetRoom(a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, room.Active)

	_, err = e.friends.Create(e.ctx, a.ID, models.CreateFriendRequest{RequesteeID: b.ID})
	assert.NoError(t, err)
}

func TestRemoveMissingConnection(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	err := e.connections.RemoveConnection(e.ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, apperrors.E(apperrors.NotFriend))
}

func TestUnfriendAndDeleteSelfCloseRooms(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	st := testutil.NewStore(t, clock)
	svc := New(st, Options{Dispatcher: &testutil.RecordingDispatcher{}, ChatMessages: &testutil.ChatMessages{}, Clock: clock.Now})
	var closed []uint
	svc.OnRoomClosed(func(roomID uint) { closed = append(closed, roomID) })

	a, b, c := testutil.CreateUser(t, st, "a"), testutil.CreateUser(t, st, "b"), testutil.CreateUser(t, st, "c")
	testutil.Befriend(t, st, a.ID, b.ID)
	testutil.Befriend(t, st, a.ID, c.ID)
	ab, err := st.ChatRooms.EnsureRoom(a.ID, b.ID)
	require.NoError(t, err)
	ac, err := st.ChatRooms.EnsureRoom(a.ID, c.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Connections.RemoveConnection(context.Background(), b.ID, a.ID))
	assert.Equal(t, []uint{ab.ID}, closed)

	require.NoError(t, svc.Users.DeleteSelf(context.Background(), a.ID))
	assert.Equal(t, []uint{ab.ID, ac.ID}, closed)
}
