package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
	"github.com/anonto42/whoami-today/backend/internal/testutil"
)

func TestSignupValidation(t *testing.T) {
	e := newEnv(t)
	valid := models.SignupRequest{Username: "new.user", Email: "new@example.com", Password: "secret123"}

	cases := []struct {
		name string
		edit func(r *models.SignupRequest)
		code apperrors.Code
	}{
		{"bad characters", func(r *models.SignupRequest) { r.Username = "no spaces" }, apperrors.InvalidUsername},
		{"too long", func(r *models.SignupRequest) { r.Username = strings.Repeat("a", 31) }, apperrors.LongUsername},
		{"bad email", func(r *models.SignupRequest) { r.Email = "not-an-email" }, apperrors.InvalidEmail},
		{"short password", func(r *models.SignupRequest) { r.Password = "a1" }, apperrors.WeakPassword},
		{"letters only", func(r *models.SignupRequest) { r.Password = "abcdefghij" }, apperrors.WeakPassword},
		{"bad timezone", func(r *models.SignupRequest) { r.Timezone = "Mars/Olympus" }, apperrors.UnknownField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.edit(&req)
			_, err := e.users.Signup(e.ctx, req)
			assert.ErrorIs(t, err, apperrors.E(tc.code))
		})
	}
}

func TestSignupAndLogin(t *testing.T) {
	e := newEnv(t)
	user, err := e.users.Signup(e.ctx, models.SignupRequest{Username: "Mina", Email: "Mina@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", user.Timezone)
	assert.Equal(t, "mina@example.com", user.Email)

	groups, err := e.users.ListGroups(e.ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, models.DefaultFriendGroupName, groups[0].Name)

	_, err = e.users.Signup(e.ctx, models.SignupRequest{Username: "mina", Email: "other@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.E(apperrors.ExistingUsername))
	_, err = e.users.Signup(e.ctx, models.SignupRequest{Username: "other", Email: "MINA@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.E(apperrors.ExistingEmail))

	logged, err := e.users.Login(e.ctx, "Mina", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, err = e.users.Login(e.ctx, "Mina", "wrong1234")
	assert.ErrorIs(t, err, apperrors.E(apperrors.WrongPassword))
	_, err = e.users.Login(e.ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, apperrors.E(apperrors.NoUsername))
}

func TestUpdateUsername(t *testing.T) {
	e := newEnv(t)
	a, _ := e.user(t, "alpha"), e.user(t, "beta")

	taken := "Beta"
	_, err := e.users.Update(e.ctx, a.ID, models.UpdateUserRequest{Username: &taken})
	assert.ErrorIs(t, err, apperrors.E(apperrors.ExistingUsername))

	recased := "Alpha"
	updated, err := e.users.Update(e.ctx, a.ID, models.UpdateUserRequest{Username: &recased})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", updated.Username)

	noti, clear := "08:30", ""
	updated, err = e.users.Update(e.ctx, a.ID, models.UpdateUserRequest{NotiTime: &noti})
	require.NoError(t, err)
	require.NotNil(t, updated.NotiTime)
	updated, err = e.users.Update(e.ctx, a.ID, models.UpdateUserRequest{NotiTime: &clear})
	require.NoError(t, err)
	assert.Nil(t, updated.NotiTime)
}

func TestSearchHidesBlockedUsers(t *testing.T) {
	e := newEnv(t)
	me, _, blocker := e.user(t, "sam"), e.user(t, "samantha"), e.user(t, "samuel")
	require.NoError(t, e.users.ReportUser(e.ctx, blocker.ID, me.ID, "spam"))

	found, err := e.users.Search(e.ctx, me.ID, "SAM", repositories.Page{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "samantha", found[0].Username)

	_, err = e.users.Get(e.ctx, me.ID, blocker.ID)
	assert.ErrorIs(t, err, apperrors.E(apperrors.BlockedUserTag))
}

func TestReportUserDropsSubscriptions(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	testutil.Befriend(t, e.store, a.ID, b.ID)
	require.NoError(t, e.subscriptions.Subscribe(e.ctx, b.ID, models.SubscribeRequest{AuthorID: a.ID, ContentKind: models.KindNote}))

	require.NoError(t, e.users.ReportUser(e.ctx, a.ID, b.ID, ""))
	subs, err := e.subscriptions.List(e.ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	err = e.subscriptions.Subscribe(e.ctx, b.ID, models.SubscribeRequest{AuthorID: a.ID, ContentKind: models.KindNote})
	assert.ErrorIs(t, err, apperrors.E(apperrors.BlockedUserTag))
}

func TestReportContentHidesItFromReporter(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	testutil.Befriend(t, e.store, a.ID, b.ID)
	note := testutil.Note(t, e.store, a.ID, "rude", models.VisibilityFriends)

	require.NoError(t, e.users.ReportContent(e.ctx, b.ID, models.ReportContentRequest{Kind: models.KindNote, ContentID: note.ID}))
	_, err := e.content.Get(e.ctx, b.ID, note.Ref())
	assert.ErrorIs(t, err, apperrors.E(apperrors.PermissionDenied))

	err = e.users.ReportContent(e.ctx, b.ID, models.ReportContentRequest{Kind: models.KindNote, ContentID: 999})
	assert.ErrorIs(t, err, apperrors.E(apperrors.NoSuchTarget))
}

func TestFriendSetsRequireConnection(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	assert.ErrorIs(t, e.users.AddFavorite(e.ctx, a.ID, b.ID), apperrors.E(apperrors.NotFriend))
	_, err := e.users.CreateGroup(e.ctx, a.ID, models.CreateFriendGroupRequest{Name: "crew", MemberIDs: []uint{b.ID}})
	assert.ErrorIs(t, err, apperrors.E(apperrors.NotFriend))

	testutil.Befriend(t, e.store, a.ID, b.ID)
	require.NoError(t, e.users.AddFavorite(e.ctx, a.ID, b.ID))
	friends, err := e.connections.ListFriends(e.ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.True(t, friends[0].IsFavorite)
	assert.False(t, friends[0].IsHidden)
}

func TestDeleteSelfRemovesConnections(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	testutil.Befriend(t, e.store, a.ID, b.ID)
	_, err := e.notifications.RegisterDevice(e.ctx, a.ID, models.RegisterDeviceRequest{RegistrationID: "token-a"})
	require.NoError(t, err)

	require.NoError(t, e.users.DeleteSelf(e.ctx, a.ID))

	connected, err := e.connections.IsConnected(e.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, connected)
	devices, err := e.store.Devices.ActiveDevices(a.ID)
	require.NoError(t, err)
	assert.Empty(t, devices)
	_, err = e.users.Login(e.ctx, "a", "whatever1")
	assert.ErrorIs(t, err, apperrors.E(apperrors.NoUsername))

	_, err = e.users.Signup(e.ctx, models.SignupRequest{Username: "a", Email: "a2@example.com", Password: "secret123"})
	assert.NoError(t, err)
}
