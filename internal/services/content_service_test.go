package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
	"github.com/anonto42/whoami-today/backend/internal/testutil"
)

func TestCreateValidatesContent(t *testing.T) {
	e := newEnv(t)
	a := e.user(t, "a")

	_, err := e.content.Create(e.ctx, a.ID, PostInput{Kind: models.KindNote, Content: " \n"})
	assert.ErrorIs(t, err, apperrors.E(apperrors.EmptyContent))
	_, err = e.content.Create(e.ctx, a.ID, PostInput{Kind: models.KindMoment})
	assert.ErrorIs(t, err, apperrors.E(apperrors.EmptyContent))
	_, err = e.content.Create(e.ctx, a.ID, PostInput{Kind: "poll", Content: "x"})
	assert.ErrorIs(t, err, apperrors.E(apperrors.UnknownField))
	_, err = e.content.Create(e.ctx, a.ID, PostInput{Kind: models.KindNote, Content: "x", Access: models.Access{Visibility: "secret"}})
	assert.ErrorIs(t, err, apperrors.E(apperrors.UnknownField))
	_, err = e.content.Create(e.ctx, a.ID, PostInput{Kind: models.KindNote, Content: "x", Access: models.Access{ShareGroups: []uint{77}}})
	assert.ErrorIs(t, err, apperrors.E(apperrors.NotFound))

	moment := e.post(t, a.ID, PostInput{Kind: models.KindMoment, Mood: "☀️"})
	assert.Equal(t, models.VisibilityFriends, moment.Access().Visibility)
}

func TestAuthorHasReadOwnPost(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	testutil.Befriend(t, e.store, a.ID, b.ID)
	note := e.post(t, a.ID, PostInput{Kind: models.KindNote, Content: "read me"})

	states, err := e.content.ReadStates(e.ctx, a.ID, models.KindNote, []uint{note.Ref().ID})
	require.NoError(t, err)
	assert.True(t, states[note.Ref().ID])

	require.NoError(t, e.content.MarkRead(e.ctx, b.ID, note.Ref()))
	require.NoError(t, e.content.MarkRead(e.ctx, b.ID, note.Ref()))

	readers, err := e.content.ListReaders(e.ctx, a.ID, note.Ref())
	require.NoError(t, err)
	require.Len(t, readers, 1)
	assert.Equal(t, "b", readers[0].Username)

	_, err = e.content.ListReaders(e.ctx, b.ID, note.Ref())
	assert.ErrorIs(t, err, apperrors.E(apperrors.PermissionDenied))
}

func TestMarkReadManySkipsInvisible(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	testutil.Befriend(t, e.store, a.ID, b.ID)
	shared := testutil.Note(t, e.store, a.ID, "shared", models.VisibilityFriends)
	private := testutil.Note(t, e.store, a.ID, "private", models.VisibilityPrivate)

	n, err := e.content.MarkReadMany(e.ctx, b.ID, models.KindNote, []uint{shared.ID, private.ID, shared.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.content.MarkReadMany(e.ctx, b.ID, models.KindNote, []uint{shared.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	states, err := e.content.ReadStates(e.ctx, b.ID, models.KindNote, []uint{shared.ID, private.ID})
	require.NoError(t, err)
	assert.True(t, states[shared.ID])
	assert.False(t, states[private.ID])
}

func TestUpdateMarksEditedOnlyOnBodyChange(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	note := e.post(t, a.ID, PostInput{Kind: models.KindNote, Content: "draft"})

	private := &models.AccessRequest{Visibility: models.VisibilityPrivate}
	updated, err := e.content.Update(e.ctx, a.ID, note.Ref(), models.UpdateContentRequest{Access: private})
	require.NoError(t, err)
	assert.False(t, updated.(*models.Note).IsEdited)
	assert.Equal(t, models.VisibilityPrivate, updated.Access().Visibility)

	body := "final"
	updated, err = e.content.Update(e.ctx, a.ID, note.Ref(), models.UpdateContentRequest{Content: &body})
	require.NoError(t, err)
	assert.True(t, updated.(*models.Note).IsEdited)

	_, err = e.content.Update(e.ctx, b.ID, note.Ref(), models.UpdateContentRequest{Content: &body})
	assert.ErrorIs(t, err, apperrors.E(apperrors.PermissionDenied))
}

func TestSoftDeleteRemovesThread(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	testutil.Befriend(t, e.store, a.ID, b.ID)
	note := testutil.Note(t, e.store, a.ID, "bye", models.VisibilityFriends)
	c, err := e.interactions.CreateComment(e.ctx, b.ID, models.CreateCommentRequest{ParentKind: models.KindNote, ParentID: note.ID, Content: "hi"})
	require.NoError(t, err)

	assert.ErrorIs(t, e.content.SoftDelete(e.ctx, b.ID, note.Ref()), apperrors.E(apperrors.PermissionDenied))
	require.NoError(t, e.content.SoftDelete(e.ctx, a.ID, note.Ref()))

	_, err = e.content.Get(e.ctx, a.ID, note.Ref())
	assert.ErrorIs(t, err, apperrors.E(apperrors.NotFound))
	_, err = e.store.Comments.GetCommentByID(c.ID)
	assert.True(t, repositories.IsNotFound(err))
}

func TestFeedLeavesOutHiddenFriends(t *testing.T) {
	e := newEnv(t)
	me, shown, hidden := e.user(t, "me"), e.user(t, "shown"), e.user(t, "hidden")
	testutil.Befriend(t, e.store, me.ID, shown.ID)
	testutil.Befriend(t, e.store, me.ID, hidden.ID)
	testutil.Note(t, e.store, shown.ID, "visible", models.VisibilityFriends)
	testutil.Note(t, e.store, hidden.ID, "muted", models.VisibilityFriends)
	testutil.Note(t, e.store, me.ID, "mine", models.VisibilityPrivate)
	require.NoError(t, e.users.AddHidden(e.ctx, me.ID, hidden.ID))

	feed, err := e.content.Feed(e.ctx, me.ID, models.KindNote, nil, 10)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "mine", feed[0].Body())
	assert.Equal(t, "visible", feed[1].Body())

	cursor := feed[0].GetCreatedAt()
	older, err := e.content.Feed(e.ctx, me.ID, models.KindNote, &cursor, 10)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "visible", older[0].Body())
}

func TestMostRecentUpdateIgnoresInvisiblePosts(t *testing.T) {
	e := newEnv(t)
	author, viewer := e.user(t, "author"), e.user(t, "viewer")
	testutil.Befriend(t, e.store, author.ID, viewer.ID)

	none, err := e.content.MostRecentUpdate(e.ctx, viewer.ID, author.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	visible := testutil.Note(t, e.store, author.ID, "hello", models.VisibilityFriends)
	e.clock.Advance(time.Minute)
	testutil.Note(t, e.store, author.ID, "secret", models.VisibilityPrivate)

	latest, err := e.content.MostRecentUpdate(e.ctx, viewer.ID, author.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(visible.CreatedAt))
}
