package audience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/anonto42/whoami-today/backend/internal/models"
)

func day(n int) time.Time { return time.Date(2024, 3, n, 12, 0, 0, 0, time.UTC) }

func note(id, author uint, vis models.Visibility, at time.Time) Subject {
	return Subject{
		Ref:       models.Ref{Kind: models.KindNote, ID: id},
		AuthorID:  author,
		CreatedAt: at,
		Access:    models.Access{Visibility: vis},
	}
}

func neighbors(a, b uint) *models.Connection {
	low, high := models.CanonicalPair(a, b)
	c := &models.Connection{UserLowID: low, UserHighID: high}
	c.InitSide(a, models.ChoiceNeighbor)
	c.InitSide(b, models.ChoiceNeighbor)
	return c
}

func TestAuthorAlwaysSeesOwnContent(t *testing.T) {
	v := NewViewer(1)
	v.Blocked[1] = struct{}{}
	s := note(1, 1, models.VisibilityPrivate, day(1))
	s.AuthorDeleted = true
	assert.True(t, IsAudience(v, s, nil))
}

func TestBlockingHidesEitherWay(t *testing.T) {
	conn := neighbors(1, 2)
	v := NewViewer(2)
	v.Blocked[1] = struct{}{}
	assert.False(t, IsAudience(v, note(1, 1, models.VisibilityEveryone, day(1)), conn))
}

func TestReportedContentIsScopedByKind(t *testing.T) {
	conn := neighbors(1, 2)
	v := NewViewer(2)
	v.Reported[models.Ref{Kind: models.KindResponse, ID: 7}] = struct{}{}

	assert.True(t, IsAudience(v, note(7, 1, models.VisibilityFriends, day(1)), conn))

	s := note(7, 1, models.VisibilityFriends, day(1))
	s.Ref.Kind = models.KindResponse
	assert.False(t, IsAudience(v, s, conn))
}

func TestDeletedAuthorIsInvisible(t *testing.T) {
	s := note(1, 1, models.VisibilityEveryone, day(1))
	s.AuthorDeleted = true
	assert.False(t, IsAudience(NewViewer(2), s, nil))
}

func TestVisibilityTiers(t *testing.T) {
	v := NewViewer(2)
	assert.True(t, IsAudience(v, note(1, 1, models.VisibilityEveryone, day(1)), nil))
	assert.False(t, IsAudience(v, note(1, 1, models.VisibilityFriends, day(1)), nil))
	assert.True(t, IsAudience(v, note(1, 1, models.VisibilityFriends, day(1)), neighbors(1, 2)))
	assert.False(t, IsAudience(v, note(1, 1, models.VisibilityPrivate, day(1)), neighbors(1, 2)))
	assert.False(t, IsAudience(v, note(1, 1, models.VisibilityCloseFriends, day(1)), neighbors(1, 2)))
}

func TestSoftDeletedConnectionIsNoEdge(t *testing.T) {
	conn := neighbors(1, 2)
	conn.DeletedAt = gorm.DeletedAt{Time: day(2), Valid: true}
	assert.False(t, IsAudience(NewViewer(2), note(1, 1, models.VisibilityFriends, day(1)), conn))
}

func TestCloseFriendRetroactivity(t *testing.T) {
	n1 := note(1, 2, models.VisibilityCloseFriends, day(2))
	n2 := note(2, 2, models.VisibilityCloseFriends, day(4))
	viewer := NewViewer(1)

	t.Run("upgrade without past posts", func(t *testing.T) {
		conn := neighbors(1, 2)
		assert.True(t, conn.ApplyChoice(2, models.ChoiceFriend, false, day(3)))
		assert.False(t, IsAudience(viewer, n1, conn))
		assert.True(t, IsAudience(viewer, n2, conn))
	})

	t.Run("upgrade with past posts", func(t *testing.T) {
		conn := neighbors(1, 2)
		assert.True(t, conn.ApplyChoice(2, models.ChoiceFriend, true, day(3)))
		assert.True(t, IsAudience(viewer, n1, conn))
		assert.True(t, IsAudience(viewer, n2, conn))
	})

	t.Run("viewer side does not count", func(t *testing.T) {
		conn := neighbors(1, 2)
		conn.ApplyChoice(1, models.ChoiceFriend, true, day(3))
		assert.False(t, IsAudience(viewer, n2, conn))
	})

	t.Run("friend since creation", func(t *testing.T) {
		conn := &models.Connection{UserLowID: 1, UserHighID: 2}
		conn.InitSide(1, models.ChoiceNeighbor)
		conn.InitSide(2, models.ChoiceFriend)
		assert.True(t, IsAudience(viewer, n1, conn))
	})

	t.Run("downgrade", func(t *testing.T) {
		conn := neighbors(1, 2)
		conn.ApplyChoice(2, models.ChoiceFriend, false, day(3))
		conn.ApplyChoice(2, models.ChoiceNeighbor, false, day(5))
		assert.False(t, IsAudience(viewer, n2, conn))
	})
}

func TestShareOverrides(t *testing.T) {
	conn := neighbors(1, 2)

	s := note(1, 1, models.VisibilityCloseFriends, day(1))
	s.ShareSet = map[uint]struct{}{2: {}}
	assert.True(t, IsAudience(NewViewer(2), s, conn))
	assert.False(t, IsAudience(NewViewer(3), s, neighbors(1, 3)))
	assert.False(t, IsAudience(NewViewer(2), s, nil))

	s = note(1, 1, models.VisibilityCloseFriends, day(1))
	s.Access.ShareEveryone = true
	assert.True(t, IsAudience(NewViewer(2), s, conn))
	assert.False(t, IsAudience(NewViewer(3), s, nil))
}

func TestIsCloseFriend(t *testing.T) {
	conn := neighbors(1, 2)
	conn.ApplyChoice(2, models.ChoiceFriend, false, day(1))
	assert.True(t, IsCloseFriend(conn, 1, 2))
	assert.False(t, IsCloseFriend(conn, 2, 1))
	assert.False(t, IsCloseFriend(nil, 1, 2))
	assert.False(t, IsCloseFriend(conn, 1, 3))
}
