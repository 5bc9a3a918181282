package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/testutil"
)

func TestChatHistoryIsMemberOnly(t *testing.T) {
	e := newEnv(t)
	a, b, outsider := e.user(t, "a"), e.user(t, "b"), e.user(t, "outsider")
	testutil.Befriend(t, e.store, a.ID, b.ID)
	room, err := e.store.ChatRooms.EnsureRoom(b.ID, a.ID)
	require.NoError(t, err)

	chat := NewChatService(e.store, &testutil.ChatMessages{}, e.clock.Now)
	for _, text := range []string{"hi", "how are you", "fine"} {
		e.clock.Advance(time.Second)
		_, err := chat.Post(e.ctx, room, a, text)
		require.NoError(t, err)
	}
	_, err = chat.Post(e.ctx, room, b, "   ")
	assert.ErrorIs(t, err, apperrors.E(apperrors.EmptyContent))

	history, err := chat.History(e.ctx, b.ID, room.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "how are you", history[0].Message)
	assert.Equal(t, "a", history[0].UserName)
	assert.Equal(t, time.UTC, history[0].Timestamp.Location())

	_, err = chat.History(e.ctx, outsider.ID, room.ID, 0, 10)
	assert.ErrorIs(t, err, apperrors.E(apperrors.PermissionDenied))
	_, err = chat.Room(e.ctx, a.ID, room.ID+100)
	assert.ErrorIs(t, err, apperrors.E(apperrors.NotFound))

	rooms, err := chat.Rooms(e.ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)

	require.NoError(t, e.connections.RemoveConnection(e.ctx, a.ID, b.ID))
	_, err = chat.Room(e.ctx, a.ID, room.ID)
	assert.ErrorIs(t, err, apperrors.E(apperrors.PermissionDenied))
}
