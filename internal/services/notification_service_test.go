package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

func TestNotificationReadState(t *testing.T) {
	e := newEnv(t)
	a, b, c := e.user(t, "a"), e.user(t, "b"), e.user(t, "c")
	_, err := e.friends.Create(e.ctx, b.ID, models.CreateFriendRequest{RequesteeID: a.ID})
	require.NoError(t, err)
	_, err = e.friends.Create(e.ctx, c.ID, models.CreateFriendRequest{RequesteeID: a.ID})
	require.NoError(t, err)

	count, err := e.notifications.UnreadCount(e.ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	list, err := e.notifications.List(e.ctx, a.ID, models.LanguageKo, repositories.NotificationFilter{TargetKind: models.KindFriendRequest}, repositories.Page{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c님이 친구 요청을 보냈어요.", list[0].Message)

	n, err := e.notifications.MarkRead(e.ctx, a.ID, []uint{list[0].ID, list[0].ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = e.notifications.MarkRead(e.ctx, a.ID, []uint{list[0].ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = e.notifications.MarkRead(e.ctx, b.ID, []uint{list[1].ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = e.notifications.MarkAllRead(e.ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	count, err = e.notifications.UnreadCount(e.ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = e.notifications.List(e.ctx, a.ID, models.LanguageEn, repositories.NotificationFilter{TargetKind: models.KindLike}, repositories.Page{})
	assert.ErrorIs(t, err, apperrors.E(apperrors.UnknownField))
}

func TestRegisterDeviceMovesBetweenUsers(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")
	_, err := e.notifications.RegisterDevice(e.ctx, a.ID, models.RegisterDeviceRequest{RegistrationID: "shared", Language: "ko"})
	require.NoError(t, err)
	_, err = e.notifications.RegisterDevice(e.ctx, b.ID, models.RegisterDeviceRequest{RegistrationID: "shared"})
	require.NoError(t, err)

	devices, err := e.store.Devices.ActiveDevices(a.ID)
	require.NoError(t, err)
	assert.Empty(t, devices)
	devices, err = e.store.Devices.ActiveDevices(b.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, models.LanguageEn, devices[0].Language)

	require.NoError(t, e.notifications.UnregisterDevice(e.ctx, "shared"))
	devices, err = e.store.Devices.ActiveDevices(b.ID)
	require.NoError(t, err)
	assert.Empty(t, devices)
}
