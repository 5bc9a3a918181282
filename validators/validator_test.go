package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
)

func TestValidateMapsTagsToCodes(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&models.LoginRequest{Username: "a", Password: "b"}))
	assert.ErrorIs(t, v.Validate(&models.LoginRequest{Password: "b"}), apperrors.E(apperrors.EmptyContent))
	assert.ErrorIs(t, v.Validate(&models.CreateLikeRequest{ParentKind: "story", ParentID: 1}), apperrors.E(apperrors.UnknownField))
	assert.ErrorIs(t, v.Validate(&models.CreateFriendRequest{}), apperrors.E(apperrors.UnknownField))

	noti := "25:99"
	assert.ErrorIs(t, v.Validate(&models.UpdateUserRequest{NotiTime: &noti}), apperrors.E(apperrors.UnknownField))
}
