package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("liking response: %w", New(DuplicateLike, "user %d", 3))

	assert.True(t, errors.Is(err, E(DuplicateLike)))
	assert.False(t, errors.Is(err, E(ExistingReaction)))
	assert.True(t, HasCode(err, DuplicateLike))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(NotFound, cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestStatusAndNumbers(t *testing.T) {
	seen := map[int]Code{}
	for code := range definitions {
		n := code.Number()
		prev, dup := seen[n]
		assert.False(t, dup, "numeric code %d shared by %s and %s", n, code, prev)
		seen[n] = code
	}

	assert.Equal(t, http.StatusConflict, DuplicateLike.Status())
	assert.Equal(t, http.StatusNotFound, NoSuchQuestion.Status())
	assert.Equal(t, http.StatusInternalServerError, Code("Bogus").Status())
}

func TestAuthorizationMessagesAreGeneric(t *testing.T) {
	assert.Equal(t, "Not available.", PermissionDenied.Message("en"))
	assert.Equal(t, "Not available.", BlockedUserTag.Message("en"))
	assert.Equal(t, "이용할 수 없어요.", NotFriend.Message("ko"))
	assert.NotEqual(t, "Not available.", DuplicateLike.Message("en"))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, StatusOf(fmt.Errorf("ws: %w", E(PermissionDenied))))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("db down")))

	code, ok := CodeOf(Wrap(NotFriend, errors.New("x")))
	assert.True(t, ok)
	assert.Equal(t, NotFriend, code)
}
