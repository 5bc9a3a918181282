package chat

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/services"
	"github.com/anonto42/whoami-today/backend/internal/testutil"
)

type fixture struct {
	hub      *Hub
	server   *httptest.Server
	messages *testutil.ChatMessages
	room     *models.ChatRoom
	users    map[string]*models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	st := testutil.NewStore(t, clock)
	a, b := testutil.CreateUser(t, st, "a"), testutil.CreateUser(t, st, "b")
	testutil.CreateUser(t, st, "c")
	testutil.Befriend(t, st, a.ID, b.ID)
	room, err := st.ChatRooms.EnsureRoom(a.ID, b.ID)
	require.NoError(t, err)

	f := &fixture{messages: &testutil.ChatMessages{}, room: room, users: map[string]*models.User{}}
	for _, name := range []string{"a", "b", "c"} {
		u, err := st.Users.GetUserByUsername(name)
		require.NoError(t, err)
		f.users[name] = u
	}
	f.hub = NewHub(services.NewChatService(st, f.messages, clock.Now), func(*http.Request) bool { return true })
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roomID, _ := strconv.Atoi(r.URL.Query().Get("room"))
		if err := f.hub.Serve(w, r, f.users[r.URL.Query().Get("as")], uint(roomID)); err != nil {
			w.WriteHeader(apperrors.StatusOf(err))
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) dial(t *testing.T, as string, roomID uint) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?as=" + as + "&room=" + strconv.Itoa(int(roomID))
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestFramesReachBothMembers(t *testing.T) {
	f := newFixture(t)
	ca, _, err := f.dial(t, "a", f.room.ID)
	require.NoError(t, err)
	defer ca.Close()
	cb, _, err := f.dial(t, "b", f.room.ID)
	require.NoError(t, err)
	defer cb.Close()
	require.Eventually(t, func() bool { return f.hub.Sessions(f.room.ID) == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, ca.WriteJSON(models.ChatFrame{UserID: 999, UserName: "spoofed", Message: "hello"}))
	for _, conn := range []*websocket.Conn{ca, cb} {
		var got models.ChatFrame
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, f.users["a"].ID, got.UserID)
		assert.Equal(t, "a", got.UserName)
		assert.Equal(t, "hello", got.Message)
		assert.False(t, got.Timestamp.IsZero())
	}

	stored, err := f.messages.GetMessagesByRoom(t.Context(), f.room.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestOutsiderCannotJoin(t *testing.T) {
	f := newFixture(t)
	_, resp, err := f.dial(t, "c", f.room.ID)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, f.hub.Sessions(f.room.ID))
}

func TestCloseRoomDisconnects(t *testing.T) {
	f := newFixture(t)
	ca, _, err := f.dial(t, "a", f.room.ID)
	require.NoError(t, err)
	defer ca.Close()
	require.Eventually(t, func() bool { return f.hub.Sessions(f.room.ID) == 1 }, time.Second, 10*time.Millisecond)

	f.hub.CloseRoom(f.room.ID)
	require.NoError(t, ca.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = ca.ReadMessage()
	assert.Error(t, err)
}
