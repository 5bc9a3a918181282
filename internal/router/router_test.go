package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/handlers"
	"github.com/anonto42/whoami-today/backend/internal/middleware"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
	"github.com/anonto42/whoami-today/backend/internal/services"
	"github.com/anonto42/whoami-today/backend/internal/testutil"
	"github.com/anonto42/whoami-today/backend/pkg/config"
)

const testSecret = "test-secret"

type app struct {
	e     *echo.Echo
	store *repositories.Store
}

func newApp(t *testing.T) *app {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	st := testutil.NewStore(t, clock)
	cfg := &config.Config{
		Env:          "test",
		JWTSecret:    testSecret,
		FrontendURL:  "http://localhost:3000",
		AllowedHosts: []string{"whoami.today"},
	}
	svc := services.New(st, services.Options{
		Dispatcher:   &testutil.RecordingDispatcher{},
		ChatMessages: &testutil.ChatMessages{},
		Clock:        clock.Now,
	})

	e := echo.New()
	SetupMiddleware(e, cfg)
	SetupRoutes(e, cfg, svc)
	return &app{e: e, store: st}
}

func (a *app) do(t *testing.T, method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := middleware.SignToken(testSecret, user, time.Now())
	require.NoError(t, err)
	return token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var body handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSignupThenLogin(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/api/v1/auth/signup",
		`{"username":"minji","email":"minji@example.com","password":"hunter22"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var signup struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signup))
	assert.NotEmpty(t, signup.Token)
	assert.Equal(t, "minji", signup.User.Username)
	assert.NotEmpty(t, rec.Header().Get("Set-Cookie"))

	rec = a.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"minji","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/me", "", signup.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"minji"`)

	rec = a.do(t, http.MethodPost, "/api/v1/auth/signup",
		`{"username":"minji","email":"other@example.com","password":"hunter22"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ExistingUsername", decodeError(t, rec).Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/api/v1/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/me", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", decodeError(t, rec).Message)
}

func TestErrorsFollowAcceptLanguage(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/api/v1/auth/signup",
		`{"username":"jisoo","email":"jisoo@example.com","password":"hunter22"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := `{"username":"jisoo","password":"wrong-pass1"}`
	rec = a.do(t, http.MethodPost, "/api/v1/auth/login", body, "", "Accept-Language", "ko-KR")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	ko := decodeError(t, rec)
	assert.Equal(t, "WrongPassword", ko.Code)
	assert.Equal(t, "비밀번호가 일치하지 않아요.", ko.Message)

	rec = a.do(t, http.MethodPost, "/api/v1/auth/login", body, "")
	assert.Equal(t, "The password is incorrect.", decodeError(t, rec).Message)
}

func TestNoteReadsFollowAudience(t *testing.T) {
	a := newApp(t)
	author := testutil.CreateUser(t, a.store, "author")
	friend := testutil.CreateUser(t, a.store, "friend")
	stranger := testutil.CreateUser(t, a.store, "stranger")
	testutil.Befriend(t, a.store, author.ID, friend.ID)
	note := testutil.Note(t, a.store, author.ID, "hello", models.VisibilityFriends)
	path := "/api/v1/notes/" + strconv.FormatUint(uint64(note.ID), 10)

	rec := a.do(t, http.MethodGet, path, "", tokenFor(t, friend))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "hello")

	rec = a.do(t, http.MethodGet, path, "", tokenFor(t, stranger))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "PermissionDenied", decodeError(t, rec).Code)

	rec = a.do(t, http.MethodGet, "/api/v1/notes/abc", "", tokenFor(t, friend))
	assert.Equal(t, "NotFound", decodeError(t, rec).Code)
}

func TestAllowOrigin(t *testing.T) {
	check := allowOrigin(&config.Config{FrontendURL: "http://localhost:3000", AllowedHosts: []string{"whoami.today"}})
	for origin, want := range map[string]bool{
		"":                      true,
		"http://localhost:3000": true,
		"https://whoami.today":  true,
		"https://evil.example":  false,
	} {
		r := httptest.NewRequest(http.MethodGet, "/ws/chat/1/", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, check(r), origin)
	}
}

func TestCookieWritesNeedTrustedOrigin(t *testing.T) {
	a := newApp(t)
	user := testutil.CreateUser(t, a.store, "cookie")
	cookie := middleware.AccessCookie + "=" + tokenFor(t, user)

	rec := a.do(t, http.MethodPost, "/api/v1/notes", `{"content":"hi"}`, "",
		"Cookie", cookie, "Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "CsrfFailed", decodeError(t, rec).Code)

	rec = a.do(t, http.MethodPost, "/api/v1/notes", `{"content":"hi"}`, "",
		"Cookie", cookie, "Origin", "http://localhost:3000")
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
