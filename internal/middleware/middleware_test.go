package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
)

const secret = "test-secret"

func serve(t *testing.T, req *http.Request, mw ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var seen echo.Context
	h := func(c echo.Context) error {
		seen = c
		return c.NoContent(http.StatusNoContent)
	}
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, seen
}

func TestJWTFromHeaderAndCookie(t *testing.T) {
	token, err := SignToken(secret, &models.User{ID: 7, Username: "seven"}, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, c := serve(t, req, JWTAuthMiddleware(secret))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.EqualValues(t, 7, UserID(c))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: token})
	rec, c = serve(t, req, JWTAuthMiddleware(secret))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.EqualValues(t, 7, UserID(c))
}

func TestJWTRejectsBadTokens(t *testing.T) {
	expired, err := SignToken(secret, &models.User{ID: 1}, time.Now().Add(-2*TokenTTL))
	require.NoError(t, err)
	forged, err := SignToken("other", &models.User{ID: 1}, time.Now())
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":   "",
		"malformed": "Token abc",
		"expired":   "Bearer " + expired,
		"forged":    "Bearer " + forged,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec, _ := serve(t, req, JWTAuthMiddleware(secret))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequestIDAndLanguage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9")
	rec, c := serve(t, req, RequestID(), Language())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, models.LanguageKo, LanguageOf(c))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec, c = serve(t, req, RequestID(), Language())
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, models.LanguageEn, LanguageOf(c))
}

func TestCSRFGuardsCookieWrites(t *testing.T) {
	trusted := func(r *http.Request) bool { return r.Header.Get("Origin") == "https://whoami.today" }
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e := echo.New()

	cases := []struct {
		name    string
		method  string
		origin  string
		bearer  bool
		wantErr bool
	}{
		{"read from anywhere", http.MethodGet, "https://evil.example", false, false},
		{"write from frontend", http.MethodPost, "https://whoami.today", false, false},
		{"write from elsewhere", http.MethodPost, "https://evil.example", false, true},
		{"bearer write from elsewhere", http.MethodDelete, "https://evil.example", true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.bearer {
				req.Header.Set("Authorization", "Bearer x")
			}
			err := CSRF(trusted)(ok)(e.NewContext(req, httptest.NewRecorder()))
			if tc.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.CsrfFailed))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
