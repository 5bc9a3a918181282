package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/models"
)

const (
	// UserKey holds the *models.JwtCustomClaims of an authenticated request.
	UserKey = "user"
	// AccessCookie carries the token for browsers and websocket upgrades.
	AccessCookie = "access_token"
	// TokenTTL is how long issued tokens stay valid.
	TokenTTL = 72 * time.Hour
)

// SignToken issues an HS256 token for user.
func SignToken(secret string, user *models.User, now time.Time) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenString and returns its claims.
func ParseToken(secret, tokenString string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// tokenFrom reads "Bearer <token>" first and falls back to the access cookie.
func tokenFrom(c echo.Context) (string, error) {
	if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
		}
		return parts[1], nil
	}
	if cookie, err := c.Cookie(AccessCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
}

// JWTAuthMiddleware checks for a valid JWT and stores its claims under UserKey.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := tokenFrom(c)
			if err != nil {
				return err
			}
			claims, err := ParseToken(secret, tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			c.Set(UserKey, claims)
			return next(c)
		}
	}
}

// UserID returns the authenticated user's id, or 0 outside JWTAuthMiddleware.
func UserID(c echo.Context) uint {
	if claims, ok := c.Get(UserKey).(*models.JwtCustomClaims); ok {
		return claims.UserID
	}
	return 0
}
