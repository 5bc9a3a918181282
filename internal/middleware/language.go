package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/models"
)

const langKey = "lang"

// Language picks the response language from Accept-Language. Handlers that
// know the user may override it with SetLanguage.
func Language() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(langKey, models.ParseLanguage(c.Request().Header.Get("Accept-Language")))
			return next(c)
		}
	}
}

func SetLanguage(c echo.Context, lang models.Language) { c.Set(langKey, lang) }

// LanguageOf returns the request language, English by default.
func LanguageOf(c echo.Context) models.Language {
	if lang, ok := c.Get(langKey).(models.Language); ok {
		return lang
	}
	return models.LanguageEn
}
