package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/middleware"
	"github.com/anonto42/whoami-today/backend/pkg/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// HTTPErrorHandler renders coded errors with their localized message, echo
// errors as they are, and everything else as a logged, generic 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	lang := string(middleware.LanguageOf(c))

	status, body := http.StatusInternalServerError, ErrorResponse{Code: "InternalError"}
	var appErr *apperrors.Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		status = appErr.Code.Status()
		body = ErrorResponse{Code: string(appErr.Code), Status: appErr.Code.Number(), Message: appErr.Code.Message(lang)}
		if status >= http.StatusInternalServerError {
			logFailure(c, err)
		}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		body = ErrorResponse{Code: http.StatusText(status), Status: status, Message: messageOf(httpErr)}
	default:
		logFailure(c, err)
		body.Status = status
		body.Message = "Something went wrong."
		if lang == "ko" {
			body.Message = "문제가 발생했어요."
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		zap.L().Error("failed to write error response", zap.Error(err))
	}
}

func messageOf(httpErr *echo.HTTPError) string {
	if msg, ok := httpErr.Message.(string); ok {
		return msg
	}
	return http.StatusText(httpErr.Code)
}

func logFailure(c echo.Context, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.Uint("user_id", getUserIDFromContext(c)),
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
	}
	if payload, ok := c.Get(payloadKey).(map[string]interface{}); ok {
		fields = append(fields, zap.Any("payload", logger.Redact(payload)))
	}
	if id, ok := c.Get("request_id").(string); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	zap.L().Error("request failed", fields...)
}
