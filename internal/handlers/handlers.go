package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/middleware"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

const payloadKey = "payload"

// kindPaths maps URL segments to post kinds.
var kindPaths = map[string]models.Kind{
	"responses": models.KindResponse,
	"notes":     models.KindNote,
	"moments":   models.KindMoment,
	"check-ins": models.KindCheckIn,
}

func getUserIDFromContext(c echo.Context) uint {
	return middleware.UserID(c)
}

// bindAndValidate decodes the body into req and runs its validate tags. The
// decoded body is kept on the context so error logs can show it redacted.
func bindAndValidate(c echo.Context, req interface{}) error {
	if body := c.Request().Body; body != nil && strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		raw, err := io.ReadAll(body)
		if err != nil {
			return apperrors.Wrap(apperrors.UnknownField, err)
		}
		c.Request().Body = io.NopCloser(bytes.NewReader(raw))
		var payload map[string]interface{}
		if json.Unmarshal(raw, &payload) == nil {
			c.Set(payloadKey, payload)
		}
	}
	if err := c.Bind(req); err != nil {
		return apperrors.New(apperrors.UnknownField, "invalid request payload")
	}
	return c.Validate(req)
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.New(apperrors.NotFound, "invalid %s", name)
	}
	return uint(id), nil
}

func queryID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.QueryParam(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.New(apperrors.UnknownField, "%s", name)
	}
	return uint(id), nil
}

// pageFromQuery reads page and size. The repository clamps both.
func pageFromQuery(c echo.Context) repositories.Page {
	number, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	return repositories.Page{Number: number, Size: size}
}

func pageMeta(p repositories.Page, count int) echo.Map {
	if p.Number < 1 {
		p.Number = 1
	}
	return echo.Map{
		"currentPage":  p.Number,
		"itemsPerPage": p.Size,
		"items":        count,
	}
}

// parentFromQuery reads ?parent_kind=&parent_id= for comments, likes and reactions.
func parentFromQuery(c echo.Context) (models.Ref, error) {
	kind := models.Kind(c.QueryParam("parent_kind"))
	if !kind.IsParent() {
		return models.Ref{}, apperrors.New(apperrors.UnknownField, "parent_kind")
	}
	id, err := queryID(c, "parent_id")
	if err != nil {
		return models.Ref{}, err
	}
	return models.Ref{Kind: kind, ID: id}, nil
}

func idsFromBody(c echo.Context) ([]uint, error) {
	var req models.MarkReadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil, err
	}
	return req.IDs, nil
}
