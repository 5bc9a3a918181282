package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// PostHandler serves responses, notes, moments and check-ins under one set of routes per kind
type PostHandler struct {
	content *services.ContentService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(content *services.ContentService) *PostHandler {
	return &PostHandler{content: content}
}

// RegisterPostRoutes registers post routes for every kind in kindPaths
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	for path, kind := range kindPaths {
		g.POST("/"+path, h.CreatePost(kind))
		g.POST("/"+path+"/read", h.MarkReadMany(kind))
		g.GET("/"+path+"/:id", h.GetPost(kind))
		g.PATCH("/"+path+"/:id", h.UpdatePost(kind))
		g.DELETE("/"+path+"/:id", h.DeletePost(kind))
		g.POST("/"+path+"/:id/read", h.MarkRead(kind))
		g.GET("/"+path+"/:id/readers", h.ListReaders(kind))
		g.GET("/users/:id/"+path, h.ListByAuthor(kind))
	}
}

// postInput decodes the create body of kind
func postInput(c echo.Context, kind models.Kind) (services.PostInput, error) {
	in := services.PostInput{Kind: kind}
	switch kind {
	case models.KindResponse:
		var req models.CreateResponseRequest
		if err := bindAndValidate(c, &req); err != nil {
			return in, err
		}
		in.QuestionID, in.Content, in.Access = req.QuestionID, req.Content, req.ToAccess()
	case models.KindNote:
		var req models.CreateNoteRequest
		if err := bindAndValidate(c, &req); err != nil {
			return in, err
		}
		in.Content, in.Access = req.Content, req.ToAccess()
	case models.KindMoment:
		var req models.CreateMomentRequest
		if err := bindAndValidate(c, &req); err != nil {
			return in, err
		}
		in.Mood, in.PhotoURL, in.Description, in.Access = req.Mood, req.PhotoURL, req.Description, req.ToAccess()
	case models.KindCheckIn:
		var req models.CreateCheckInRequest
		if err := bindAndValidate(c, &req); err != nil {
			return in, err
		}
		in.Mood, in.Availability, in.Description, in.Access = req.Mood, req.Availability, req.Description, req.ToAccess()
	default:
		return in, apperrors.New(apperrors.UnknownField, "kind")
	}
	return in, nil
}

func (h *PostHandler) CreatePost(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, err := postInput(c, kind)
		if err != nil {
			return err
		}
		post, err := h.content.Create(c.Request().Context(), getUserIDFromContext(c), in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, post)
	}
}

func (h *PostHandler) GetPost(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		post, err := h.content.Get(c.Request().Context(), getUserIDFromContext(c), models.Ref{Kind: kind, ID: id})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, post)
	}
}

func (h *PostHandler) UpdatePost(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		var req models.UpdateContentRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		post, err := h.content.Update(c.Request().Context(), getUserIDFromContext(c), models.Ref{Kind: kind, ID: id}, req)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, post)
	}
}

func (h *PostHandler) DeletePost(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		if err := h.content.SoftDelete(c.Request().Context(), getUserIDFromContext(c), models.Ref{Kind: kind, ID: id}); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (h *PostHandler) MarkRead(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		if err := h.content.MarkRead(c.Request().Context(), getUserIDFromContext(c), models.Ref{Kind: kind, ID: id}); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// MarkReadMany takes {"ids": [...]} and skips posts the caller cannot see
func (h *PostHandler) MarkReadMany(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		ids, err := idsFromBody(c)
		if err != nil {
			return err
		}
		n, err := h.content.MarkReadMany(c.Request().Context(), getUserIDFromContext(c), kind, ids)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"marked": n})
	}
}

func (h *PostHandler) ListReaders(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		readers, err := h.content.ListReaders(c.Request().Context(), getUserIDFromContext(c), models.Ref{Kind: kind, ID: id})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, readers)
	}
}

func (h *PostHandler) ListByAuthor(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		authorID, err := parseID(c, "id")
		if err != nil {
			return err
		}
		page := pageFromQuery(c)
		posts, err := h.content.ListByAuthor(c.Request().Context(), getUserIDFromContext(c), authorID, kind, page)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": posts, "meta": pageMeta(page, len(posts))})
	}
}
