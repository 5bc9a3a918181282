package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// QuestionHandler serves daily questions and response requests
type QuestionHandler struct {
	questions *services.QuestionService
	users     *services.UserService
}

// NewQuestionHandler creates a new QuestionHandler
func NewQuestionHandler(questions *services.QuestionService, users *services.UserService) *QuestionHandler {
	return &QuestionHandler{questions: questions, users: users}
}

// RegisterQuestionRoutes registers question routes
func (h *QuestionHandler) RegisterQuestionRoutes(g *echo.Group) {
	g.GET("/questions/daily", h.Daily)
	g.GET("/questions/:id", h.GetQuestion)
	g.GET("/questions/:id/responses", h.Responses)
	g.POST("/response-requests", h.RequestResponse)
	g.GET("/response-requests/received", h.ReceivedRequests)
}

// Daily lists the questions selected for ?date=YYYY-MM-DD, defaulting to
// today in the caller's timezone.
func (h *QuestionHandler) Daily(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		id := getUserIDFromContext(c)
		user, err := h.users.Get(c.Request().Context(), id, id)
		if err != nil {
			return err
		}
		loc, err := time.LoadLocation(user.Timezone)
		if err != nil {
			loc = time.UTC
		}
		date = time.Now().In(loc).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return apperrors.New(apperrors.UnknownField, "date")
	}
	questions, err := h.questions.Daily(c.Request().Context(), date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "questions": questions})
}

func (h *QuestionHandler) GetQuestion(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	q, err := h.questions.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, q)
}

// Responses lists the answers to a question the caller may see
func (h *QuestionHandler) Responses(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page := pageFromQuery(c)
	responses, err := h.questions.Responses(c.Request().Context(), getUserIDFromContext(c), id, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": responses, "meta": pageMeta(page, len(responses))})
}

// RequestResponse asks a friend to answer a question
func (h *QuestionHandler) RequestResponse(c echo.Context) error {
	var req models.CreateResponseRequestRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rr, err := h.questions.RequestResponse(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rr)
}

func (h *QuestionHandler) ReceivedRequests(c echo.Context) error {
	page := pageFromQuery(c)
	list, err := h.questions.ReceivedRequests(c.Request().Context(), getUserIDFromContext(c), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": list, "meta": pageMeta(page, len(list))})
}
