package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/chat"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// ChatHandler lists rooms, pages history and upgrades room sockets
type ChatHandler struct {
	chat  *services.ChatService
	users *services.UserService
	hub   *chat.Hub
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatService *services.ChatService, users *services.UserService, hub *chat.Hub) *ChatHandler {
	return &ChatHandler{chat: chatService, users: users, hub: hub}
}

// RegisterChatRoutes registers the REST chat routes
func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.GET("/chat/rooms", h.Rooms)
	g.GET("/chat/rooms/:id/messages", h.History)
}

// RegisterSocketRoutes registers /ws/chat/:roomId/ on an authenticated group
func (h *ChatHandler) RegisterSocketRoutes(g *echo.Group) {
	g.GET("/chat/:roomId/", h.Socket)
}

func (h *ChatHandler) Rooms(c echo.Context) error {
	rooms, err := h.chat.Rooms(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rooms)
}

// History takes ?skip=&limit= and returns messages newest first
func (h *ChatHandler) History(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	messages, err := h.chat.History(c.Request().Context(), getUserIDFromContext(c), id, skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messages)
}

// Socket joins the room. The sender identity comes from the token, never the frame.
func (h *ChatHandler) Socket(c echo.Context) error {
	roomID, err := parseID(c, "roomId")
	if err != nil {
		return err
	}
	id := getUserIDFromContext(c)
	user, err := h.users.Get(c.Request().Context(), id, id)
	if err != nil {
		return err
	}
	return h.hub.Serve(c.Response(), c.Request(), user, roomID)
}
