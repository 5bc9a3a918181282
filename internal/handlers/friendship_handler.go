package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// FriendshipHandler handles connections, friend requests, friend sets and groups
type FriendshipHandler struct {
	friends     *services.FriendRequestService
	connections *services.ConnectionService
	users       *services.UserService
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(friends *services.FriendRequestService, connections *services.ConnectionService, users *services.UserService) *FriendshipHandler {
	return &FriendshipHandler{friends: friends, connections: connections, users: users}
}

// RegisterFriendshipRoutes registers friendship-related routes
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.GET("/friends", h.GetFriends)
	g.GET("/friends/recommended", h.Recommend)
	g.DELETE("/friends/:id", h.DeleteFriend) // Unfriend
	g.PATCH("/friends/:id/choice", h.UpdateChoice)
	g.POST("/friends/:id/favorite", h.AddFavorite)
	g.DELETE("/friends/:id/favorite", h.RemoveFavorite)
	g.POST("/friends/:id/hidden", h.AddHidden)
	g.DELETE("/friends/:id/hidden", h.RemoveHidden)

	g.POST("/friend-requests", h.SendFriendRequest)
	g.GET("/friend-requests/received", h.ListReceived)
	g.GET("/friend-requests/sent", h.ListSent)
	g.POST("/friend-requests/:id/accept", h.Accept)
	g.POST("/friend-requests/:id/refuse", h.Refuse)
	g.DELETE("/friend-requests/:id", h.Destroy)

	g.GET("/friend-groups", h.ListGroups)
	g.POST("/friend-groups", h.CreateGroup)
	g.POST("/friend-groups/:id/members", h.AddGroupMembers)
	g.DELETE("/friend-groups/:id/members/:friendId", h.RemoveGroupMember)
}

// GetFriends lists the caller's connections
func (h *FriendshipHandler) GetFriends(c echo.Context) error {
	friends, err := h.connections.ListFriends(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, friends)
}

func (h *FriendshipHandler) Recommend(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	users, err := h.friends.Recommend(c.Request().Context(), getUserIDFromContext(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// DeleteFriend removes the connection and everything hanging off it
func (h *FriendshipHandler) DeleteFriend(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.connections.RemoveConnection(c.Request().Context(), getUserIDFromContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateChoice changes the caller's side of the connection
func (h *FriendshipHandler) UpdateChoice(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req models.UpdateConnectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	conn, err := h.connections.UpdateChoice(c.Request().Context(), getUserIDFromContext(c), id, req.Choice, req.UpdatePastPosts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conn)
}

func (h *FriendshipHandler) friendSet(c echo.Context, op func(userID, friendID uint) error) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := op(getUserIDFromContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FriendshipHandler) AddFavorite(c echo.Context) error {
	return h.friendSet(c, func(u, f uint) error { return h.users.AddFavorite(c.Request().Context(), u, f) })
}

func (h *FriendshipHandler) RemoveFavorite(c echo.Context) error {
	return h.friendSet(c, func(u, f uint) error { return h.users.RemoveFavorite(c.Request().Context(), u, f) })
}

func (h *FriendshipHandler) AddHidden(c echo.Context) error {
	return h.friendSet(c, func(u, f uint) error { return h.users.AddHidden(c.Request().Context(), u, f) })
}

func (h *FriendshipHandler) RemoveHidden(c echo.Context) error {
	return h.friendSet(c, func(u, f uint) error { return h.users.RemoveHidden(c.Request().Context(), u, f) })
}

// SendFriendRequest handles sending a friend request
func (h *FriendshipHandler) SendFriendRequest(c echo.Context) error {
	var req models.CreateFriendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	fr, err := h.friends.Create(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, fr)
}

func (h *FriendshipHandler) ListReceived(c echo.Context) error {
	page := pageFromQuery(c)
	list, err := h.friends.ListReceived(c.Request().Context(), getUserIDFromContext(c), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": list, "meta": pageMeta(page, len(list))})
}

func (h *FriendshipHandler) ListSent(c echo.Context) error {
	page := pageFromQuery(c)
	list, err := h.friends.ListSent(c.Request().Context(), getUserIDFromContext(c), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": list, "meta": pageMeta(page, len(list))})
}

// Accept connects the two users. The body may pick the requestee's choice.
func (h *FriendshipHandler) Accept(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req models.RespondFriendRequest
	if c.Request().ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}
	fr, err := h.friends.Accept(c.Request().Context(), getUserIDFromContext(c), id, req.Choice)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fr)
}

func (h *FriendshipHandler) Refuse(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.friends.Refuse(c.Request().Context(), getUserIDFromContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Destroy withdraws a request the caller sent
func (h *FriendshipHandler) Destroy(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.friends.Destroy(c.Request().Context(), getUserIDFromContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FriendshipHandler) ListGroups(c echo.Context) error {
	groups, err := h.users.ListGroups(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *FriendshipHandler) CreateGroup(c echo.Context) error {
	var req models.CreateFriendGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	group, err := h.users.CreateGroup(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, group)
}

func (h *FriendshipHandler) AddGroupMembers(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		FriendIDs []uint `json:"friend_ids" validate:"required,min=1"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.users.AddGroupMembers(c.Request().Context(), getUserIDFromContext(c), id, req.FriendIDs); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FriendshipHandler) RemoveGroupMember(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	friendID, err := parseID(c, "friendId")
	if err != nil {
		return apperrors.E(apperrors.NotFriend)
	}
	if err := h.users.RemoveGroupMember(c.Request().Context(), getUserIDFromContext(c), id, friendID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
