package services

import "github.com/anonto42/whoami-today/backend/internal/models"

// Event is a typed side effect returned by a mutator and handed to the
// Notifier inside the same transaction.
type Event interface {
	family() string
}

type LikeCreated struct{ Like *models.Like }
type LikeRemoved struct{ Like *models.Like }
type ReactionCreated struct{ Reaction *models.Reaction }
type ReactionRemoved struct{ Reaction *models.Reaction }

// CommentCreated is a comment directly on a post.
type CommentCreated struct{ Comment *models.Comment }

// ReplyCreated is a comment on another comment.
type ReplyCreated struct{ Comment *models.Comment }

type ResponseRequestCreated struct{ Request *models.ResponseRequest }

// ResponseCreated carries the response and the requests it fulfilled.
type ResponseCreated struct {
	Response  *models.Response
	Fulfilled []models.ResponseRequest
}

type NoteCreated struct{ Note *models.Note }

type FriendRequestCreated struct{ Request *models.FriendRequest }

type FriendRequestAccepted struct {
	Request    *models.FriendRequest
	Connection *models.Connection
}

// FriendRequestClosed hides the request's notification after refusal or cancel.
type FriendRequestClosed struct{ Request *models.FriendRequest }

// DailyPrompt is one recipient's copy of the day's question.
type DailyPrompt struct {
	Question    *models.Question
	AdminID     uint
	RecipientID uint
	Date        string
}

func (LikeCreated) family() string            { return "like" }
func (LikeRemoved) family() string            { return "like" }
func (ReactionCreated) family() string        { return "reaction" }
func (ReactionRemoved) family() string        { return "reaction" }
func (CommentCreated) family() string         { return "comment" }
func (ReplyCreated) family() string           { return "reply" }
func (ResponseRequestCreated) family() string { return "response_request" }
func (ResponseCreated) family() string        { return "response" }
func (NoteCreated) family() string            { return "note" }
func (FriendRequestCreated) family() string   { return "friend_request" }
func (FriendRequestAccepted) family() string  { return "friend_accepted" }
func (FriendRequestClosed) family() string    { return "friend_request" }
func (DailyPrompt) family() string            { return "daily_prompt" }
