// Package audience decides who may see a piece of content. It works on plain
// data shapes only; loading viewers, subjects and connections is the caller's job.
package audience

import (
	"time"

	"github.com/anonto42/whoami-today/backend/internal/models"
)

// Viewer is everything the predicate needs to know about the reader.
type Viewer struct {
	ID uint
	// Blocked holds users the viewer blocked and users who blocked the viewer.
	Blocked map[uint]struct{}
	// Reported holds content the viewer reported, keyed by kind and id.
	Reported map[models.Ref]struct{}
}

// NewViewer returns a viewer with no blocks or reports.
func NewViewer(id uint) Viewer {
	return Viewer{ID: id, Blocked: map[uint]struct{}{}, Reported: map[models.Ref]struct{}{}}
}

func (v Viewer) IsBlocked(userID uint) bool {
	_, ok := v.Blocked[userID]
	return ok
}

func (v Viewer) HasReported(ref models.Ref) bool {
	_, ok := v.Reported[ref]
	return ok
}

// Subject is the content being gated.
type Subject struct {
	Ref           models.Ref
	AuthorID      uint
	AuthorDeleted bool
	CreatedAt     time.Time
	Access        models.Access
	// ShareSet is shareFriends plus the members of shareGroups. Nil when the
	// post carries no explicit share set.
	ShareSet map[uint]struct{}
}

// SubjectOf builds a Subject from a post. shareSet is the expanded share set
// or nil.
func SubjectOf(c models.Content, authorDeleted bool, shareSet map[uint]struct{}) Subject {
	return Subject{
		Ref:           c.Ref(),
		AuthorID:      c.GetAuthorID(),
		AuthorDeleted: authorDeleted,
		CreatedAt:     c.GetCreatedAt(),
		Access:        c.Access(),
		ShareSet:      shareSet,
	}
}

// IsAudience reports whether viewer may see subject. conn is the live
// connection between viewer and author, or nil.
func IsAudience(viewer Viewer, subject Subject, conn *models.Connection) bool {
	if viewer.ID == subject.AuthorID {
		return true
	}
	if viewer.IsBlocked(subject.AuthorID) {
		return false
	}
	if viewer.HasReported(subject.Ref) {
		return false
	}
	if subject.AuthorDeleted {
		return false
	}
	if conn != nil && (conn.DeletedAt.Valid || !conn.Involves(viewer.ID) || !conn.Involves(subject.AuthorID)) {
		conn = nil
	}

	access := subject.Access
	switch access.Visibility {
	case models.VisibilityPrivate:
		return false
	case models.VisibilityEveryone:
		return true
	}

	if access.ShareEveryone {
		return conn != nil
	}
	if subject.ShareSet != nil {
		if _, ok := subject.ShareSet[viewer.ID]; !ok {
			return false
		}
		return conn != nil
	}

	if conn == nil {
		return false
	}
	switch access.Visibility {
	case models.VisibilityCloseFriends:
		return IsCloseFriend(conn, viewer.ID, subject.AuthorID) && retroactive(conn.SideOf(subject.AuthorID), subject.CreatedAt)
	default:
		return true
	}
}

// IsCloseFriend reports whether author has marked viewer a close friend:
// the author's side of a live connection is friend.
func IsCloseFriend(conn *models.Connection, viewerID, authorID uint) bool {
	if conn == nil || conn.DeletedAt.Valid || !conn.Involves(viewerID) || !conn.Involves(authorID) || viewerID == authorID {
		return false
	}
	return conn.SideOf(authorID).Choice == models.ChoiceFriend
}

func retroactive(side models.Side, createdAt time.Time) bool {
	if side.UpdatePastPosts || side.UpgradeTime == nil {
		return true
	}
	return createdAt.After(*side.UpgradeTime)
}
