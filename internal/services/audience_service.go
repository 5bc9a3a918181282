package services

import (
	"github.com/anonto42/whoami-today/backend/internal/audience"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// Audience loads the inputs of audience.IsAudience from a Store. Viewers are
// memoized for the lifetime of the value, so create one per request or
// transaction.
type Audience struct {
	store   *repositories.Store
	viewers map[uint]audience.Viewer
}

func NewAudience(store *repositories.Store) *Audience {
	return &Audience{store: store, viewers: make(map[uint]audience.Viewer)}
}

// Viewer loads the block and report sets of userID.
func (a *Audience) Viewer(userID uint) (audience.Viewer, error) {
	if v, ok := a.viewers[userID]; ok {
		return v, nil
	}
	v := audience.NewViewer(userID)
	blocked, err := a.store.Reports.BlockedIDs(userID)
	if err != nil {
		return v, err
	}
	for _, id := range blocked {
		v.Blocked[id] = struct{}{}
	}
	reported, err := a.store.Reports.ReportedRefs(userID)
	if err != nil {
		return v, err
	}
	for _, ref := range reported {
		v.Reported[ref] = struct{}{}
	}
	a.viewers[userID] = v
	return v, nil
}

// Blocked reports whether either user has blocked the other.
func (a *Audience) Blocked(userID, otherID uint) (bool, error) {
	v, err := a.Viewer(userID)
	if err != nil {
		return false, err
	}
	return v.IsBlocked(otherID), nil
}

// Subject builds the gate input for post, expanding share groups.
func (a *Audience) Subject(post models.Content) (audience.Subject, error) {
	author, err := a.store.Users.GetUserByIDUnscoped(post.GetAuthorID())
	if err != nil && !repositories.IsNotFound(err) {
		return audience.Subject{}, err
	}
	deleted := author == nil || author.DeletedAt.Valid

	var shareSet map[uint]struct{}
	if access := post.Access(); access.HasShareSet() {
		members, err := a.store.FriendGroups.MemberIDs(post.GetAuthorID(), access.ShareGroups)
		if err != nil {
			return audience.Subject{}, err
		}
		shareSet = toSet(append(append([]uint{}, access.ShareFriends...), members...))
	}
	return audience.SubjectOf(post, deleted, shareSet), nil
}

func (a *Audience) connection(viewerID, authorID uint) (*models.Connection, error) {
	if viewerID == authorID {
		return nil, nil
	}
	conn, err := a.store.Connections.GetConnection(viewerID, authorID)
	if repositories.IsNotFound(err) {
		return nil, nil
	}
	return conn, err
}

// CanSeePost applies the audience predicate to a loaded post.
func (a *Audience) CanSeePost(viewerID uint, post models.Content) (bool, error) {
	if viewerID == post.GetAuthorID() {
		return true, nil
	}
	viewer, err := a.Viewer(viewerID)
	if err != nil {
		return false, err
	}
	subject, err := a.Subject(post)
	if err != nil {
		return false, err
	}
	conn, err := a.connection(viewerID, post.GetAuthorID())
	if err != nil {
		return false, err
	}
	return audience.IsAudience(viewer, subject, conn), nil
}

// CanSeeComment inherits the root post's audience. A private comment is
// further limited to its author, the parent's author and the root author.
func (a *Audience) CanSeeComment(viewerID uint, comment *models.Comment) (bool, error) {
	if viewerID == comment.AuthorID {
		return true, nil
	}
	viewer, err := a.Viewer(viewerID)
	if err != nil {
		return false, err
	}
	if viewer.IsBlocked(comment.AuthorID) || viewer.HasReported(comment.Ref()) {
		return false, nil
	}
	author, err := a.store.Users.GetUserByIDUnscoped(comment.AuthorID)
	if err != nil && !repositories.IsNotFound(err) {
		return false, err
	}
	if author == nil || author.DeletedAt.Valid {
		return false, nil
	}

	root, err := a.store.Posts.GetPost(comment.RootRef())
	if repositories.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ok, err := a.CanSeePost(viewerID, root)
	if err != nil || !ok {
		return false, err
	}
	if !comment.IsPrivate {
		return true, nil
	}
	if viewerID == root.GetAuthorID() {
		return true, nil
	}
	if comment.IsReply() {
		parent, err := a.store.Comments.GetCommentByID(comment.ParentID)
		if repositories.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return viewerID == parent.AuthorID, nil
	}
	return false, nil
}

// CanSee dispatches on ref.Kind. Missing content is simply not visible.
func (a *Audience) CanSee(viewerID uint, ref models.Ref) (bool, error) {
	switch {
	case ref.Kind == models.KindComment:
		comment, err := a.store.Comments.GetCommentByID(ref.ID)
		if repositories.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return a.CanSeeComment(viewerID, comment)
	case ref.Kind.IsPost():
		post, err := a.store.Posts.GetPost(ref)
		if repositories.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return a.CanSeePost(viewerID, post)
	}
	return true, nil
}

// FilterPosts keeps the posts viewerID may see, loading connections in one query.
func (a *Audience) FilterPosts(viewerID uint, posts []models.Content) ([]models.Content, error) {
	if len(posts) == 0 {
		return posts, nil
	}
	viewer, err := a.Viewer(viewerID)
	if err != nil {
		return nil, err
	}
	authors := make([]uint, 0, len(posts))
	for _, p := range posts {
		authors = append(authors, p.GetAuthorID())
	}
	conns, err := a.store.Connections.ConnectionsWith(viewerID, uniq(authors))
	if err != nil {
		return nil, err
	}
	out := make([]models.Content, 0, len(posts))
	for _, p := range posts {
		subject, err := a.Subject(p)
		if err != nil {
			return nil, err
		}
		if audience.IsAudience(viewer, subject, conns[p.GetAuthorID()]) {
			out = append(out, p)
		}
	}
	return out, nil
}
