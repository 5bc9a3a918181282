package services

import (
	"context"
	"strings"
	"time"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// ContentService owns responses, notes, moments and check-ins.
type ContentService struct {
	store    *repositories.Store
	notifier *Notifier
}

func NewContentService(store *repositories.Store, notifier *Notifier) *ContentService {
	return &ContentService{store: store, notifier: notifier}
}

// PostInput is the kind-independent create payload. Content is the body of
// responses and notes; Description is the body of moments and check-ins.
type PostInput struct {
	Kind         models.Kind
	QuestionID   uint
	Content      string
	Mood         string
	Availability string
	PhotoURL     string
	Description  string
	Access       models.Access
}

type mutablePost interface {
	models.Content
	ApplyAccess(models.Access)
	MarkEdited()
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func buildPost(authorID uint, in PostInput) (mutablePost, error) {
	var post mutablePost
	switch in.Kind {
	case models.KindResponse:
		if blank(in.Content) {
			return nil, apperrors.E(apperrors.EmptyContent)
		}
		r := &models.Response{QuestionID: in.QuestionID, Content: in.Content}
		r.AuthorID = authorID
		post = r
	case models.KindNote:
		if blank(in.Content) {
			return nil, apperrors.E(apperrors.EmptyContent)
		}
		n := &models.Note{Content: in.Content}
		n.AuthorID = authorID
		post = n
	case models.KindMoment:
		if blank(in.Mood) && blank(in.PhotoURL) && blank(in.Description) {
			return nil, apperrors.E(apperrors.EmptyContent)
		}
		m := &models.Moment{Mood: in.Mood, PhotoURL: in.PhotoURL, Description: in.Description}
		m.AuthorID = authorID
		post = m
	case models.KindCheckIn:
		if blank(in.Mood) && blank(in.Availability) && blank(in.Description) {
			return nil, apperrors.E(apperrors.EmptyContent)
		}
		c := &models.CheckIn{Mood: in.Mood, Availability: in.Availability, Description: in.Description}
		c.AuthorID = authorID
		post = c
	default:
		return nil, apperrors.New(apperrors.UnknownField, "kind")
	}
	if in.Access.Visibility != "" && !in.Access.Visibility.Valid() {
		return nil, apperrors.New(apperrors.UnknownField, "visibility")
	}
	post.ApplyAccess(in.Access)
	return post, nil
}

// checkShareGroups rejects share groups the author does not own.
func checkShareGroups(tx *repositories.Store, authorID uint, access models.Access) error {
	for _, id := range access.ShareGroups {
		if _, err := tx.FriendGroups.GetGroup(authorID, id); err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
	}
	return nil
}

// Create stores a post, marks it read by its author and notifies requesters
// and subscribers in the same transaction.
func (s *ContentService) Create(ctx context.Context, authorID uint, in PostInput) (models.Content, error) {
	post, err := buildPost(authorID, in)
	if err != nil {
		return nil, err
	}
	out := &Outbox{}
	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if in.Kind == models.KindResponse {
			q, err := tx.Questions.GetQuestionUnscoped(in.QuestionID)
			if err != nil {
				return notFoundAs(err, apperrors.NoSuchQuestion)
			}
			if q.DeletedAt.Valid {
				return apperrors.E(apperrors.DeletedQuestion)
			}
		}
		if err := checkShareGroups(tx, authorID, post.Access()); err != nil {
			return err
		}
		if err := tx.Posts.CreatePost(post); err != nil {
			return err
		}
		if err := tx.Reads.MarkRead(post.Ref(), authorID); err != nil {
			return err
		}

		var events []Event
		switch p := post.(type) {
		case *models.Response:
			pending, err := tx.ResponseRequests.PendingFor(authorID, p.QuestionID)
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				if err := tx.ResponseRequests.FulfillFor(authorID, p.QuestionID); err != nil {
					return err
				}
			}
			events = append(events, ResponseCreated{Response: p, Fulfilled: pending})
		case *models.Note:
			events = append(events, NoteCreated{Note: p})
		}
		return s.notifier.Handle(ctx, tx, out, events...)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Flush(out)
	return post, nil
}

// Update edits a post in place. Body changes set IsEdited; edits never notify.
func (s *ContentService) Update(ctx context.Context, userID uint, ref models.Ref, patch models.UpdateContentRequest) (models.Content, error) {
	var post models.Content
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		loaded, err := tx.Posts.GetPost(ref)
		if err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
		if loaded.GetAuthorID() != userID {
			return apperrors.E(apperrors.PermissionDenied)
		}
		p, ok := loaded.(mutablePost)
		if !ok {
			return apperrors.New(apperrors.UnknownField, "kind")
		}
		if applyPatch(p, patch) {
			if blank(p.Body()) && (ref.Kind == models.KindResponse || ref.Kind == models.KindNote) {
				return apperrors.E(apperrors.EmptyContent)
			}
			p.MarkEdited()
		}
		if patch.Access != nil {
			access := patch.Access.ToAccess()
			if access.Visibility != "" && !access.Visibility.Valid() {
				return apperrors.New(apperrors.UnknownField, "visibility")
			}
			if err := checkShareGroups(tx, userID, access); err != nil {
				return err
			}
			p.ApplyAccess(access)
		}
		post = p
		return tx.Posts.SavePost(p)
	})
	return post, err
}

// applyPatch copies non-nil fields and reports whether body text changed.
func applyPatch(post models.Content, patch models.UpdateContentRequest) bool {
	set := func(dst *string, src *string) bool {
		if src == nil || *src == *dst {
			return false
		}
		*dst = *src
		return true
	}
	switch p := post.(type) {
	case *models.Response:
		return set(&p.Content, patch.Content)
	case *models.Note:
		return set(&p.Content, patch.Content)
	case *models.Moment:
		set(&p.Mood, patch.Mood)
		set(&p.PhotoURL, patch.PhotoURL)
		return set(&p.Description, patch.Content)
	case *models.CheckIn:
		set(&p.Mood, patch.Mood)
		set(&p.Availability, patch.Availability)
		return set(&p.Description, patch.Content)
	}
	return false
}

// SoftDelete removes a post with its comment tree, likes and reactions.
func (s *ContentService) SoftDelete(ctx context.Context, userID uint, ref models.Ref) error {
	return s.store.Transaction(ctx, func(tx *repositories.Store) error {
		post, err := tx.Posts.GetPost(ref)
		if err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
		if post.GetAuthorID() != userID {
			return apperrors.E(apperrors.PermissionDenied)
		}
		if err := tx.Posts.SoftDeletePost(ref); err != nil {
			return err
		}
		commentIDs, err := tx.Comments.IDsByRoot(ref)
		if err != nil {
			return err
		}
		return cascadeParents(tx, ref, commentIDs)
	})
}

// cascadeParents soft-deletes commentIDs and every like and reaction hanging
// off them or off extra.
func cascadeParents(tx *repositories.Store, extra models.Ref, commentIDs []uint) error {
	if err := tx.Comments.SoftDeleteComments(commentIDs); err != nil {
		return err
	}
	parents := make([]models.Ref, 0, len(commentIDs)+1)
	parents = append(parents, extra)
	for _, id := range commentIDs {
		parents = append(parents, models.Ref{Kind: models.KindComment, ID: id})
	}
	if err := tx.Likes.SoftDeleteByParents(parents); err != nil {
		return err
	}
	return tx.Reactions.SoftDeleteByParents(parents)
}

// Get loads a post the viewer may see.
func (s *ContentService) Get(ctx context.Context, viewerID uint, ref models.Ref) (models.Content, error) {
	st := s.store.WithContext(ctx)
	post, err := st.Posts.GetPost(ref)
	if err != nil {
		return nil, notFoundAs(err, apperrors.NotFound)
	}
	ok, err := NewAudience(st).CanSeePost(viewerID, post)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.E(apperrors.PermissionDenied)
	}
	return post, nil
}

// MarkRead records that viewer has read ref. Repeats are no-ops.
func (s *ContentService) MarkRead(ctx context.Context, viewerID uint, ref models.Ref) error {
	if _, err := s.Get(ctx, viewerID, ref); err != nil {
		return err
	}
	return s.store.WithContext(ctx).Reads.MarkRead(ref, viewerID)
}

// MarkReadMany marks every visible id of kind read and skips the rest.
func (s *ContentService) MarkReadMany(ctx context.Context, viewerID uint, kind models.Kind, ids []uint) (int, error) {
	st := s.store.WithContext(ctx)
	aud := NewAudience(st)
	marked := 0
	for _, id := range uniq(ids) {
		ref := models.Ref{Kind: kind, ID: id}
		ok, err := aud.CanSee(viewerID, ref)
		if err != nil {
			return marked, err
		}
		if !ok || !kind.IsPost() {
			continue
		}
		if err := st.Reads.MarkRead(ref, viewerID); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// ReadStates reports, for each id of kind, whether viewer has read it.
func (s *ContentService) ReadStates(ctx context.Context, viewerID uint, kind models.Kind, ids []uint) (map[uint]bool, error) {
	return s.store.WithContext(ctx).Reads.ReadSet(kind, ids, viewerID)
}

// ListReaders returns who has read ref, excluding the author. Author only.
func (s *ContentService) ListReaders(ctx context.Context, userID uint, ref models.Ref) ([]models.UserCompact, error) {
	st := s.store.WithContext(ctx)
	post, err := st.Posts.GetPost(ref)
	if err != nil {
		return nil, notFoundAs(err, apperrors.NotFound)
	}
	if post.GetAuthorID() != userID {
		return nil, apperrors.E(apperrors.PermissionDenied)
	}
	ids, err := st.Reads.ReaderIDs(ref)
	if err != nil {
		return nil, err
	}
	readers := ids[:0:0]
	for _, id := range ids {
		if id != userID {
			readers = append(readers, id)
		}
	}
	users, err := st.Users.GetUsersByIDs(readers)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserCompact, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToCompact())
	}
	return out, nil
}

// ListByAuthor pages an author's posts of kind as seen by viewer.
func (s *ContentService) ListByAuthor(ctx context.Context, viewerID, authorID uint, kind models.Kind, page repositories.Page) ([]models.Content, error) {
	if !kind.IsPost() {
		return nil, apperrors.New(apperrors.UnknownField, "kind")
	}
	st := s.store.WithContext(ctx)
	posts, err := st.Posts.ListByAuthor(kind, authorID, page)
	if err != nil {
		return nil, err
	}
	return NewAudience(st).FilterPosts(viewerID, posts)
}

// Feed lists posts of kind by the viewer and their connections that the
// viewer may see, newest first, before the optional cursor. Hidden friends
// are left out.
func (s *ContentService) Feed(ctx context.Context, viewerID uint, kind models.Kind, before *time.Time, limit int) ([]models.Content, error) {
	if !kind.IsPost() {
		return nil, apperrors.New(apperrors.UnknownField, "kind")
	}
	if limit < 1 || limit > 100 {
		limit = 15
	}
	st := s.store.WithContext(ctx)
	conns, err := st.Connections.ListConnections(viewerID)
	if err != nil {
		return nil, err
	}
	hidden, err := st.Users.ListHiddenIDs(viewerID)
	if err != nil {
		return nil, err
	}
	skip := toSet(hidden)
	authors := []uint{viewerID}
	for i := range conns {
		other := conns[i].Other(viewerID)
		if _, ok := skip[other]; !ok {
			authors = append(authors, other)
		}
	}
	posts, err := st.Posts.ListByAuthors(kind, authors, before, limit)
	if err != nil {
		return nil, err
	}
	return NewAudience(st).FilterPosts(viewerID, posts)
}

const recentBatch = 20

// MostRecentUpdate is the newest CreatedAt among authorID's posts that viewer
// may see, or nil when there is none.
func (s *ContentService) MostRecentUpdate(ctx context.Context, viewerID, authorID uint) (*time.Time, error) {
	st := s.store.WithContext(ctx)
	aud := NewAudience(st)
	var latest *time.Time
	for _, kind := range []models.Kind{models.KindResponse, models.KindNote, models.KindMoment, models.KindCheckIn} {
		var cursor *time.Time
		for {
			batch, err := st.Posts.ListByAuthors(kind, []uint{authorID}, cursor, recentBatch)
			if err != nil {
				return nil, err
			}
			visible, err := aud.FilterPosts(viewerID, batch)
			if err != nil {
				return nil, err
			}
			if len(visible) > 0 {
				at := visible[0].GetCreatedAt()
				if latest == nil || at.After(*latest) {
					latest = &at
				}
				break
			}
			if len(batch) < recentBatch {
				break
			}
			last := batch[len(batch)-1].GetCreatedAt()
			if latest != nil && !last.After(*latest) {
				break
			}
			cursor = &last
		}
	}
	return latest, nil
}
