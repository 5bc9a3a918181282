package services

import (
	"context"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// InteractionService owns comments, likes and reactions.
type InteractionService struct {
	store    *repositories.Store
	notifier *Notifier
}

func NewInteractionService(store *repositories.Store, notifier *Notifier) *InteractionService {
	return &InteractionService{store: store, notifier: notifier}
}

// target is a parent row resolved for an interaction.
type target struct {
	authorID uint
	root     models.Ref
}

// resolveTarget loads parent and checks that viewer may interact with it:
// the parent exists, neither side blocks the other, and viewer is in its audience.
func resolveTarget(tx *repositories.Store, viewerID uint, parent models.Ref) (*target, error) {
	if !parent.Kind.IsParent() {
		return nil, apperrors.New(apperrors.UnknownField, "parent_kind")
	}
	aud := NewAudience(tx)
	var t target
	var visible bool
	if parent.Kind == models.KindComment {
		comment, err := tx.Comments.GetCommentByID(parent.ID)
		if err != nil {
			return nil, notFoundAs(err, apperrors.NoSuchTarget)
		}
		t = target{authorID: comment.AuthorID, root: comment.RootRef()}
		if err := checkBlocks(tx, viewerID, t.authorID); viewerID != t.authorID && err != nil {
			return nil, err
		}
		if visible, err = aud.CanSeeComment(viewerID, comment); err != nil {
			return nil, err
		}
	} else {
		post, err := tx.Posts.GetPost(parent)
		if err != nil {
			return nil, notFoundAs(err, apperrors.NoSuchTarget)
		}
		t = target{authorID: post.GetAuthorID(), root: parent}
		if err := checkBlocks(tx, viewerID, t.authorID); viewerID != t.authorID && err != nil {
			return nil, err
		}
		if visible, err = aud.CanSeePost(viewerID, post); err != nil {
			return nil, err
		}
	}
	if !visible {
		return nil, apperrors.E(apperrors.PermissionDenied)
	}
	return &t, nil
}

// CreateComment adds a comment or reply and fans out notifications.
func (s *InteractionService) CreateComment(ctx context.Context, userID uint, req models.CreateCommentRequest) (*models.Comment, error) {
	if blank(req.Content) {
		return nil, apperrors.E(apperrors.EmptyContent)
	}
	parent := models.Ref{Kind: req.ParentKind, ID: req.ParentID}
	comment := &models.Comment{
		AuthorID:   userID,
		ParentKind: parent.Kind,
		ParentID:   parent.ID,
		Content:    req.Content,
		IsPrivate:  req.IsPrivate,
	}
	out := &Outbox{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		t, err := resolveTarget(tx, userID, parent)
		if err != nil {
			return err
		}
		comment.RootKind, comment.RootID = t.root.Kind, t.root.ID
		if err := tx.Comments.CreateComment(comment); err != nil {
			return err
		}
		var ev Event = CommentCreated{Comment: comment}
		if comment.IsReply() {
			ev = ReplyCreated{Comment: comment}
		}
		return s.notifier.Handle(ctx, tx, out, ev)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Flush(out)
	return comment, nil
}

// UpdateComment edits the body. Only the author may edit.
func (s *InteractionService) UpdateComment(ctx context.Context, userID, commentID uint, content string) (*models.Comment, error) {
	if blank(content) {
		return nil, apperrors.E(apperrors.EmptyContent)
	}
	st := s.store.WithContext(ctx)
	comment, err := st.Comments.GetCommentByID(commentID)
	if err != nil {
		return nil, notFoundAs(err, apperrors.NotFound)
	}
	if comment.AuthorID != userID {
		return nil, apperrors.E(apperrors.PermissionDenied)
	}
	if comment.Content == content {
		return comment, nil
	}
	comment.Content = content
	comment.IsEdited = true
	if err := st.Comments.UpdateComment(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment soft-deletes a comment with its replies, likes and reactions.
// The comment author and the post author may delete.
func (s *InteractionService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	return s.store.Transaction(ctx, func(tx *repositories.Store) error {
		comment, err := tx.Comments.GetCommentByID(commentID)
		if err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
		if comment.AuthorID != userID {
			root, err := tx.Posts.GetPostUnscoped(comment.RootRef())
			if err != nil || root.GetAuthorID() != userID {
				return apperrors.E(apperrors.PermissionDenied)
			}
		}
		descendants, err := tx.Comments.DescendantIDs([]uint{comment.ID})
		if err != nil {
			return err
		}
		if err := tx.Comments.SoftDeleteComments([]uint{comment.ID}); err != nil {
			return err
		}
		return cascadeParents(tx, comment.Ref(), descendants)
	})
}

// ListComments pages the comments under parent that viewer may see.
func (s *InteractionService) ListComments(ctx context.Context, viewerID uint, parent models.Ref, page repositories.Page) ([]models.Comment, error) {
	st := s.store.WithContext(ctx)
	if _, err := resolveTarget(st, viewerID, parent); err != nil {
		return nil, err
	}
	comments, err := st.Comments.GetCommentsByParent(parent, page)
	if err != nil {
		return nil, err
	}
	aud := NewAudience(st)
	out := comments[:0]
	for i := range comments {
		ok, err := aud.CanSeeComment(viewerID, &comments[i])
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, comments[i])
		}
	}
	return out, nil
}

// Like records a like and coalesces it into the author's like notification.
func (s *InteractionService) Like(ctx context.Context, userID uint, parent models.Ref) (*models.Like, error) {
	like := &models.Like{UserID: userID, ParentKind: parent.Kind, ParentID: parent.ID}
	out := &Outbox{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := resolveTarget(tx, userID, parent); err != nil {
			return err
		}
		if err := tx.Likes.CreateLike(like); err != nil {
			if repositories.IsDuplicate(err) {
				return apperrors.Wrap(apperrors.DuplicateLike, err)
			}
			return err
		}
		return s.notifier.Handle(ctx, tx, out, LikeCreated{Like: like})
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Flush(out)
	return like, nil
}

// Unlike removes the like and the actor from the coalesced notification.
func (s *InteractionService) Unlike(ctx context.Context, userID uint, parent models.Ref) error {
	out := &Outbox{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		like, err := tx.Likes.GetLike(userID, parent)
		if err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
		if err := tx.Likes.DeleteLike(like); err != nil {
			return err
		}
		return s.notifier.Handle(ctx, tx, out, LikeRemoved{Like: like})
	})
	if err != nil {
		return err
	}
	s.notifier.Flush(out)
	return nil
}

// LikeSummary is the like count on a parent plus the viewer's own state.
type LikeSummary struct {
	Count int64         `json:"count"`
	Liked bool          `json:"liked"`
	Likes []models.Like `json:"likes"`
}

func (s *InteractionService) ListLikes(ctx context.Context, viewerID uint, parent models.Ref, page repositories.Page) (*LikeSummary, error) {
	st := s.store.WithContext(ctx)
	if _, err := resolveTarget(st, viewerID, parent); err != nil {
		return nil, err
	}
	count, err := st.Likes.CountLikes(parent)
	if err != nil {
		return nil, err
	}
	likes, err := st.Likes.GetLikesByParent(parent, page)
	if err != nil {
		return nil, err
	}
	_, err = st.Likes.GetLike(viewerID, parent)
	if err != nil && !repositories.IsNotFound(err) {
		return nil, err
	}
	return &LikeSummary{Count: count, Liked: err == nil, Likes: likes}, nil
}

// React records an emoji reaction; each emoji coalesces separately.
func (s *InteractionService) React(ctx context.Context, userID uint, req models.CreateReactionRequest) (*models.Reaction, error) {
	if blank(req.Emoji) {
		return nil, apperrors.E(apperrors.EmptyContent)
	}
	parent := models.Ref{Kind: req.ParentKind, ID: req.ParentID}
	reaction := &models.Reaction{UserID: userID, Emoji: req.Emoji, ParentKind: parent.Kind, ParentID: parent.ID}
	out := &Outbox{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := resolveTarget(tx, userID, parent); err != nil {
			return err
		}
		if err := tx.Reactions.CreateReaction(reaction); err != nil {
			if repositories.IsDuplicate(err) {
				return apperrors.Wrap(apperrors.ExistingReaction, err)
			}
			return err
		}
		return s.notifier.Handle(ctx, tx, out, ReactionCreated{Reaction: reaction})
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Flush(out)
	return reaction, nil
}

func (s *InteractionService) Unreact(ctx context.Context, userID uint, parent models.Ref, emoji string) error {
	out := &Outbox{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		reaction, err := tx.Reactions.GetReaction(userID, emoji, parent)
		if err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
		if err := tx.Reactions.DeleteReaction(reaction); err != nil {
			return err
		}
		return s.notifier.Handle(ctx, tx, out, ReactionRemoved{Reaction: reaction})
	})
	if err != nil {
		return err
	}
	s.notifier.Flush(out)
	return nil
}

func (s *InteractionService) ListReactions(ctx context.Context, viewerID uint, parent models.Ref) ([]models.Reaction, error) {
	st := s.store.WithContext(ctx)
	if _, err := resolveTarget(st, viewerID, parent); err != nil {
		return nil, err
	}
	return st.Reactions.GetReactionsByParent(parent)
}
