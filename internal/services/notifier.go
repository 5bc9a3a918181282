package services

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/messages"
	"github.com/anonto42/whoami-today/backend/internal/metrics"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/push"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// Notifier turns events into per-recipient notifications. Handle runs inside
// the caller's transaction; Flush hands the resulting pushes to the
// dispatcher after commit.
type Notifier struct {
	dispatcher push.Dispatcher
	now        Clock
	names      *expirable.LRU[uint, string]
}

func NewNotifier(dispatcher push.Dispatcher, now Clock) *Notifier {
	return &Notifier{
		dispatcher: dispatcher,
		now:        now,
		names:      expirable.NewLRU[uint, string](4096, nil, 10*time.Minute),
	}
}

// ForgetName drops a cached username after a rename.
func (n *Notifier) ForgetName(userID uint) { n.names.Remove(userID) }

// Flush dispatches the outbox. Call it only after the transaction committed.
func (n *Notifier) Flush(out *Outbox) {
	if n.dispatcher == nil || len(out.jobs) == 0 {
		return
	}
	n.dispatcher.Dispatch(out.jobs...)
	out.jobs = nil
}

// FlushWait is Flush for batch producers. It blocks for queue space when the
// dispatcher supports it instead of dropping pushes.
func (n *Notifier) FlushWait(ctx context.Context, out *Outbox) error {
	if n.dispatcher == nil || len(out.jobs) == 0 {
		return nil
	}
	jobs := out.jobs
	out.jobs = nil
	if batch, ok := n.dispatcher.(push.BatchDispatcher); ok {
		return batch.DispatchWait(ctx, jobs...)
	}
	n.dispatcher.Dispatch(jobs...)
	return nil
}

// Handle processes events in order. A failing gate for one recipient only
// skips that recipient; a failing notification write aborts the transaction.
func (n *Notifier) Handle(ctx context.Context, tx *repositories.Store, out *Outbox, events ...Event) error {
	for _, ev := range events {
		if err := n.handle(ctx, tx, out, ev); err != nil {
			return fmt.Errorf("%s notification: %w", ev.family(), err)
		}
	}
	return nil
}

func (n *Notifier) handle(ctx context.Context, tx *repositories.Store, out *Outbox, ev Event) error {
	switch ev := ev.(type) {
	case LikeCreated:
		return n.onLike(ctx, tx, out, ev.Like, true)
	case LikeRemoved:
		return n.onLike(ctx, tx, out, ev.Like, false)
	case ReactionCreated:
		return n.onReaction(ctx, tx, out, ev.Reaction, true)
	case ReactionRemoved:
		return n.onReaction(ctx, tx, out, ev.Reaction, false)
	case CommentCreated:
		return n.onComment(ctx, tx, out, ev.Comment)
	case ReplyCreated:
		return n.onReply(ctx, tx, out, ev.Comment)
	case ResponseRequestCreated:
		return n.onResponseRequest(ctx, tx, out, ev.Request)
	case ResponseCreated:
		return n.onResponse(ctx, tx, out, ev)
	case NoteCreated:
		return n.onNote(ctx, tx, out, ev.Note)
	case FriendRequestCreated:
		return n.onFriendRequest(ctx, tx, out, ev.Request)
	case FriendRequestAccepted:
		return n.onFriendAccepted(ctx, tx, out, ev)
	case FriendRequestClosed:
		return tx.Notifications.HideByTarget(ev.Request.RequesteeID, ev.Request.Ref())
	case DailyPrompt:
		return n.onDailyPrompt(ctx, tx, out, ev)
	}
	return fmt.Errorf("unhandled event %T", ev)
}

func (n *Notifier) name(tx *repositories.Store, userID uint) (string, error) {
	if name, ok := n.names.Get(userID); ok {
		return name, nil
	}
	user, err := tx.Users.GetUserByIDUnscoped(userID)
	if err != nil {
		return "", err
	}
	n.names.Add(userID, user.Username)
	return user.Username, nil
}

// allowed is the per-recipient gate: no self notifications, no notifications
// across a block, and the recipient must be in the origin's audience. Lookups
// run in a savepoint so a failure skips only this recipient.
func (n *Notifier) allowed(ctx context.Context, tx *repositories.Store, family string, actorID, recipientID uint, origin models.Ref) bool {
	if recipientID == 0 || actorID == recipientID {
		return false
	}
	ok := false
	err := tx.Transaction(ctx, func(sp *repositories.Store) error {
		if _, err := sp.Users.GetUserByID(recipientID); err != nil {
			if repositories.IsNotFound(err) {
				return nil
			}
			return err
		}
		aud := NewAudience(sp)
		blocked, err := aud.Blocked(recipientID, actorID)
		if err != nil || blocked {
			return err
		}
		if origin.Kind.IsParent() {
			ok, err = aud.CanSee(recipientID, origin)
			return err
		}
		ok = true
		return nil
	})
	if err != nil {
		zap.L().Warn("notification gate failed, skipping recipient",
			zap.String("family", family), zap.Uint("recipient_id", recipientID), zap.Uint("actor_id", actorID), zap.Error(err))
		ok = false
	}
	if !ok {
		metrics.NotificationsTotal.WithLabelValues(family, "skipped").Inc()
	}
	return ok
}

// delivery is a single, non-coalesced notification.
type delivery struct {
	family      string
	recipientID uint
	actorID     uint
	origin      models.Ref
	target      models.Ref
	text        messages.Text
	redirect    string
	dedupKey    string
}

func (n *Notifier) deliver(ctx context.Context, tx *repositories.Store, out *Outbox, d delivery) (bool, error) {
	if !n.allowed(ctx, tx, d.family, d.actorID, d.recipientID, d.origin) {
		return false, nil
	}
	now := n.now()
	notif := &models.Notification{
		RecipientID:           d.recipientID,
		OriginKind:            d.origin.Kind,
		OriginID:              d.origin.ID,
		TargetKind:            d.target.Kind,
		TargetID:              d.target.ID,
		MessageKo:             d.text.Ko,
		MessageEn:             d.text.En,
		RedirectURL:           d.redirect,
		IsVisible:             true,
		NotificationUpdatedAt: now,
	}
	if d.dedupKey != "" {
		key := d.dedupKey
		notif.CoalesceKey = &key
		created, err := tx.Notifications.InsertCoalesced(notif)
		if err != nil {
			return false, err
		}
		if !created {
			metrics.NotificationsTotal.WithLabelValues(d.family, "skipped").Inc()
			return false, nil
		}
	} else if err := tx.Notifications.CreateNotification(notif); err != nil {
		return false, err
	}
	if _, err := tx.Notifications.AddActor(notif.ID, d.actorID, now); err != nil {
		return false, err
	}
	out.add(notifyJob(notif))
	metrics.NotificationsTotal.WithLabelValues(d.family, "created").Inc()
	return true, nil
}

// coalesced describes a notification shared by every actor of the same
// (recipient, origin, target kind, emoji).
type coalesced struct {
	family      string
	recipientID uint
	actorID     uint
	origin      models.Ref
	target      models.Ref
	emoji       string
	redirect    string
	render      func(names []string, total int) messages.Text
}

func (c coalesced) key() string {
	return fmt.Sprintf("%d:%s:%d:%s:%s", c.recipientID, c.origin.Kind, c.origin.ID, c.target.Kind, c.emoji)
}

// addActor inserts the coalesced row if needed, then appends the actor under
// a row lock. Adding an actor that is already present is a no-op.
func (n *Notifier) addActor(ctx context.Context, tx *repositories.Store, out *Outbox, c coalesced) error {
	if !n.allowed(ctx, tx, c.family, c.actorID, c.recipientID, c.origin) {
		return nil
	}
	key := c.key()
	now := n.now()
	notif := &models.Notification{
		RecipientID:           c.recipientID,
		OriginKind:            c.origin.Kind,
		OriginID:              c.origin.ID,
		TargetKind:            c.target.Kind,
		TargetID:              c.target.ID,
		Emoji:                 c.emoji,
		CoalesceKey:           &key,
		RedirectURL:           c.redirect,
		IsVisible:             true,
		NotificationUpdatedAt: now,
	}
	created, err := tx.Notifications.InsertCoalesced(notif)
	if err != nil {
		return err
	}
	if !created {
		if notif, err = tx.Notifications.GetByCoalesceKeyForUpdate(key); err != nil {
			return err
		}
	}
	added, err := tx.Notifications.AddActor(notif.ID, c.actorID, now)
	if err != nil || !added {
		return err
	}
	if _, err := n.render(tx, notif, c.render); err != nil {
		return err
	}
	notif.TargetID = c.target.ID
	notif.IsVisible = true
	notif.IsRead = false
	notif.NotificationUpdatedAt = now
	if err := tx.Notifications.SaveNotification(notif); err != nil {
		return err
	}
	out.add(notifyJob(notif))
	action := "coalesced"
	if created {
		action = "created"
	}
	metrics.NotificationsTotal.WithLabelValues(c.family, action).Inc()
	return nil
}

// removeActor drops the actor; the last actor out soft-deletes the row and
// cancels its push.
func (n *Notifier) removeActor(tx *repositories.Store, out *Outbox, c coalesced) error {
	notif, err := tx.Notifications.GetByCoalesceKeyForUpdate(c.key())
	if repositories.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	removed, err := tx.Notifications.RemoveActor(notif.ID, c.actorID)
	if err != nil || !removed {
		return err
	}
	remaining, err := n.render(tx, notif, c.render)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err := tx.Notifications.SoftDeleteNotification(notif); err != nil {
			return err
		}
		out.add(push.Job{RecipientID: notif.RecipientID, NotificationID: notif.ID, Cancel: true})
		metrics.NotificationsTotal.WithLabelValues(c.family, "deleted").Inc()
		return nil
	}
	if err := tx.Notifications.SaveNotification(notif); err != nil {
		return err
	}
	metrics.NotificationsTotal.WithLabelValues(c.family, "actor_removed").Inc()
	return nil
}

// render rewrites the messages from the two most recent actors and returns
// the actor count.
func (n *Notifier) render(tx *repositories.Store, notif *models.Notification, render func([]string, int) messages.Text) (int, error) {
	actors, err := tx.Notifications.Actors(notif.ID)
	if err != nil || len(actors) == 0 {
		return 0, err
	}
	names := make([]string, 0, 2)
	for _, a := range actors {
		if len(names) == 2 {
			break
		}
		name, err := n.name(tx, a.UserID)
		if err != nil {
			return 0, err
		}
		names = append(names, name)
	}
	text := render(names, len(actors))
	notif.MessageKo, notif.MessageEn = text.Ko, text.En
	return len(actors), nil
}

func notifyJob(notif *models.Notification) push.Job {
	return push.Job{
		RecipientID:    notif.RecipientID,
		NotificationID: notif.ID,
		MessageKo:      notif.MessageKo,
		MessageEn:      notif.MessageEn,
		RedirectURL:    notif.RedirectURL,
	}
}

// parentInfo is what the engine needs from a liked, reacted or commented item.
type parentInfo struct {
	ref      models.Ref
	authorID uint
	body     string
	root     models.Ref
}

func loadParent(tx *repositories.Store, ref models.Ref) (*parentInfo, error) {
	if ref.Kind == models.KindComment {
		c, err := tx.Comments.GetCommentByID(ref.ID)
		if err != nil {
			return nil, err
		}
		return &parentInfo{ref: ref, authorID: c.AuthorID, body: c.Content, root: c.RootRef()}, nil
	}
	post, err := tx.Posts.GetPost(ref)
	if err != nil {
		return nil, err
	}
	return &parentInfo{ref: ref, authorID: post.GetAuthorID(), body: post.Body(), root: ref}, nil
}

// bilingual joins the Korean half of ko and the English half of en, for
// messages whose preview differs by language.
func bilingual(ko, en messages.Text) messages.Text {
	return messages.Text{Ko: ko.Ko, En: en.En}
}

func (n *Notifier) onLike(ctx context.Context, tx *repositories.Store, out *Outbox, like *models.Like, added bool) error {
	parent, err := loadParent(tx, like.ParentRef())
	if repositories.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	preview := messages.Preview(parent.body)
	c := coalesced{
		family:      "like",
		recipientID: parent.authorID,
		actorID:     like.UserID,
		origin:      parent.ref,
		target:      like.Ref(),
		redirect:    RedirectURL(parent.ref),
		render: func(names []string, total int) messages.Text {
			return messages.Like(names, total, parent.ref.Kind, preview)
		},
	}
	if added {
		return n.addActor(ctx, tx, out, c)
	}
	return n.removeActor(tx, out, c)
}

func (n *Notifier) onReaction(ctx context.Context, tx *repositories.Store, out *Outbox, reaction *models.Reaction, added bool) error {
	parent, err := loadParent(tx, reaction.ParentRef())
	if repositories.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	preview := messages.Preview(parent.body)
	c := coalesced{
		family:      "reaction",
		recipientID: parent.authorID,
		actorID:     reaction.UserID,
		origin:      parent.ref,
		target:      reaction.Ref(),
		emoji:       reaction.Emoji,
		redirect:    RedirectURL(parent.ref),
		render: func(names []string, total int) messages.Text {
			return messages.Reaction(names, total, parent.ref.Kind, reaction.Emoji, preview)
		},
	}
	if added {
		return n.addActor(ctx, tx, out, c)
	}
	return n.removeActor(tx, out, c)
}

func (n *Notifier) onComment(ctx context.Context, tx *repositories.Store, out *Outbox, comment *models.Comment) error {
	root, err := loadParent(tx, comment.RootRef())
	if repositories.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	actorName, err := n.name(tx, comment.AuthorID)
	if err != nil {
		return err
	}
	preview := messages.Preview(comment.Content)
	redirect := RedirectURL(root.ref)

	notified := map[uint]bool{comment.AuthorID: true, root.authorID: true}
	if _, err := n.deliver(ctx, tx, out, delivery{
		family:      "comment",
		recipientID: root.authorID,
		actorID:     comment.AuthorID,
		origin:      root.ref,
		target:      comment.Ref(),
		text:        messages.Comment(actorName, root.ref.Kind, preview),
		redirect:    redirect,
	}); err != nil {
		return err
	}
	if comment.IsPrivate {
		return nil
	}
	ownerName, err := n.name(tx, root.authorID)
	if err != nil {
		return err
	}
	return n.fanOutParticipants(ctx, tx, out, comment, root.ref, notified, delivery{
		family:   "comment",
		actorID:  comment.AuthorID,
		origin:   root.ref,
		target:   comment.Ref(),
		text:     messages.Participant(actorName, ownerName, root.ref.Kind, preview),
		redirect: redirect,
	})
}

func (n *Notifier) onReply(ctx context.Context, tx *repositories.Store, out *Outbox, reply *models.Comment) error {
	parent, err := tx.Comments.GetCommentByID(reply.ParentID)
	if repositories.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	root, err := loadParent(tx, reply.RootRef())
	if repositories.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	actorName, err := n.name(tx, reply.AuthorID)
	if err != nil {
		return err
	}
	preview := messages.Preview(reply.Content)
	redirect := RedirectURL(root.ref)
	origin := parent.Ref()

	notified := map[uint]bool{reply.AuthorID: true, parent.AuthorID: true}
	if _, err := n.deliver(ctx, tx, out, delivery{
		family:      "reply",
		recipientID: parent.AuthorID,
		actorID:     reply.AuthorID,
		origin:      origin,
		target:      reply.Ref(),
		text:        messages.Reply(actorName, preview),
		redirect:    redirect,
	}); err != nil {
		return err
	}
	if !notified[root.authorID] {
		notified[root.authorID] = true
		if _, err := n.deliver(ctx, tx, out, delivery{
			family:      "reply",
			recipientID: root.authorID,
			actorID:     reply.AuthorID,
			origin:      origin,
			target:      reply.Ref(),
			text:        messages.ThreadReply(actorName, root.ref.Kind, preview),
			redirect:    redirect,
		}); err != nil {
			return err
		}
	}
	if reply.IsPrivate {
		return nil
	}
	ownerName, err := n.name(tx, parent.AuthorID)
	if err != nil {
		return err
	}
	return n.fanOutParticipants(ctx, tx, out, reply, origin, notified, delivery{
		family:   "reply",
		actorID:  reply.AuthorID,
		origin:   origin,
		target:   reply.Ref(),
		text:     messages.Participant(actorName, ownerName, models.KindComment, preview),
		redirect: redirect,
	})
}

// fanOutParticipants notifies earlier commenters under the same parent,
// skipping anyone already notified and anyone who reported origin.
func (n *Notifier) fanOutParticipants(ctx context.Context, tx *repositories.Store, out *Outbox, comment *models.Comment, origin models.Ref, notified map[uint]bool, tmpl delivery) error {
	participants, err := tx.Comments.ParticipantIDs(comment.ParentRef(), comment.ID)
	if err != nil {
		return err
	}
	reporters, err := tx.Reports.ReporterIDs(origin)
	if err != nil {
		return err
	}
	reported := toSet(reporters)
	for _, id := range participants {
		if notified[id] {
			continue
		}
		notified[id] = true
		if _, skip := reported[id]; skip {
			continue
		}
		d := tmpl
		d.recipientID = id
		if _, err := n.deliver(ctx, tx, out, d); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) onResponseRequest(ctx context.Context, tx *repositories.Store, out *Outbox, req *models.ResponseRequest) error {
	q, err := tx.Questions.GetQuestionUnscoped(req.QuestionID)
	if err != nil {
		return err
	}
	origin := models.Ref{Kind: models.KindQuestion, ID: q.ID}
	koPreview := messages.Preview(q.Text(models.LanguageKo))
	enPreview := messages.Preview(q.Text(models.LanguageEn))
	return n.addActor(ctx, tx, out, coalesced{
		family:      "response_request",
		recipientID: req.RequesteeID,
		actorID:     req.RequesterID,
		origin:      origin,
		target:      req.Ref(),
		redirect:    RedirectURL(origin),
		render: func(names []string, total int) messages.Text {
			return bilingual(messages.ResponseRequest(names, total, koPreview), messages.ResponseRequest(names, total, enPreview))
		},
	})
}

func (n *Notifier) onResponse(ctx context.Context, tx *repositories.Store, out *Outbox, ev ResponseCreated) error {
	r := ev.Response
	q, err := tx.Questions.GetQuestionUnscoped(r.QuestionID)
	if err != nil {
		return err
	}
	actorName, err := n.name(tx, r.AuthorID)
	if err != nil {
		return err
	}
	koPreview := messages.Preview(q.Text(models.LanguageKo))
	enPreview := messages.Preview(q.Text(models.LanguageEn))
	redirect := RedirectURL(r.Ref())

	notified := map[uint]bool{r.AuthorID: true}
	for _, req := range ev.Fulfilled {
		if notified[req.RequesterID] {
			continue
		}
		notified[req.RequesterID] = true
		if _, err := n.deliver(ctx, tx, out, delivery{
			family:      "response",
			recipientID: req.RequesterID,
			actorID:     r.AuthorID,
			origin:      r.Ref(),
			target:      r.Ref(),
			text:        bilingual(messages.RequestFulfilled(actorName, koPreview), messages.RequestFulfilled(actorName, enPreview)),
			redirect:    redirect,
		}); err != nil {
			return err
		}
	}
	if len(ev.Fulfilled) > 0 {
		question := models.Ref{Kind: models.KindQuestion, ID: q.ID}
		if err := tx.Notifications.HideByOrigin(r.AuthorID, question, models.KindResponseRequest); err != nil {
			return err
		}
	}

	subscribers, err := tx.Subscriptions.SubscriberIDs(r.AuthorID, models.KindResponse)
	if err != nil {
		return err
	}
	for _, id := range subscribers {
		if notified[id] {
			continue
		}
		notified[id] = true
		if _, err := n.deliver(ctx, tx, out, delivery{
			family:      "response",
			recipientID: id,
			actorID:     r.AuthorID,
			origin:      r.Ref(),
			target:      r.Ref(),
			text:        bilingual(messages.NewResponse(actorName, koPreview), messages.NewResponse(actorName, enPreview)),
			redirect:    redirect,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) onNote(ctx context.Context, tx *repositories.Store, out *Outbox, note *models.Note) error {
	subscribers, err := tx.Subscriptions.SubscriberIDs(note.AuthorID, models.KindNote)
	if err != nil || len(subscribers) == 0 {
		return err
	}
	actorName, err := n.name(tx, note.AuthorID)
	if err != nil {
		return err
	}
	text := messages.NewNote(actorName, messages.Preview(note.Content))
	for _, id := range subscribers {
		if _, err := n.deliver(ctx, tx, out, delivery{
			family:      "note",
			recipientID: id,
			actorID:     note.AuthorID,
			origin:      note.Ref(),
			target:      note.Ref(),
			text:        text,
			redirect:    RedirectURL(note.Ref()),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) onFriendRequest(ctx context.Context, tx *repositories.Store, out *Outbox, req *models.FriendRequest) error {
	actorName, err := n.name(tx, req.RequesterID)
	if err != nil {
		return err
	}
	_, err = n.deliver(ctx, tx, out, delivery{
		family:      "friend_request",
		recipientID: req.RequesteeID,
		actorID:     req.RequesterID,
		target:      req.Ref(),
		text:        messages.FriendRequest(actorName),
		redirect:    RedirectURL(req.Ref()),
	})
	return err
}

func (n *Notifier) onFriendAccepted(ctx context.Context, tx *repositories.Store, out *Outbox, ev FriendRequestAccepted) error {
	req := ev.Request
	if err := tx.Notifications.HideByTarget(req.RequesteeID, req.Ref()); err != nil {
		return err
	}
	if ev.Connection == nil {
		return nil
	}
	target := models.Ref{Kind: models.KindConnection, ID: ev.Connection.ID}
	pairs := [][2]uint{{req.RequesterID, req.RequesteeID}, {req.RequesteeID, req.RequesterID}}
	for _, p := range pairs {
		recipient, other := p[0], p[1]
		otherName, err := n.name(tx, other)
		if err != nil {
			return err
		}
		origin := models.Ref{Kind: models.KindUser, ID: other}
		if _, err := n.deliver(ctx, tx, out, delivery{
			family:      "friend_accepted",
			recipientID: recipient,
			actorID:     other,
			origin:      origin,
			target:      target,
			text:        messages.FriendAccepted(otherName),
			redirect:    RedirectURL(origin),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) onDailyPrompt(ctx context.Context, tx *repositories.Store, out *Outbox, ev DailyPrompt) error {
	origin := models.Ref{Kind: models.KindQuestion, ID: ev.Question.ID}
	text := messages.DailyPrompt(messages.Text{
		Ko: ev.Question.Text(models.LanguageKo),
		En: ev.Question.Text(models.LanguageEn),
	})
	_, err := n.deliver(ctx, tx, out, delivery{
		family:      "daily_prompt",
		recipientID: ev.RecipientID,
		actorID:     ev.AdminID,
		origin:      origin,
		target:      models.Ref{Kind: models.KindDailyPrompt, ID: ev.Question.ID},
		text:        text,
		redirect:    RedirectURL(origin),
		dedupKey:    fmt.Sprintf("daily:%d:%d:%s", ev.RecipientID, ev.Question.ID, ev.Date),
	})
	return err
}
