// Package services holds the write paths and read gates of the application.
// Every multi-write operation runs in one repositories.Store transaction;
// notification side effects are computed inside it and pushed after commit.
package services

import (
	"fmt"
	"time"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/push"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// Clock returns the current time. Tests substitute a fixed or stepping clock.
type Clock func() time.Time

// SystemClock is the UTC wall clock.
func SystemClock() time.Time { return time.Now().UTC() }

// Outbox collects push jobs produced inside a transaction. It is flushed only
// after commit.
type Outbox struct {
	jobs []push.Job
}

func (o *Outbox) add(job push.Job) { o.jobs = append(o.jobs, job) }

// Jobs returns the collected jobs in emission order.
func (o *Outbox) Jobs() []push.Job { return o.jobs }

// notFoundAs maps gorm's not-found to code and passes other errors through.
func notFoundAs(err error, code apperrors.Code) error {
	if repositories.IsNotFound(err) {
		return apperrors.Wrap(code, err)
	}
	return err
}

// blockError names the direction of a block between actor and other.
func blockError(actorBlocks, otherBlocks bool) error {
	switch {
	case actorBlocks:
		return apperrors.E(apperrors.BlockingUserTag)
	case otherBlocks:
		return apperrors.E(apperrors.BlockedUserTag)
	}
	return nil
}

// checkBlocks fails when either user has blocked the other.
func checkBlocks(st *repositories.Store, actorID, otherID uint) error {
	actorBlocks, otherBlocks, err := st.Reports.Blocking(actorID, otherID)
	if err != nil {
		return err
	}
	return blockError(actorBlocks, otherBlocks)
}

// RedirectURL is the client route for a reference.
func RedirectURL(ref models.Ref) string {
	switch ref.Kind {
	case models.KindResponse:
		return fmt.Sprintf("/responses/%d", ref.ID)
	case models.KindNote:
		return fmt.Sprintf("/notes/%d", ref.ID)
	case models.KindMoment:
		return fmt.Sprintf("/moments/%d", ref.ID)
	case models.KindCheckIn:
		return fmt.Sprintf("/check-ins/%d", ref.ID)
	case models.KindComment:
		return fmt.Sprintf("/comments/%d", ref.ID)
	case models.KindQuestion:
		return fmt.Sprintf("/questions/%d", ref.ID)
	case models.KindUser:
		return fmt.Sprintf("/users/%d", ref.ID)
	case models.KindFriendRequest:
		return "/friends/requests"
	}
	return "/"
}

func uniq(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
