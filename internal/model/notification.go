package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindNewFollower     Kind = "new_follower"
	KindCounterArgument Kind = "counter_argument"
	KindFollowingPost   Kind = "following_post"
	KindGeneric         Kind = "generic"
)

// ParseKind maps producer-supplied kinds onto the closed set. Anything unknown is generic.
func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case KindNewFollower, KindCounterArgument, KindFollowingPost, KindGeneric:
		return k
	default:
		return KindGeneric
	}
}

type Notification struct {
	ID               uuid.UUID  `json:"id"`
	RecipientID      uuid.UUID  `json:"recipient_id"`
	Kind             Kind       `json:"kind"`
	Message          string     `json:"message"`
	Link             *string    `json:"link"`
	CreatedAt        time.Time  `json:"created_at"`
	ReadAt           *time.Time `json:"read_at"`
	DeletionDeadline *time.Time `json:"deletion_deadline"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// MarkRead sets ReadAt and derives the deletion deadline. It reports whether the
// record changed; an already read record keeps its original timestamps.
func (n *Notification) MarkRead(now time.Time, gracePeriod time.Duration) bool {
	if n.ReadAt != nil {
		return false
	}
	readAt := now
	deadline := now.Add(gracePeriod)
	n.ReadAt = &readAt
	n.DeletionDeadline = &deadline
	return true
}

// Expired reports whether the record is past its deletion deadline at now.
func (n *Notification) Expired(now time.Time) bool {
	return n.DeletionDeadline != nil && !now.Before(*n.DeletionDeadline)
}

// NotificationView is a Notification as returned to callers, with the
// countdown derived from the deadline at response time.
type NotificationView struct {
	Notification
	SecondsUntilDeletion *int64 `json:"seconds_until_deletion"`
}

func NewView(n Notification, now time.Time) NotificationView {
	v := NotificationView{Notification: n}
	if n.DeletionDeadline != nil {
		secs := int64(math.Ceil(n.DeletionDeadline.Sub(now).Seconds()))
		if secs < 0 {
			secs = 0
		}
		v.SecondsUntilDeletion = &secs
	}
	return v
}
