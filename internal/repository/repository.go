package repository

import (
	"context"
	"errors"
	"time"

	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

// Filter selects records for RemoveWhere. Zero fields match everything.
type Filter struct {
	RecipientID    *uuid.UUID
	ReadOnly       bool
	DeadlineBefore *time.Time // deletion_deadline <= DeadlineBefore
	CreatedBefore  *time.Time
}

func (f Filter) Match(n *model.Notification) bool {
	if f.RecipientID != nil && n.RecipientID != *f.RecipientID {
		return false
	}
	if f.ReadOnly && n.ReadAt == nil {
		return false
	}
	if f.DeadlineBefore != nil && (n.DeletionDeadline == nil || n.DeletionDeadline.After(*f.DeadlineBefore)) {
		return false
	}
	if f.CreatedBefore != nil && !n.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

// Mutation is applied to a record under its lock. Returning false leaves the record untouched.
type Mutation func(n *model.Notification) bool

type Notification interface {
	Insert(ctx context.Context, n model.Notification) error
	Get(ctx context.Context, recipientID, id uuid.UUID) (*model.Notification, error)
	// ListByRecipient returns records newest first.
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error)
	Update(ctx context.Context, recipientID, id uuid.UUID, mutate Mutation) (*model.Notification, error)
	Remove(ctx context.Context, recipientID, id uuid.UUID) error
	RemoveWhere(ctx context.Context, filter Filter) ([]model.Notification, error)
}

type Repository struct {
	Notification Notification
}

func New(notification Notification) *Repository {
	return &Repository{
		Notification: notification,
	}
}
