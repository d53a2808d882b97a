// Package memory is an in-process notification store. Records are
// partitioned per recipient and every record carries its own lock, so
// operations on unrelated records never wait for each other.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/repository"
	"github.com/google/uuid"
)

// entry holds one record. Its lock serializes mutations and removal of that
// record only. removed is set under the lock before the entry leaves the map,
// so a caller that looked the entry up earlier sees it as gone.
type entry struct {
	mu      sync.Mutex
	n       *model.Notification
	removed bool
}

type partition struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

type notificationRepo struct {
	partitions sync.Map // uuid.UUID -> *partition
}

func NewNotificationRepo() repository.Notification {
	return &notificationRepo{}
}

func (r *notificationRepo) partition(recipientID uuid.UUID, create bool) *partition {
	if p, ok := r.partitions.Load(recipientID); ok {
		return p.(*partition)
	}
	if !create {
		return nil
	}
	p, _ := r.partitions.LoadOrStore(recipientID, &partition{entries: make(map[uuid.UUID]*entry)})
	return p.(*partition)
}

func (r *notificationRepo) entry(recipientID, id uuid.UUID) *entry {
	p := r.partition(recipientID, false)
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entries[id]
}

// snapshot returns the partition's entries without holding any record lock.
func (p *partition) snapshot() []*entry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	return entries
}

// forget drops removed entries from the map. Record locks are never held
// while the partition lock is taken.
func (p *partition) forget(ids ...uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		if e, ok := p.entries[id]; ok && e.removed {
			delete(p.entries, id)
		}
	}
}

func clone(n *model.Notification) *model.Notification {
	c := *n
	if n.Link != nil {
		link := *n.Link
		c.Link = &link
	}
	if n.ReadAt != nil {
		readAt := *n.ReadAt
		c.ReadAt = &readAt
	}
	if n.DeletionDeadline != nil {
		deadline := *n.DeletionDeadline
		c.DeletionDeadline = &deadline
	}
	return &c
}

func (r *notificationRepo) Insert(ctx context.Context, n model.Notification) error {
	p := r.partition(n.RecipientID, true)
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries[n.ID] = &entry{n: clone(&n)}
	return nil
}

func (r *notificationRepo) Get(ctx context.Context, recipientID, id uuid.UUID) (*model.Notification, error) {
	e := r.entry(recipientID, id)
	if e == nil {
		return nil, repository.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return nil, repository.ErrNotFound
	}
	return clone(e.n), nil
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	p := r.partition(recipientID, false)
	if p == nil {
		return []*model.Notification{}, nil
	}

	entries := p.snapshot()
	notifications := make([]*model.Notification, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			notifications = append(notifications, clone(e.n))
		}
		e.mu.Unlock()
	}

	sort.Slice(notifications, func(i, j int) bool {
		a, b := notifications[i], notifications[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
	return notifications, nil
}

func (r *notificationRepo) Update(ctx context.Context, recipientID, id uuid.UUID, mutate repository.Mutation) (*model.Notification, error) {
	e := r.entry(recipientID, id)
	if e == nil {
		return nil, repository.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return nil, repository.ErrNotFound
	}
	updated := clone(e.n)
	if mutate(updated) {
		e.n = updated
	}
	return clone(updated), nil
}

func (r *notificationRepo) Remove(ctx context.Context, recipientID, id uuid.UUID) error {
	e := r.entry(recipientID, id)
	if e == nil {
		return repository.ErrNotFound
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return repository.ErrNotFound
	}
	e.removed = true
	e.mu.Unlock()

	r.partition(recipientID, false).forget(id)
	return nil
}

func (r *notificationRepo) RemoveWhere(ctx context.Context, filter repository.Filter) ([]model.Notification, error) {
	if filter.RecipientID != nil {
		p := r.partition(*filter.RecipientID, false)
		if p == nil {
			return nil, nil
		}
		return p.removeWhere(filter), nil
	}

	var removed []model.Notification
	r.partitions.Range(func(_, value any) bool {
		if err := ctx.Err(); err != nil {
			return false
		}
		removed = append(removed, value.(*partition).removeWhere(filter)...)
		return true
	})
	return removed, ctx.Err()
}

func (p *partition) removeWhere(filter repository.Filter) []model.Notification {
	var (
		removed []model.Notification
		ids     []uuid.UUID
	)
	for _, e := range p.snapshot() {
		e.mu.Lock()
		if !e.removed && filter.Match(e.n) {
			e.removed = true
			removed = append(removed, *clone(e.n))
			ids = append(ids, e.n.ID)
		}
		e.mu.Unlock()
	}

	if len(ids) > 0 {
		p.forget(ids...)
	}
	return removed
}
