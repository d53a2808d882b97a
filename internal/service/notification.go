package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/BloggingApp/notification-lifecycle/internal/config"
	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/rabbitmq"
	"github.com/BloggingApp/notification-lifecycle/internal/repository"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const MAX_LINK_LENGTH = 255

type notificationService struct {
	logger   *zap.Logger
	repo     *repository.Repository
	cache    *listCache
	rabbitmq *rabbitmq.MQConn
	clock    clockwork.Clock
	cfg      config.EngineConfig
}

func newNotificationService(logger *zap.Logger, repo *repository.Repository, cache *listCache, rabbitmq *rabbitmq.MQConn, clock clockwork.Clock, cfg config.EngineConfig) Notification {
	return &notificationService{
		logger:   logger,
		repo:     repo,
		cache:    cache,
		rabbitmq: rabbitmq,
		clock:    clock,
		cfg:      cfg,
	}
}

// ParseID parses a notification or user id supplied by a caller.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidInput
	}
	return id, nil
}

func (s *notificationService) storeError(action string, recipientID uuid.UUID, err error) error {
	s.logger.Sugar().Errorf("failed to %s for user(%s): %s", action, recipientID.String(), err.Error())
	return fmt.Errorf("%w: %s", ErrStoreUnavailable, err.Error())
}

func (s *notificationService) CreateNotification(ctx context.Context, recipientID uuid.UUID, kind model.Kind, message string, link *string) (*model.Notification, error) {
	if recipientID == uuid.Nil || (link != nil && len(*link) > MAX_LINK_LENGTH) {
		return nil, ErrInvalidInput
	}

	n := model.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Kind:        model.ParseKind(string(kind)),
		Message:     message,
		Link:        link,
		CreatedAt:   storeTime(s.clock),
	}

	if err := s.repo.Notification.Insert(ctx, n); err != nil {
		return nil, s.storeError("create notification", recipientID, err)
	}
	s.cache.invalidate(ctx, recipientID)

	return &n, nil
}

func (s *notificationService) List(ctx context.Context, recipientID uuid.UUID) ([]model.NotificationView, error) {
	notifications, err := s.cache.load(ctx, recipientID, func() ([]*model.Notification, error) {
		return s.repo.Notification.ListByRecipient(ctx, recipientID)
	})
	if err != nil {
		return nil, s.storeError("list notifications", recipientID, err)
	}

	now := storeTime(s.clock)
	views := make([]model.NotificationView, 0, len(notifications))
	for _, n := range notifications {
		// the sweeper may not have caught up yet
		if n.Expired(now) {
			continue
		}
		views = append(views, model.NewView(*n, now))
	}

	return views, nil
}

func (s *notificationService) MarkRead(ctx context.Context, recipientID, id uuid.UUID) (*model.NotificationView, error) {
	now := storeTime(s.clock)

	var expired, changed bool
	n, err := s.repo.Notification.Update(ctx, recipientID, id, func(n *model.Notification) bool {
		if n.Expired(now) {
			expired = true
			return false
		}
		changed = n.MarkRead(now, s.cfg.GracePeriod)
		return changed
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.storeError("mark notification as read", recipientID, err)
	}
	if expired {
		return nil, ErrNotFound
	}

	if changed {
		s.cache.invalidate(ctx, recipientID)
	}

	view := model.NewView(*n, now)
	return &view, nil
}

// MarkAllRead marks every notification that was unread when the call started.
// All of them share one read timestamp.
func (s *notificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	now := storeTime(s.clock)

	snapshot, err := s.repo.Notification.ListByRecipient(ctx, recipientID)
	if err != nil {
		return 0, s.storeError("list notifications", recipientID, err)
	}

	updated := 0
	defer func() {
		if updated > 0 {
			s.cache.invalidate(ctx, recipientID)
		}
	}()

	for _, n := range snapshot {
		if n.IsRead() {
			continue
		}

		var changed bool
		_, err := s.repo.Notification.Update(ctx, recipientID, n.ID, func(n *model.Notification) bool {
			changed = n.MarkRead(now, s.cfg.GracePeriod)
			return changed
		})
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return updated, s.storeError("mark notifications as read", recipientID, err)
		}
		if changed {
			updated++
		}
	}

	return updated, nil
}

func (s *notificationService) Delete(ctx context.Context, recipientID, id uuid.UUID) error {
	err := s.repo.Notification.Remove(ctx, recipientID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return s.storeError("delete notification", recipientID, err)
	}

	s.cache.invalidate(ctx, recipientID)
	return nil
}

func (s *notificationService) DeleteAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	removed, err := s.repo.Notification.RemoveWhere(ctx, repository.Filter{
		RecipientID: &recipientID,
		ReadOnly:    true,
	})
	if err != nil {
		return 0, s.storeError("delete read notifications", recipientID, err)
	}

	if len(removed) > 0 {
		s.cache.invalidate(ctx, recipientID)
	}
	return len(removed), nil
}
