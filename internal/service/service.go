package service

import (
	"context"
	"time"

	"github.com/BloggingApp/notification-lifecycle/internal/config"
	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/rabbitmq"
	"github.com/BloggingApp/notification-lifecycle/internal/repository"
	"github.com/BloggingApp/notification-lifecycle/internal/repository/redisrepo"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Notification interface {
	CreateNotification(ctx context.Context, recipientID uuid.UUID, kind model.Kind, message string, link *string) (*model.Notification, error)
	List(ctx context.Context, recipientID uuid.UUID) ([]model.NotificationView, error)
	MarkRead(ctx context.Context, recipientID, id uuid.UUID) (*model.NotificationView, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error)
	Delete(ctx context.Context, recipientID, id uuid.UUID) error
	DeleteAllRead(ctx context.Context, recipientID uuid.UUID) (int, error)
	StartProcessingCreateNotifications(ctx context.Context)
	StartProcessingFollows(ctx context.Context)
}

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
	PurgeOld(ctx context.Context) (int, error)
	StartJobs() error
	Shutdown() error
}

type Service struct {
	Notification
	Sweeper
}

type Deps struct {
	Logger   *zap.Logger
	Repo     *repository.Repository
	Redis    *redis.Client
	RabbitMQ *rabbitmq.MQConn
	Clock    clockwork.Clock
	Config   config.EngineConfig
}

func New(deps Deps) (*Service, error) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	cache := newListCache(deps.Logger, deps.Redis, deps.Config.ListCacheTTL)

	var locker gocron.Locker
	if deps.Redis != nil {
		locker = redisrepo.NewLocker(deps.Redis, deps.Config.SweepInterval)
	}

	sweeper, err := newSweeper(deps.Logger, deps.Repo, cache, deps.Clock, deps.Config, locker)
	if err != nil {
		return nil, err
	}

	return &Service{
		Notification: newNotificationService(deps.Logger, deps.Repo, cache, deps.RabbitMQ, deps.Clock, deps.Config),
		Sweeper:      sweeper,
	}, nil
}

// storeTime is the current time at the precision Postgres keeps, so
// timestamps handed back to callers match what is read back later.
func storeTime(clock clockwork.Clock) time.Time {
	return clock.Now().UTC().Truncate(time.Microsecond)
}
