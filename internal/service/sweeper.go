package service

import (
	"context"
	"time"

	"github.com/BloggingApp/notification-lifecycle/internal/config"
	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/repository"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	SWEEP_EXPIRED_JOB = "sweep-expired-notifications"
	PURGE_OLD_JOB     = "purge-old-notifications"

	PURGE_OLD_INTERVAL = time.Hour * 12
)

type sweeper struct {
	logger    *zap.Logger
	repo      *repository.Repository
	cache     *listCache
	clock     clockwork.Clock
	cfg       config.EngineConfig
	scheduler gocron.Scheduler
}

func newSweeper(logger *zap.Logger, repo *repository.Repository, cache *listCache, clock clockwork.Clock, cfg config.EngineConfig, locker gocron.Locker) (Sweeper, error) {
	options := []gocron.SchedulerOption{
		gocron.WithClock(clock),
		gocron.WithLogger(schedulerLogger{logger.Sugar()}),
	}
	if locker != nil {
		options = append(options, gocron.WithDistributedLocker(locker))
	}

	scheduler, err := gocron.NewScheduler(options...)
	if err != nil {
		return nil, err
	}

	return &sweeper{
		logger:    logger,
		repo:      repo,
		cache:     cache,
		clock:     clock,
		cfg:       cfg,
		scheduler: scheduler,
	}, nil
}

// Sweep removes every notification whose deletion deadline has passed.
func (s *sweeper) Sweep(ctx context.Context) (int, error) {
	now := storeTime(s.clock)
	return s.removeWhere(ctx, repository.Filter{DeadlineBefore: &now})
}

// PurgeOld removes notifications older than the retention period, read or not.
func (s *sweeper) PurgeOld(ctx context.Context) (int, error) {
	if s.cfg.Retention <= 0 {
		return 0, nil
	}
	cutoff := storeTime(s.clock).Add(-s.cfg.Retention)
	return s.removeWhere(ctx, repository.Filter{CreatedBefore: &cutoff})
}

func (s *sweeper) removeWhere(ctx context.Context, filter repository.Filter) (int, error) {
	removed, err := s.repo.Notification.RemoveWhere(ctx, filter)
	if len(removed) > 0 {
		s.cache.invalidate(ctx, recipients(removed)...)
	}
	return len(removed), err
}

func recipients(notifications []model.Notification) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(notifications))
	for _, n := range notifications {
		ids = append(ids, n.RecipientID)
	}
	return ids
}

func (s *sweeper) newSweepExpiredJob() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.cfg.SweepInterval),
		gocron.NewTask(func(ctx context.Context) {
			removed, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Sugar().Errorf("failed to sweep expired notifications: %s", err.Error())
				return
			}
			if removed > 0 {
				s.logger.Sugar().Infof("swept %d expired notification(s)", removed)
			}
		}),
		gocron.WithName(SWEEP_EXPIRED_JOB),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func (s *sweeper) newPurgeOldJob() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(PURGE_OLD_INTERVAL),
		gocron.NewTask(func(ctx context.Context) {
			removed, err := s.PurgeOld(ctx)
			if err != nil {
				s.logger.Sugar().Errorf("failed to delete old notifications: %s", err.Error())
				return
			}
			if removed > 0 {
				s.logger.Sugar().Infof("deleted %d old notification(s)", removed)
			}
		}),
		gocron.WithName(PURGE_OLD_JOB),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func (s *sweeper) StartJobs() error {
	if err := s.newSweepExpiredJob(); err != nil {
		return err
	}
	if err := s.newPurgeOldJob(); err != nil {
		return err
	}

	s.scheduler.Start()
	return nil
}

func (s *sweeper) Shutdown() error {
	return s.scheduler.Shutdown()
}

type schedulerLogger struct {
	l *zap.SugaredLogger
}

func (l schedulerLogger) Debug(msg string, args ...any) { l.l.Debugw(msg, args...) }
func (l schedulerLogger) Error(msg string, args ...any) { l.l.Errorw(msg, args...) }
func (l schedulerLogger) Info(msg string, args ...any)  { l.l.Infow(msg, args...) }
func (l schedulerLogger) Warn(msg string, args ...any)  { l.l.Warnw(msg, args...) }
