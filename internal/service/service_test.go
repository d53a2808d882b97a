package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BloggingApp/notification-lifecycle/internal/config"
	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/repository"
	"github.com/BloggingApp/notification-lifecycle/internal/repository/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var testConfig = config.EngineConfig{
	GracePeriod:   5 * time.Minute,
	SweepInterval: 20 * time.Second,
	Retention:     14 * 24 * time.Hour,
	ListCacheTTL:  2 * time.Minute,
}

type testEnv struct {
	svc   *Service
	clock *clockwork.FakeClock
	store repository.Notification
	mr    *miniredis.Miniredis
}

func newTestEnvWith(t *testing.T, logger *zap.Logger, store repository.Notification, cfg config.EngineConfig, clock clockwork.Clock) *Service {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc, err := New(Deps{
		Logger: logger,
		Repo:   repository.New(store),
		Redis:  rdb,
		Clock:  clock,
		Config: cfg,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Shutdown() })

	return svc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := clockwork.NewFakeClockAt(t0)
	store := memory.NewNotificationRepo()

	svc, err := New(Deps{
		Logger: zaptest.NewLogger(t),
		Repo:   repository.New(store),
		Redis:  rdb,
		Clock:  clock,
		Config: testConfig,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Shutdown() })

	return &testEnv{
		svc:   svc,
		clock: clock,
		store: store,
		mr:    mr,
	}
}

func (e *testEnv) create(t *testing.T, recipientID uuid.UUID) *model.Notification {
	t.Helper()
	n, err := e.svc.CreateNotification(context.Background(), recipientID, model.KindGeneric, "something happened", nil)
	require.NoError(t, err)
	return n
}

// failingStore returns err from every operation.
type failingStore struct {
	err error
}

func (s failingStore) Insert(context.Context, model.Notification) error { return s.err }
func (s failingStore) Get(context.Context, uuid.UUID, uuid.UUID) (*model.Notification, error) {
	return nil, s.err
}
func (s failingStore) ListByRecipient(context.Context, uuid.UUID) ([]*model.Notification, error) {
	return nil, s.err
}
func (s failingStore) Update(context.Context, uuid.UUID, uuid.UUID, repository.Mutation) (*model.Notification, error) {
	return nil, s.err
}
func (s failingStore) Remove(context.Context, uuid.UUID, uuid.UUID) error { return s.err }
func (s failingStore) RemoveWhere(context.Context, repository.Filter) ([]model.Notification, error) {
	return nil, s.err
}

var errConnRefused = errors.New("dial tcp: connection refused")
