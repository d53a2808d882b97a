package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/repository"
	"github.com/BloggingApp/notification-lifecycle/internal/repository/memory"
	"github.com/BloggingApp/notification-lifecycle/internal/repository/redisrepo"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseID(t *testing.T) {
	id := uuid.New()

	got, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	for _, input := range []string{"", "42", "not-a-uuid", uuid.Nil.String()} {
		_, err := ParseID(input)
		assert.ErrorIs(t, err, ErrInvalidInput, input)
	}
}

func TestCreateNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("stores record", func(t *testing.T) {
		env := newTestEnv(t)
		user := uuid.New()
		link := "/posts/42"

		n, err := env.svc.CreateNotification(ctx, user, model.KindFollowingPost, "alice posted", &link)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, n.ID)
		assert.Equal(t, model.KindFollowingPost, n.Kind)
		assert.True(t, n.CreatedAt.Equal(t0))
		assert.Nil(t, n.ReadAt)
		assert.Nil(t, n.DeletionDeadline)

		stored, err := env.store.Get(ctx, user, n.ID)
		require.NoError(t, err)
		assert.Equal(t, "/posts/42", *stored.Link)
	})

	t.Run("unknown kind becomes generic", func(t *testing.T) {
		env := newTestEnv(t)

		n, err := env.svc.CreateNotification(ctx, uuid.New(), model.Kind("promo"), "hi", nil)
		require.NoError(t, err)
		assert.Equal(t, model.KindGeneric, n.Kind)
	})

	t.Run("invalid input", func(t *testing.T) {
		env := newTestEnv(t)
		long := strings.Repeat("x", MAX_LINK_LENGTH+1)

		_, err := env.svc.CreateNotification(ctx, uuid.Nil, model.KindGeneric, "hi", nil)
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = env.svc.CreateNotification(ctx, uuid.New(), model.KindGeneric, "hi", &long)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := uuid.New()

	n := env.create(t, user)

	list, err := env.svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)
	assert.Nil(t, list[0].SecondsUntilDeletion)

	env.clock.Advance(10 * time.Second)
	readAt := t0.Add(10 * time.Second)

	view, err := env.svc.MarkRead(ctx, user, n.ID)
	require.NoError(t, err)
	require.NotNil(t, view.ReadAt)
	require.NotNil(t, view.DeletionDeadline)
	assert.True(t, view.ReadAt.Equal(readAt))
	assert.True(t, view.DeletionDeadline.Equal(readAt.Add(5*time.Minute)))
	require.NotNil(t, view.SecondsUntilDeletion)
	assert.EqualValues(t, 300, *view.SecondsUntilDeletion)

	env.clock.Advance(5*time.Minute + time.Second)

	removed, err := env.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	list, err = env.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListFiltersExpiredBeforeSweep(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := uuid.New()

	n := env.create(t, user)
	_, err := env.svc.MarkRead(ctx, user, n.ID)
	require.NoError(t, err)

	env.clock.Advance(5 * time.Minute)

	list, err := env.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, list)

	// still physically present until the sweeper runs
	_, err = env.store.Get(ctx, user, n.ID)
	assert.NoError(t, err)

	_, err = env.svc.MarkRead(ctx, user, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCountdown(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := uuid.New()

	read := env.create(t, user)
	env.clock.Advance(time.Second)
	unread := env.create(t, user)

	_, err := env.svc.MarkRead(ctx, user, read.ID)
	require.NoError(t, err)

	env.clock.Advance(90 * time.Second)

	list, err := env.svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// newest first
	assert.Equal(t, unread.ID, list[0].ID)
	assert.Nil(t, list[0].SecondsUntilDeletion)
	assert.Equal(t, read.ID, list[1].ID)
	require.NotNil(t, list[1].SecondsUntilDeletion)
	assert.EqualValues(t, 210, *list[1].SecondsUntilDeletion)

	env.clock.Advance(209*time.Second + 500*time.Millisecond)

	list, err = env.svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[1].SecondsUntilDeletion)
	assert.EqualValues(t, 1, *list[1].SecondsUntilDeletion)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		user := uuid.New()
		n := env.create(t, user)

		first, err := env.svc.MarkRead(ctx, user, n.ID)
		require.NoError(t, err)

		env.clock.Advance(time.Minute)

		second, err := env.svc.MarkRead(ctx, user, n.ID)
		require.NoError(t, err)
		assert.True(t, first.ReadAt.Equal(*second.ReadAt))
		assert.True(t, first.DeletionDeadline.Equal(*second.DeletionDeadline))
		assert.EqualValues(t, 240, *second.SecondsUntilDeletion)
	})

	t.Run("timestamps are kept at store precision", func(t *testing.T) {
		store := memory.NewNotificationRepo()
		clock := clockwork.NewFakeClockAt(t0.Add(123456789 * time.Nanosecond))
		svc := newTestEnvWith(t, zaptest.NewLogger(t), store, testConfig, clock)
		user := uuid.New()

		n, err := svc.CreateNotification(ctx, user, model.KindGeneric, "hi", nil)
		require.NoError(t, err)
		assert.True(t, n.CreatedAt.Equal(t0.Add(123456*time.Microsecond)))

		first, err := svc.MarkRead(ctx, user, n.ID)
		require.NoError(t, err)
		assert.True(t, first.ReadAt.Equal(t0.Add(123456*time.Microsecond)))

		clock.Advance(999 * time.Nanosecond)

		second, err := svc.MarkRead(ctx, user, n.ID)
		require.NoError(t, err)
		assert.True(t, first.ReadAt.Equal(*second.ReadAt))
		assert.True(t, first.DeletionDeadline.Equal(*second.DeletionDeadline))
	})

	t.Run("unknown id", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.MarkRead(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("another recipient's notification", func(t *testing.T) {
		env := newTestEnv(t)
		owner, intruder := uuid.New(), uuid.New()
		n := env.create(t, owner)

		_, err := env.svc.MarkRead(ctx, intruder, n.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		stored, err := env.store.Get(ctx, owner, n.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ReadAt)
	})
}

func TestMarkAllRead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user, other := uuid.New(), uuid.New()

	alreadyRead := env.create(t, user)
	_, err := env.svc.MarkRead(ctx, user, alreadyRead.ID)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	a := env.create(t, user)
	b := env.create(t, user)
	foreign := env.create(t, other)

	env.clock.Advance(time.Minute)

	updated, err := env.svc.MarkAllRead(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	stored, err := env.store.Get(ctx, user, alreadyRead.ID)
	require.NoError(t, err)
	assert.True(t, stored.ReadAt.Equal(t0))

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		stored, err := env.store.Get(ctx, user, id)
		require.NoError(t, err)
		require.NotNil(t, stored.ReadAt)
		assert.True(t, stored.ReadAt.Equal(t0.Add(2*time.Minute)))
		assert.True(t, stored.DeletionDeadline.Equal(t0.Add(7*time.Minute)))
	}

	untouched, err := env.store.Get(ctx, other, foreign.ID)
	require.NoError(t, err)
	assert.Nil(t, untouched.ReadAt)

	updated, err = env.svc.MarkAllRead(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		user := uuid.New()
		n := env.create(t, user)

		require.NoError(t, env.svc.Delete(ctx, user, n.ID))
		require.NoError(t, env.svc.Delete(ctx, user, n.ID))

		list, err := env.svc.List(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("unread notification", func(t *testing.T) {
		env := newTestEnv(t)
		user := uuid.New()
		n := env.create(t, user)

		require.NoError(t, env.svc.Delete(ctx, user, n.ID))

		_, err := env.store.Get(ctx, user, n.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("another recipient's notification is untouched", func(t *testing.T) {
		env := newTestEnv(t)
		owner, intruder := uuid.New(), uuid.New()
		n := env.create(t, owner)

		require.NoError(t, env.svc.Delete(ctx, intruder, n.ID))

		_, err := env.store.Get(ctx, owner, n.ID)
		assert.NoError(t, err)
	})

	t.Run("already swept", func(t *testing.T) {
		env := newTestEnv(t)
		user := uuid.New()
		n := env.create(t, user)
		_, err := env.svc.MarkRead(ctx, user, n.ID)
		require.NoError(t, err)

		env.clock.Advance(6 * time.Minute)
		_, err = env.svc.Sweep(ctx)
		require.NoError(t, err)

		assert.NoError(t, env.svc.Delete(ctx, user, n.ID))
	})
}

func TestDeleteAllRead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := uuid.New()

	var ids []uuid.UUID
	for range 5 {
		ids = append(ids, env.create(t, user).ID)
		env.clock.Advance(time.Second)
	}
	for _, id := range ids[:3] {
		_, err := env.svc.MarkRead(ctx, user, id)
		require.NoError(t, err)
	}

	removed, err := env.svc.DeleteAllRead(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	list, err := env.svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[4], list[0].ID)
	assert.Equal(t, ids[3], list[1].ID)
	for _, v := range list {
		assert.Nil(t, v.ReadAt)
		assert.Nil(t, v.SecondsUntilDeletion)
	}

	removed, err = env.svc.DeleteAllRead(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestConcurrentMarkReadAndDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := uuid.New()

	var ids []uuid.UUID
	for range 50 {
		ids = append(ids, env.create(t, user).ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := env.svc.MarkRead(ctx, user, id)
			if err != nil {
				assert.ErrorIs(t, err, ErrNotFound)
			}
		}(id)
		go func(id uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, env.svc.Delete(ctx, user, id))
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		_, err := env.store.Get(ctx, user, id)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}

	list, err := env.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListCache(t *testing.T) {
	ctx := context.Background()

	t.Run("mutations are visible immediately", func(t *testing.T) {
		env := newTestEnv(t)
		user := uuid.New()
		n := env.create(t, user)

		list, err := env.svc.List(ctx, user)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Len(t, env.mr.Keys(), 2)

		_, err = env.svc.MarkRead(ctx, user, n.ID)
		require.NoError(t, err)

		list, err = env.svc.List(ctx, user)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.NotNil(t, list[0].ReadAt)

		require.NoError(t, env.svc.Delete(ctx, user, n.ID))

		list, err = env.svc.List(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("countdown is derived after cache read", func(t *testing.T) {
		env := newTestEnv(t)
		user := uuid.New()
		n := env.create(t, user)
		_, err := env.svc.MarkRead(ctx, user, n.ID)
		require.NoError(t, err)

		list, err := env.svc.List(ctx, user)
		require.NoError(t, err)
		assert.EqualValues(t, 300, *list[0].SecondsUntilDeletion)

		env.clock.Advance(time.Minute)

		list, err = env.svc.List(ctx, user)
		require.NoError(t, err)
		assert.EqualValues(t, 240, *list[0].SecondsUntilDeletion)
	})

	t.Run("version keys expire", func(t *testing.T) {
		env := newTestEnv(t)
		user := uuid.New()
		env.create(t, user)

		_, err := env.svc.List(ctx, user)
		require.NoError(t, err)

		ttl := env.mr.TTL(redisrepo.UserNotificationsVersionKey(user.String()))
		assert.Equal(t, MIN_VERSION_TTL, ttl)
		assert.Greater(t, ttl, testConfig.ListCacheTTL)

		env.mr.FastForward(ttl)
		assert.Empty(t, env.mr.Keys())

		list, err := env.svc.List(ctx, user)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("redis outage falls through to the store", func(t *testing.T) {
		env := newTestEnv(t)
		user := uuid.New()
		env.create(t, user)

		env.mr.SetError("LOADING redis is loading the dataset")

		list, err := env.svc.List(ctx, user)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	svc := newTestEnvWith(t, zaptest.NewLogger(t), failingStore{err: errConnRefused}, testConfig, clockwork.NewFakeClockAt(t0))
	user := uuid.New()

	_, err := svc.CreateNotification(ctx, user, model.KindGeneric, "hi", nil)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.List(ctx, user)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.MarkRead(ctx, user, uuid.New())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.MarkAllRead(ctx, user)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.ErrorIs(t, svc.Delete(ctx, user, uuid.New()), ErrStoreUnavailable)

	_, err = svc.DeleteAllRead(ctx, user)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.Sweep(ctx)
	assert.ErrorIs(t, err, errConnRefused)
}
