package lock_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/lock"
)

func newLocker(t *testing.T) lock.CartLocker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.CartLocker{R: client, TTL: time.Second}
}

func TestWithLockFailsFastOnContention(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	acquired := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- locker.WithLock(ctx, "token-a", func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()

	<-acquired
	err := locker.WithLock(ctx, "token-a", func(context.Context) error {
		t.Error("second body must not run while first holds the lock")
		return nil
	})
	require.ErrorIs(t, err, lock.ErrCartLocked)

	// A different token proceeds without contention.
	ran := false
	require.NoError(t, locker.WithLock(ctx, "token-b", func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)

	close(release)
	require.NoError(t, <-done)
}

func TestWithLockReleasesOnError(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := locker.WithLock(ctx, "token-a", func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	// The failed body must not leave the token locked.
	require.NoError(t, locker.WithLock(ctx, "token-a", func(context.Context) error { return nil }))
}

func TestWithLockSequentialReuse(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, locker.WithLock(ctx, "token-a", func(context.Context) error { return nil }))
	}
}

func TestWithLockLogsFailedRelease(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	var logs bytes.Buffer
	locker := lock.CartLocker{R: client, TTL: time.Second, Logger: zerolog.New(&logs)}

	// Closing the client inside the body makes the deferred release fail.
	err = locker.WithLock(context.Background(), "token-a", func(context.Context) error {
		return client.Close()
	})
	require.NoError(t, err)
	require.Contains(t, logs.String(), "release cart lock")
	require.Contains(t, logs.String(), "token-a")
}
