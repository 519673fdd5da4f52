package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLockStore struct {
	values map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (s *fakeLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func TestLockAcquireAndRelease(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "gt:lock:cron", time.Minute)
	require.NoError(t, err)

	acquired, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, lock.Release(context.Background()))
	_, ok := store.values["gt:lock:cron"]
	assert.False(t, ok)
}

func TestLockIsExclusive(t *testing.T) {
	store := newFakeLockStore()
	first, err := NewRedisLock(store, "gt:lock:cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "gt:lock:cron", time.Minute)
	require.NoError(t, err)

	acquired, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, acquired)
}

func TestReleaseLeavesForeignOwner(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "gt:lock:cron", time.Minute)
	require.NoError(t, err)

	acquired, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, acquired)

	// lease expired and another replica took the key
	store.values["gt:lock:cron"] = "someone-else"
	require.NoError(t, lock.Release(context.Background()))
	assert.Equal(t, "someone-else", store.values["gt:lock:cron"])
}

func TestReleaseWithoutAcquireIsNoOp(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "gt:lock:cron", time.Minute)
	require.NoError(t, err)
	require.NoError(t, lock.Release(context.Background()))
}
