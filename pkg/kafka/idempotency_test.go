package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(50 * time.Millisecond)

	ok, err := s.Contains(ctx, "e-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Add(ctx, "e-1"))
	ok, _ = s.Contains(ctx, "e-1")
	assert.True(t, ok)
	assert.Equal(t, 1, s.Len())

	time.Sleep(60 * time.Millisecond)
	ok, _ = s.Contains(ctx, "e-1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	s := NewRedisIdempotencyStore(client, "idem:", time.Hour)

	ok, err := s.Contains(ctx, "e-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Add(ctx, "e-1"))
	ok, err = s.Contains(ctx, "e-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("idem:e-1"))
	assert.Equal(t, time.Hour, mr.TTL("idem:e-1"))

	mr.FastForward(2 * time.Hour)
	ok, _ = s.Contains(ctx, "e-1")
	assert.False(t, ok)
}

func TestRedisIdempotencyStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisIdempotencyStore(client, "idem:", time.Hour).Contains(context.Background(), "e-1")
	assert.Error(t, err)
}

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Hour)
	calls := 0
	h := IdempotentHandler(store, func(ctx context.Context, e *Event) error {
		calls++
		return nil
	}, testLogger())

	e := &Event{EventID: "e-1", EventType: "inventory.depleted"}
	require.NoError(t, h(ctx, e))
	require.NoError(t, h(ctx, e))
	assert.Equal(t, 1, calls)

	require.NoError(t, h(ctx, &Event{EventType: "inventory.depleted"}))
	require.NoError(t, h(ctx, &Event{EventType: "inventory.depleted"}))
	assert.Equal(t, 3, calls, "events without an id are never deduplicated")
}

func TestIdempotentHandler_FailureIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Hour)
	h := IdempotentHandler(store, func(ctx context.Context, e *Event) error {
		return errBroken
	}, testLogger())

	assert.ErrorIs(t, h(ctx, &Event{EventID: "e-2"}), errBroken)
	ok, _ := store.Contains(ctx, "e-2")
	assert.False(t, ok)
}

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) { return false, errBroken }
func (failingStore) Add(context.Context, string) error { return errBroken }

func TestIdempotentHandler_StoreOutageStillProcesses(t *testing.T) {
	calls := 0
	h := IdempotentHandler(failingStore{}, func(ctx context.Context, e *Event) error {
		calls++
		return nil
	}, testLogger())

	require.NoError(t, h(context.Background(), &Event{EventID: "e-3"}))
	assert.Equal(t, 1, calls)
}
