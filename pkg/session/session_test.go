package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisStoreTest creates a miniredis instance and returns the store and cleanup function
func setupRedisStoreTest(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewRedisClient(RedisConfig{URL: "redis://" + mr.Addr(), MaxRetries: 1, PoolSize: 4})
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create Redis client: %v", err)
	}

	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return NewRedisStore(client, ttl), mr, cleanup
}

func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	created, err := store.Create(ctx, 42, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(42), created.AccountID)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.AccountID, got.AccountID)
	assert.Equal(t, "alice", got.Username)

	other, err := store.Create(ctx, 43, "bob")
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, created.ID))
	_, err = store.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, created.ID))
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore(10, time.Minute))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(10, 50*time.Millisecond)
	sess, err := store.Create(context.Background(), 1, "alice")
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)
	_, err = store.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_Eviction(t *testing.T) {
	store := NewMemoryStore(2, time.Minute)
	ctx := context.Background()

	first, err := store.Create(ctx, 1, "a")
	require.NoError(t, err)
	_, err = store.Create(ctx, 2, "b")
	require.NoError(t, err)
	_, err = store.Create(ctx, 3, "c")
	require.NoError(t, err)

	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore(10, time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, 1, "alice")
	require.NoError(t, err)
	sess.AccountID = 999

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.AccountID)
}

func TestRedisStore(t *testing.T) {
	store, _, cleanup := setupRedisStoreTest(t, time.Minute)
	defer cleanup()

	runStoreContract(t, store)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr, cleanup := setupRedisStoreTest(t, time.Minute)
	defer cleanup()

	ctx := context.Background()
	sess, err := store.Create(ctx, 1, "alice")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+sess.ID))

	mr.FastForward(30 * time.Second)
	_, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	// Get restarts the idle timer
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+sess.ID))

	mr.FastForward(61 * time.Second)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	store, mr, cleanup := setupRedisStoreTest(t, time.Minute)
	defer cleanup()

	require.NoError(t, mr.Set(redisKeyPrefix+"bad", "{not json"))
	_, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	client, err := NewRedisClient(RedisConfig{URL: "not-a-url"})
	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis URL")
}
