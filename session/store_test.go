package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionHasIDAndExpiry(t *testing.T) {
	sess := New("64f1c0ffee0000000000abcd", 2, time.Hour)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "64f1c0ffee0000000000abcd", sess.UserID)
	assert.Equal(t, 2, sess.CurrentSignupStep)
	assert.True(t, sess.ExpiresAt.After(time.Now()))

	other := New("64f1c0ffee0000000000abcd", 2, time.Hour)
	assert.NotEqual(t, sess.ID, other.ID)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := New("user-1", 2, time.Hour)
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.CurrentSignupStep, got.CurrentSignupStep)

	// Updates overwrite in place.
	sess.CurrentSignupStep = 3
	require.NoError(t, store.Save(ctx, sess))
	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentSignupStep)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiredSessionIsGone(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := New("user-1", 2, -time.Minute)
	require.NoError(t, store.Save(ctx, sess))

	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreGetUnknownID(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	_, store := newRedisStore(t)
	ctx := context.Background()

	sess := New("user-1", 4, time.Hour)
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, 4, got.CurrentSignupStep)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreKeysExpire(t *testing.T) {
	mr, store := newRedisStore(t)
	ctx := context.Background()

	sess := New("user-1", 2, time.Minute)
	require.NoError(t, store.Save(ctx, sess))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreGetUnknownID(t *testing.T) {
	_, store := newRedisStore(t)
	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrNotFound)
}
