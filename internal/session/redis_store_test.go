package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore("not a url")
	assert.Error(t, err)
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()
	uid := bson.NewObjectID()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.SaveRefreshSession(ctx, "hash-1", uid, time.Now().Add(24*time.Hour)))
	assert.True(t, s.Exists("refresh:hash-1"))

	got, err := store.LookupRefreshSession(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, uid, got)
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRefreshSession(ctx, "short", bson.NewObjectID(), time.Now().Add(time.Minute)))
	s.FastForward(2 * time.Minute)

	_, err := store.LookupRefreshSession(ctx, "short")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSaveRejectsPastExpiry(t *testing.T) {
	store, _ := setupTestRedis(t)
	err := store.SaveRefreshSession(context.Background(), "past", bson.NewObjectID(), time.Now().Add(-time.Second))
	assert.Error(t, err)
}

func TestRevokeRefreshSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRefreshSession(ctx, "gone", bson.NewObjectID(), time.Now().Add(time.Hour)))
	require.NoError(t, store.RevokeRefreshSession(ctx, "gone"))
	assert.False(t, s.Exists("refresh:gone"))

	_, err := store.LookupRefreshSession(ctx, "gone")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	// revoking twice is harmless
	assert.NoError(t, store.RevokeRefreshSession(ctx, "gone"))
}
