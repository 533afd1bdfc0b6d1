package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]string
	err    error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing", func(t *testing.T) {
		store := newRedisStoreFromClient(&fakeRedis{values: map[string]string{}}, "portal-")
		_, err := store.Get(ctx, "token")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Prefixed", func(t *testing.T) {
		db := &fakeRedis{values: map[string]string{}}
		store := newRedisStoreFromClient(db, "portal-")

		require.NoError(t, store.Set(ctx, "token", "abc"))
		assert.Equal(t, "abc", db.values["portal-token"])

		v, err := store.Get(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "abc", v)
	})

	t.Run("Error", func(t *testing.T) {
		store := newRedisStoreFromClient(&fakeRedis{err: errors.New("expected error")}, "")
		_, err := store.Get(ctx, "token")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrNotFound)
	})
}
