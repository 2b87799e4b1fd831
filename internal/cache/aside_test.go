package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	t.Parallel()
	store, mr := newTestStore(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *profile) func() error {
		return func() error {
			calls++
			*dest = profile{Name: "Asha", Count: calls}
			return nil
		}
	}

	var first profile
	require.NoError(t, store.Aside(ctx, ProfileKey(1), &first, ProfileTTL, fetch(&first)))
	var second profile
	require.NoError(t, store.Aside(ctx, ProfileKey(1), &second, ProfileTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("profile:1"))

	store.Invalidate(ctx, ProfileKey(1))
	var third profile
	require.NoError(t, store.Aside(ctx, ProfileKey(1), &third, ProfileTTL, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	t.Parallel()
	store, mr := newTestStore(t)

	var dest profile
	err := store.Aside(context.Background(), StoryKey(9), &dest, StoryTTL, func() error {
		return errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists("story:9"))
}

func TestAside_TTL(t *testing.T) {
	t.Parallel()
	store, mr := newTestStore(t)

	var dest profile
	require.NoError(t, store.Aside(context.Background(), StoryKey(3), &dest, time.Minute, func() error {
		dest = profile{Name: "x"}
		return nil
	}))
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("story:3"))
}

func TestStore_NilClient(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	calls := 0
	var dest profile
	for i := 0; i < 2; i++ {
		require.NoError(t, store.Aside(context.Background(), "k", &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
	store.Invalidate(context.Background(), "k")
}
