package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type list struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	c := New(Config{TTL: time.Minute})
	_, isLocal := c.(*LocalCache)
	require.True(t, isLocal)

	_, found := c.Get(ctx, "missing")
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, c, "lists:mailchimp", []list{{ID: "a1", Name: "News"}}, 0))

	var got []list
	require.True(t, GetJSON(ctx, c, "lists:mailchimp", &got))
	assert.Equal(t, []list{{ID: "a1", Name: "News"}}, got)

	require.NoError(t, c.Delete(ctx, "lists:mailchimp", "lists:other"))
	assert.False(t, GetJSON(ctx, c, "lists:mailchimp", &got))
}

func TestLocalCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestTwoTierCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := New(Config{TTL: 5 * time.Minute, KeyPrefix: "test:", RedisClient: client})
	_, isTwoTier := c.(*TwoTierCache)
	require.True(t, isTwoTier)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, 5*time.Minute, mr.TTL("test:k"))

	// A second instance sharing Redis sees the value
	other := New(Config{TTL: 5 * time.Minute, KeyPrefix: "test:", RedisClient: client})
	val, found := other.Get(ctx, "k")
	require.True(t, found)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, mr.Exists("test:k"))
	_, found = c.Get(ctx, "k")
	assert.False(t, found)
}

func TestRedisCacheTreatsErrorsAsMisses(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(client, "test:", time.Minute)
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	mr.Close()
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}
