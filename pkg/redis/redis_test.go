package redis

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableClient points at a closed port so every command fails fast.
func unreachableClient(t *testing.T) *redis.Client {
	c := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_DegradesToMiss(t *testing.T) {
	cache := NewCache(unreachableClient(t), time.Minute)
	ctx := context.Background()

	var dest []string
	assert.False(t, cache.Get(ctx, "products:list:all", &dest))
	assert.Nil(t, dest)

	assert.NotPanics(t, func() {
		cache.Set(ctx, "products:list:all", []string{"a"})
		cache.InvalidatePrefix(ctx, "products:list:")
	})
}

func TestCache_SetRejectsUnencodableValue(t *testing.T) {
	cache := NewCache(unreachableClient(t), time.Minute)
	assert.NotPanics(t, func() {
		cache.Set(context.Background(), "k", make(chan int))
	})
}

func TestLocker_ReportsBackendErrors(t *testing.T) {
	locker := NewLocker(unreachableClient(t), time.Second)

	unlock, acquired, err := locker.TryLock(context.Background(), "product:1:variants")
	require.Error(t, err)
	assert.False(t, acquired)
	assert.Nil(t, unlock)
	assert.Contains(t, err.Error(), "product:1:variants")
}

func TestClose_WithoutInit(t *testing.T) {
	client = nil
	assert.NoError(t, Close())
	assert.Nil(t, GetClient())
}

func TestInit_UnreachableKeepsNoClient(t *testing.T) {
	client = nil
	err := Init(&config.RedisConfig{Host: "127.0.0.1", Port: "1"})
	require.Error(t, err)
	assert.Nil(t, GetClient())
}
