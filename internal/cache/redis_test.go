package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	c, err := NewRedis(ctx, RedisConfig{Addr: endpoint}, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	runContract(t, c)

	t.Run("key prefix", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "pfx", "https://example.com", time.Minute))

		raw := redis.NewClient(&redis.Options{Addr: endpoint})
		defer raw.Close()
		got, err := raw.Get(ctx, "url:pfx").Result()
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got)
	})
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedis(ctx, RedisConfig{Addr: "127.0.0.1:1"}, time.Minute)
	assert.Error(t, err)
}
