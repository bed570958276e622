package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract exercises the behaviour every backend must share
func runContract(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		_, err := c.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "abc123", "https://example.com", time.Minute))
		got, err := c.Get(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got)
	})

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "lww", "https://one.example", time.Minute))
		require.NoError(t, c.Set(ctx, "lww", "https://two.example", time.Minute))
		got, err := c.Get(ctx, "lww")
		require.NoError(t, err)
		assert.Equal(t, "https://two.example", got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gone", "https://example.com", time.Minute))
		require.NoError(t, c.Delete(ctx, "gone"))
		_, err := c.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrMiss)

		// deleting a missing key is not an error
		assert.NoError(t, c.Delete(ctx, "never-set"))
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", "https://example.com", 50*time.Millisecond))
		assert.Eventually(t, func() bool {
			_, err := c.Get(ctx, "short")
			return err == ErrMiss
		}, 3*time.Second, 20*time.Millisecond)
	})
}

func TestMemory(t *testing.T) {
	c := NewMemory(time.Minute, time.Minute)
	defer c.Close()

	runContract(t, c)
}

func TestMemory_DefaultTTL(t *testing.T) {
	c := NewMemory(40*time.Millisecond, time.Hour)
	defer c.Close()
	ctx := context.Background()

	// ttl <= 0 falls back to the cache-wide default
	require.NoError(t, c.Set(ctx, "k", "https://example.com", 0))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemory_Close(t *testing.T) {
	c := NewMemory(0, 0)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}
