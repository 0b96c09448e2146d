package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type board struct {
	Period string   `json:"period"`
	Names  []string `json:"names"`
}

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var got board
	ok, err := c.Get(ctx, LeaderboardKey("2024-06"), &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := board{Period: "2024-06", Names: []string{"alice", "bob"}}
	require.NoError(t, c.Set(ctx, LeaderboardKey("2024-06"), want, time.Minute))

	ok, err = c.Get(ctx, "leaderboard:2024-06", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, LeaderboardKey("2024-06"), LeaderboardKey("2024-07")))
	assert.Equal(t, 0, c.Len())
}

func TestMemory_StoresCopies(t *testing.T) {
	// GIVEN: A cached value
	// WHEN: The caller mutates its original afterwards
	// THEN: The cached copy is unchanged

	ctx := context.Background()
	c := NewMemory()
	value := board{Names: []string{"alice"}}
	require.NoError(t, c.Set(ctx, "k", value, 0))

	value.Names[0] = "mallory"

	var got board
	_, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, got.Names)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.Set(ctx, "short", board{}, time.Minute))
	require.NoError(t, c.Set(ctx, "forever", board{}, 0))

	clock = clock.Add(2 * time.Minute)

	var got board
	ok, err := c.Get(ctx, "short", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Get(ctx, "forever", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}

	require.NoError(t, c.Set(ctx, "k", board{}, time.Minute))
	ok, err := c.Get(ctx, "k", &board{})
	require.NoError(t, err)
	assert.False(t, ok)
}

// Runs against a real server when REDIS_ADDR is set.
func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	r, err := NewRedis(ctx, RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer r.Close()

	key := LeaderboardKey("test-" + time.Now().Format("150405.000000"))
	want := board{Period: "2024-06", Names: []string{"alice"}}
	require.NoError(t, r.Set(ctx, key, want, time.Minute))

	var got board
	ok, err := r.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, r.Delete(ctx, key))
	ok, err = r.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
