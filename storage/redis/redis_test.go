package redis_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oidcstorage "github.com/mediamonks/oidcflow/storage"
	"github.com/mediamonks/oidcflow/storage/redis"
)

// TestRedis exercises the Redis-backed store against a real server.
// Set OIDCFLOW_REDIS_ADDR to run it; otherwise it's skipped, mirroring
// the teacher's storage/redis test gating on DEX_REDIS_ADDR.
func TestRedis(t *testing.T) {
	addr := os.Getenv("OIDCFLOW_REDIS_ADDR")
	if addr == "" {
		t.Skip("OIDCFLOW_REDIS_ADDR not set, skipping")
	}

	cfg := &redis.Config{Addrs: []string{addr}}
	store := cfg.Open()
	defer store.Close()

	ctx := context.Background()
	const key = "test-client"
	defer store.Delete(ctx, key)

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, oidcstorage.ErrNotFound)

	require.NoError(t, store.Put(ctx, key, []byte("blob")))
	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), got)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, oidcstorage.ErrNotFound)
}
