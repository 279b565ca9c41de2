package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/graph-builder/pkg/ports"
)

func newTestStore(t *testing.T, ttl time.Duration) (*DocumentStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewDocumentStore(client, ttl, zap.NewNop()), mr
}

func TestDocumentStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t, 0)

	_, err := store.Get(context.Background(), "graph-builder:graph")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestDocumentStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, 0)

	require.NoError(t, store.Put(ctx, "graph-builder:graph", `{"nodes":[],"edges":[]}`))

	doc, err := store.Get(ctx, "graph-builder:graph")
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":[],"edges":[]}`, doc)

	raw, err := mr.Get("graph-builder:graph")
	require.NoError(t, err)
	assert.Equal(t, doc, raw)
}

func TestDocumentStore_TTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, time.Minute)

	require.NoError(t, store.Put(ctx, "graph-builder:graph-data", "{}"))
	assert.Equal(t, time.Minute, mr.TTL("graph-builder:graph-data"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "graph-builder:graph-data")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestDocumentStore_ExternalWrite(t *testing.T) {
	store, mr := newTestStore(t, 0)

	require.NoError(t, mr.Set("upstream", "payload"))

	doc, err := store.Get(context.Background(), "upstream")
	require.NoError(t, err)
	assert.Equal(t, "payload", doc)
}
