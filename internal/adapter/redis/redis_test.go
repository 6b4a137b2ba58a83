package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("STOREFRONT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STOREFRONT_TEST_REDIS_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	s := NewStore(client, "storefront-test:"+uuid.NewString()+":")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreCart(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := domain.CartKey("v1")

	got, err := s.LoadCart(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	c := domain.NewCart()
	c.AddItem(domain.Item{ID: 9, Name: "Curd", UnitPrice: decimal.RequireFromString("30")})
	require.NoError(t, s.SaveCart(ctx, key, c.Snapshot()))

	got, err = s.LoadCart(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.TotalItems)
	assert.Equal(t, domain.CartSnapshotVersion, got.Version)

	require.NoError(t, s.DeleteCart(ctx, key))
	got, err = s.LoadCart(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreEntries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutEntry(ctx, "sid", domain.SessionEntry{Name: domain.EntryAccess, Value: "a", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, s.PutEntry(ctx, "sid", domain.SessionEntry{Name: domain.EntryRefresh, Value: "r", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, s.PutEntry(ctx, "sid", domain.SessionEntry{Name: domain.EntryUser, Value: "u"}))

	e, err := s.GetEntry(ctx, "sid", domain.EntryAccess)
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = s.GetEntry(ctx, "sid", domain.EntryRefresh)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "r", e.Value)

	ttl, err := s.client.TTL(ctx, s.entryKey("sid", domain.EntryRefresh)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, s.DeleteEntries(ctx, "sid"))
	for _, n := range []string{domain.EntryRefresh, domain.EntryUser} {
		e, err := s.GetEntry(ctx, "sid", n)
		require.NoError(t, err)
		assert.Nil(t, e, n)
	}
}
