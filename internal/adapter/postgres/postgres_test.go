package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

// openTestDB connects to STOREFRONT_TEST_DATABASE_URL or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("STOREFRONT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_DATABASE_URL not set")
	}
	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCartRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	key := domain.CartKey(uuid.NewString())
	t.Cleanup(func() { _ = db.DeleteCart(ctx, key) })

	c := domain.NewCart()
	c.AddItem(domain.Item{ID: 3, Name: "Bread", UnitPrice: decimal.RequireFromString("45.25"), Unit: "1 pc"})
	c.AddItem(domain.Item{ID: 3, Name: "Bread", UnitPrice: decimal.RequireFromString("45.25"), Unit: "1 pc"})
	require.NoError(t, db.SaveCart(ctx, key, c.Snapshot()))
	require.NoError(t, db.SaveCart(ctx, key, c.Snapshot()))

	got, err := db.LoadCart(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.TotalItems)
	assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString("90.5")))

	require.NoError(t, db.DeleteCart(ctx, key))
	got, err = db.LoadCart(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionEntries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	sid := uuid.NewString()
	t.Cleanup(func() { _ = db.DeleteEntries(ctx, sid) })

	require.NoError(t, db.PutEntry(ctx, sid, domain.SessionEntry{Name: domain.EntryAccess, Value: "a", ExpiresAt: time.Now().Add(-time.Second)}))
	require.NoError(t, db.PutEntry(ctx, sid, domain.SessionEntry{Name: domain.EntryRefresh, Value: "r", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, db.PutEntry(ctx, sid, domain.SessionEntry{Name: domain.EntryUser, Value: "{}"}))

	e, err := db.GetEntry(ctx, sid, domain.EntryAccess)
	require.NoError(t, err)
	assert.Nil(t, e, "expired entry reads as absent")

	e, err = db.GetEntry(ctx, sid, domain.EntryRefresh)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "r", e.Value)

	require.NoError(t, db.DeleteEntries(ctx, sid, domain.EntryRefresh, domain.EntryUser))
	e, err = db.GetEntry(ctx, sid, domain.EntryUser)
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NoError(t, db.DeleteExpired(ctx))
}
