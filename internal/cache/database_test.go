package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamsync/teamsync/internal/database/testutil"
	"github.com/teamsync/teamsync/internal/models"
)

func TestDatabaseStoreFixedWindow(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	current := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := NewDatabaseStore(db).WithClock(func() time.Time { return current })
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "join:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, time.Minute, ttl)

	current = current.Add(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "join:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
	require.Equal(t, 40*time.Second, ttl)

	current = current.Add(time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "join:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestDatabaseStorePurgeAndDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	current := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := NewDatabaseStore(db).WithClock(func() time.Time { return current })
	ctx := context.Background()

	_, _, err := store.IncrementWithTTL(ctx, "a", time.Minute)
	require.NoError(t, err)
	_, _, err = store.IncrementWithTTL(ctx, "b", time.Hour)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)

	require.NoError(t, store.Delete(ctx, "b"))
	purged, err = store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, purged)
}

func TestNilDatabaseStore(t *testing.T) {
	require.Nil(t, NewDatabaseStore(nil))

	var store *DatabaseStore
	_, _, err := store.IncrementWithTTL(context.Background(), "k", time.Second)
	require.Error(t, err)
}

func TestDatabaseStoreKeepsBucketsApart(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := store.IncrementWithTTL(ctx, "ratelimit:join:10.0.0.1|/api/join/:code", time.Minute)
		require.NoError(t, err)
	}
	count, _, err := store.IncrementWithTTL(ctx, "ratelimit:global:10.0.0.1|/api/join/:code", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	var counter models.RateCounter
	require.NoError(t, db.Take(&counter, "bucket = ?", "ratelimit:join:10.0.0.1|/api/join/:code").Error)
	require.Equal(t, int64(3), counter.Count)
}
