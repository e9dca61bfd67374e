package revocations_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/authkeeper/internal/server/testdb"
)

func TestSQLite_RevokeIsVisibleAndIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := revocations.NewSQLiteRepository(testdb.SQLite(t))
	exp := time.Now().Add(time.Hour)

	revoked, err := repo.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "tok-1", exp))
	require.NoError(t, repo.Revoke(ctx, "tok-1", exp))

	revoked, err = repo.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.IsRevoked(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestSQLite_PurgeRemovesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	repo := revocations.NewSQLiteRepository(testdb.SQLite(t))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Revoke(ctx, "old", now.Add(-time.Minute)))
	require.NoError(t, repo.Revoke(ctx, "edge", now))
	require.NoError(t, repo.Revoke(ctx, "live", now.Add(time.Minute)))

	n, err := repo.Purge(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for tok, want := range map[string]bool{"old": false, "edge": false, "live": true} {
		got, err := repo.IsRevoked(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, want, got, tok)
	}
}
