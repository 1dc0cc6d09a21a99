package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	projDomain "github.com/davicafu/walletflow/internal/projection/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSQLite(db))
	return db
}

func TestViewRepo_SaveAndGet(t *testing.T) {
	repo := NewViewRepoSQLite(setupTestDB(t))
	ctx := context.Background()

	view := &projDomain.WalletView{
		WalletID:  "w1",
		Balance:   100,
		Exists:    true,
		Version:   2,
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Save(ctx, view))

	got, err := repo.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Balance)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.Exists)
}

func TestViewRepo_GetMissing(t *testing.T) {
	repo := NewViewRepoSQLite(setupTestDB(t))

	_, err := repo.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, projDomain.ErrViewNotFound)
}

// El upsert es monótono: una versión vieja jamás pisa a una más nueva.
func TestViewRepo_MonotonicUpsert(t *testing.T) {
	repo := NewViewRepoSQLite(setupTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Save(ctx, &projDomain.WalletView{
		WalletID: "w1", Balance: 100, Exists: true, Version: 3, UpdatedAt: now,
	}))

	// Reentrega con versión anterior: se ignora.
	require.NoError(t, repo.Save(ctx, &projDomain.WalletView{
		WalletID: "w1", Balance: 50, Exists: true, Version: 2, UpdatedAt: now,
	}))

	got, err := repo.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Balance)
	assert.Equal(t, int64(3), got.Version)

	// La versión igual tampoco reescribe.
	require.NoError(t, repo.Save(ctx, &projDomain.WalletView{
		WalletID: "w1", Balance: 999, Exists: true, Version: 3, UpdatedAt: now,
	}))
	got, _ = repo.Get(ctx, "w1")
	assert.Equal(t, int64(100), got.Balance)

	// Una versión más nueva sí.
	require.NoError(t, repo.Save(ctx, &projDomain.WalletView{
		WalletID: "w1", Balance: 130, Exists: true, Version: 4, UpdatedAt: now,
	}))
	got, _ = repo.Get(ctx, "w1")
	assert.Equal(t, int64(130), got.Balance)
	assert.Equal(t, int64(4), got.Version)
}

func TestViewRepo_ListOrdersByBalance(t *testing.T) {
	repo := NewViewRepoSQLite(setupTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC()
	for _, v := range []*projDomain.WalletView{
		{WalletID: "a", Balance: 10, Exists: true, Version: 1, UpdatedAt: now},
		{WalletID: "b", Balance: 300, Exists: true, Version: 1, UpdatedAt: now},
		{WalletID: "c", Balance: 200, Exists: true, Version: 1, UpdatedAt: now},
	} {
		require.NoError(t, repo.Save(ctx, v))
	}

	views, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "b", views[0].WalletID)
	assert.Equal(t, "c", views[1].WalletID)
}
