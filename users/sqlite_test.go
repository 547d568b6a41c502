package users_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrebq/secrets/internal/testutil"
	"github.com/andrebq/secrets/users"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, cleanup := testutil.AcquireUserStore(ctx, t, "suite")
	defer cleanup()
	testutil.RunStoreSuite(t, store)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "nested", "users.db")

	store, err := users.OpenSQLite(ctx, file)
	require.NoError(t, err)
	u := &users.User{Login: "dave", Password: "x"}
	require.NoError(t, store.Create(ctx, u))
	require.NoError(t, store.Close())

	_, err = os.Stat(file)
	require.NoError(t, err)

	store, err = users.OpenSQLite(ctx, file)
	require.NoError(t, err)
	defer store.Close()
	found, err := store.FindByLogin(ctx, "dave")
	require.NoError(t, err)
	require.Equal(t, u.ID, found.ID)
	require.Equal(t, u.CreatedAt, found.CreatedAt)
}
