package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/andrebq/secrets/users"
	"github.com/stretchr/testify/require"
)

// RunStoreSuite checks the behaviour every users.Store must share.
// The store must be empty.
func RunStoreSuite(t *testing.T, store users.Store) {
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		u := &users.User{Login: "  Bob@Example.com ", Password: "sealed"}
		require.NoError(t, store.Create(ctx, u))
		require.NotEmpty(t, u.ID)
		require.Equal(t, "bob@example.com", u.Login)

		byLogin, err := store.FindByLogin(ctx, "BOB@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, byLogin.ID)
		require.Equal(t, "sealed", byLogin.Password)

		byID, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "bob@example.com", byID.Login)
		require.False(t, byID.Federated())
	})

	t.Run("login is unique", func(t *testing.T) {
		err := store.Create(ctx, &users.User{Login: "bob@example.com", Password: "other"})
		require.True(t, errors.Is(err, users.LoginTaken{Login: "bob@example.com"}), "got %v", err)
	})

	t.Run("missing users", func(t *testing.T) {
		_, err := store.FindByLogin(ctx, "nobody@example.com")
		require.ErrorAs(t, err, &users.NotFound{})
		_, err = store.FindByID(ctx, "does-not-exist")
		require.ErrorAs(t, err, &users.NotFound{})
		err = store.SetSecret(ctx, "does-not-exist", "psst")
		require.ErrorAs(t, err, &users.NotFound{})
	})

	t.Run("federated identities", func(t *testing.T) {
		first, err := store.FindOrCreateBySubject(ctx, "google", "g-1", "carol@example.com")
		require.NoError(t, err)
		require.True(t, first.Federated())
		require.Equal(t, "carol@example.com", first.Login)

		again, err := store.FindOrCreateBySubject(ctx, "google", "g-1", "carol@example.com")
		require.NoError(t, err)
		require.Equal(t, first.ID, again.ID)

		// email already used by a local account
		clash, err := store.FindOrCreateBySubject(ctx, "google", "g-2", "bob@example.com")
		require.NoError(t, err)
		require.Equal(t, users.FederatedLogin("google", "g-2"), clash.Login)

		noEmail, err := store.FindOrCreateBySubject(ctx, "google", "g-3", "")
		require.NoError(t, err)
		require.Equal(t, users.FederatedLogin("google", "g-3"), noEmail.Login)
	})

	t.Run("secrets", func(t *testing.T) {
		bob, err := store.FindByLogin(ctx, "bob@example.com")
		require.NoError(t, err)
		carol, err := store.FindByLogin(ctx, "carol@example.com")
		require.NoError(t, err)
		require.NoError(t, store.SetSecret(ctx, bob.ID, "I like pineapple pizza"))
		require.NoError(t, store.SetSecret(ctx, carol.ID, "I never read the docs"))

		secrets, err := store.ListSecrets(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"I like pineapple pizza", "I never read the docs"}, secrets)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, store.Ping(ctx))
	})
}
