package session

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/require"
)

func TestProtect(t *testing.T) {
	store, err := InMemoryStore(time.Minute)
	require.NoError(t, err)
	realm := NewRealm(store, time.Minute, true)
	var count uint32
	var seen atomic.Value
	protected := realm.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint32(&count, 1)
		id, _ := UserID(r.Context())
		seen.Store(id)
		http.Error(w, "OK", http.StatusOK)
	}))

	apitest.Handler(protected).Get("/secrets").Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/login").
		End()
	apitest.Handler(protected).Get("/secrets").Cookie(CookieName, "forged").Expect(t).
		Status(http.StatusSeeOther).
		End()

	require.NoError(t, store.Save(context.Background(), "abc123", "user-1", time.Minute))
	apitest.Handler(protected).Get("/secrets").Cookie(CookieName, "abc123").Expect(t).
		Status(http.StatusOK).
		End()
	require.Equal(t, uint32(1), atomic.LoadUint32(&count), "protected endpoint should have been called only once")
	require.Equal(t, "user-1", seen.Load())
}

func TestStartAndEnd(t *testing.T) {
	store, err := InMemoryStore(time.Minute)
	require.NoError(t, err)
	realm := NewRealm(store, time.Hour, false)
	require.NoError(t, store.Save(context.Background(), "old-token", "user-1", time.Minute))

	login := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := realm.Start(w, r, "user-1"); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	res := apitest.Handler(login).Get("/login").Cookie(CookieName, "old-token").Expect(t).
		Status(http.StatusNoContent).
		CookiePresent(CookieName).
		End()

	var issued *http.Cookie
	for _, c := range res.Response.Cookies() {
		if c.Name == CookieName {
			issued = c
		}
	}
	require.NotNil(t, issued)
	require.True(t, issued.HttpOnly)
	require.True(t, issued.Secure)
	require.Equal(t, 3600, issued.MaxAge)
	require.NotEqual(t, "old-token", issued.Value)

	_, found, err := store.Lookup(context.Background(), "old-token")
	require.NoError(t, err)
	require.False(t, found, "starting a session should drop the previous one")

	userID, found, err := store.Lookup(context.Background(), issued.Value)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "user-1", userID)

	logout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, realm.End(w, r))
		w.WriteHeader(http.StatusNoContent)
	})
	apitest.Handler(logout).Get("/logout").Cookie(CookieName, issued.Value).Expect(t).
		Status(http.StatusNoContent).
		End()
	_, found, err = store.Lookup(context.Background(), issued.Value)
	require.NoError(t, err)
	require.False(t, found)
}
