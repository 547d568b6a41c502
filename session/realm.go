package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andrebq/secrets/internal/logutil"
	"github.com/google/uuid"
)

const (
	CookieName = "secrets_session"
	DefaultTTL = 24 * time.Hour
)

type (
	Realm struct {
		store          Store
		ttl            time.Duration
		insecureCookie bool
		loginPath      string
	}

	ctxKey byte
)

var (
	userIDKey = ctxKey(1)
)

// NewRealm returns a Realm issuing cookies valid for ttl. allowHTTPCookie
// drops the Secure flag, which is only acceptable during local development.
func NewRealm(store Store, ttl time.Duration, allowHTTPCookie bool) *Realm {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Realm{
		store:          store,
		ttl:            ttl,
		insecureCookie: allowHTTPCookie,
		loginPath:      "/login",
	}
}

// Start logs userID in. Any session the request already carried is
// dropped so tokens are never reused across logins.
func (s *Realm) Start(w http.ResponseWriter, r *http.Request, userID string) error {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		_ = s.store.Delete(r.Context(), c.Value)
	}
	token := uuid.NewString()
	err := s.store.Save(r.Context(), token, userID, s.ttl)
	if err != nil {
		return fmt.Errorf("unable to start session for %v, cause %w", userID, err)
	}
	http.SetCookie(w, s.cookie(token, int(s.ttl/time.Second)))
	return nil
}

// Current returns the user bound to the request session, if any.
func (s *Realm) Current(r *http.Request) (string, bool, error) {
	if id, ok := UserID(r.Context()); ok {
		return id, true, nil
	}
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false, nil
	}
	return s.store.Lookup(r.Context(), c.Value)
}

// End removes the session from the store and asks the browser to
// forget the cookie.
func (s *Realm) End(w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, cerr := r.Cookie(CookieName); cerr == nil && c.Value != "" {
		err = s.store.Delete(r.Context(), c.Value)
	}
	http.SetCookie(w, s.cookie("", -1))
	return err
}

// Protect only lets requests with a valid session reach sensitive,
// everything else is sent to the login page.
func (s *Realm) Protect(sensitive http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, found, err := s.Current(r)
		if err != nil {
			log := logutil.GetOrDefault(r.Context())
			log.Error().Err(err).Msg("Unexpected error when checking for session in Session store")
		}
		if !found {
			http.Redirect(w, r, s.loginPath, http.StatusSeeOther)
			return
		}
		sensitive.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (s *Realm) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the user id placed in ctx by Protect.
func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok && v != ""
}
