// Package web exposes the secrets application over http.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/andrebq/secrets/credentials"
	"github.com/andrebq/secrets/federated"
	"github.com/andrebq/secrets/internal/logutil"
	"github.com/andrebq/secrets/session"
	"github.com/andrebq/secrets/users"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"
)

const (
	MaxLoginLen = 254
	// bcrypt ignores anything after 72 bytes
	MaxPasswordLen = 72
	MaxSecretLen   = 1024

	stateCookieName = "secrets_oauth_state"
)

type (
	Config struct {
		Users  users.Store
		Scheme credentials.Scheme
		Realm  *session.Realm

		// Federated is optional, the /auth/google routes are only
		// registered when it is set.
		Federated *federated.Client

		// LoginRate limits POST /login and POST /register per client ip,
		// zero means DefaultLoginRate and rate.Inf disables it.
		LoginRate  rate.Limit
		LoginBurst int

		InsecureCookie bool
	}

	app struct {
		users          users.Store
		scheme         credentials.Scheme
		realm          *session.Realm
		federated      *federated.Client
		limiter        *clientLimiter
		pages          *renderer
		insecureCookie bool
	}

	ctxKey byte
)

var (
	DefaultLoginRate  = rate.Every(time.Second)
	DefaultLoginBurst = 20

	userKey = ctxKey(1)
)

func AsHandler(ctx context.Context, cfg Config) (http.Handler, error) {
	switch {
	case cfg.Users == nil:
		return nil, errors.New("web: a user store is required")
	case cfg.Scheme == nil:
		return nil, errors.New("web: a password scheme is required")
	case cfg.Realm == nil:
		return nil, errors.New("web: a session realm is required")
	}
	pages, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	if cfg.LoginRate == 0 {
		cfg.LoginRate = DefaultLoginRate
	}
	if cfg.LoginBurst <= 0 {
		cfg.LoginBurst = DefaultLoginBurst
	}
	a := &app{
		users:          cfg.Users,
		scheme:         cfg.Scheme,
		realm:          cfg.Realm,
		federated:      cfg.Federated,
		limiter:        newClientLimiter(cfg.LoginRate, cfg.LoginBurst),
		pages:          pages,
		insecureCookie: cfg.InsecureCookie,
	}

	log := logutil.GetOrDefault(ctx)
	log.Info().Str("scheme", a.scheme.Name()).Bool("federated", a.federated != nil).Msg("Configuring routes")

	router := httprouter.New()
	router.HandlerFunc("GET", "/", a.home)
	router.HandlerFunc("GET", "/login", a.show("login", "Login"))
	router.HandlerFunc("POST", "/login", a.login)
	router.HandlerFunc("GET", "/register", a.show("register", "Register"))
	router.HandlerFunc("POST", "/register", a.register)
	router.Handler("GET", "/secrets", a.authenticated(http.HandlerFunc(a.secrets)))
	router.Handler("GET", "/submit", a.authenticated(a.show("submit", "Submit a secret")))
	router.Handler("POST", "/submit", a.authenticated(http.HandlerFunc(a.submit)))
	router.HandlerFunc("GET", "/logout", a.logout)
	router.HandlerFunc("GET", "/healthz", a.healthz)
	if a.federated != nil {
		router.HandlerFunc("GET", "/auth/google", a.federatedStart)
		router.HandlerFunc("GET", "/auth/google/authentication", a.federatedCallback)
	}
	router.ServeFiles("/css/*filepath", cssFiles())
	return router, nil
}

func (a *app) home(w http.ResponseWriter, r *http.Request) {
	_, authenticated, err := a.realm.Current(r)
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Warn().Err(err).Msg("Unable to check session, rendering home as anonymous")
	}
	a.pages.render(w, r, "home", a.page("Secrets", authenticated))
}

func (a *app) show(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.pages.render(w, r, name, a.page(title, false))
	}
}

func (a *app) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)
	if !a.limiter.Allow(r) {
		http.Error(w, "too many attempts, try again later", http.StatusTooManyRequests)
		return
	}
	login, passwd, ok := readCredentials(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	defer passwd.Zero()
	u, err := a.users.FindByLogin(ctx, login)
	if errors.As(err, &users.NotFound{}) {
		log.Info().Str("login", login).Msg("Login attempt for unknown user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	} else if err != nil {
		a.fail(w, r, err, "unable to lookup user")
		return
	}
	if u.Password == "" {
		// federated users have no local password
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	match, err := a.scheme.Match(ctx, u.Password, passwd)
	if err != nil {
		a.fail(w, r, err, "unable to check password")
		return
	}
	if !match {
		log.Info().Str("user_id", u.ID).Msg("Invalid password")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	a.startSession(w, r, u)
}

func (a *app) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !a.limiter.Allow(r) {
		http.Error(w, "too many attempts, try again later", http.StatusTooManyRequests)
		return
	}
	login, passwd, ok := readCredentials(r)
	if !ok {
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}
	defer passwd.Zero()
	sealed, err := a.scheme.Seal(ctx, passwd)
	if err != nil {
		a.fail(w, r, err, "unable to protect password")
		return
	}
	u := &users.User{Login: login, Password: sealed}
	err = a.users.Create(ctx, u)
	if errors.As(err, &users.LoginTaken{}) {
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	} else if err != nil {
		a.fail(w, r, err, "unable to register user")
		return
	}
	log := logutil.GetOrDefault(ctx)
	log.Info().Str("user_id", u.ID).Str("scheme", a.scheme.Name()).Msg("User registered")
	a.startSession(w, r, u)
}

func (a *app) secrets(w http.ResponseWriter, r *http.Request) {
	secrets, err := a.users.ListSecrets(r.Context())
	if err != nil {
		a.fail(w, r, err, "unable to list secrets")
		return
	}
	p := a.page("Secrets", true)
	p.Secrets = secrets
	a.pages.render(w, r, "secrets", p)
}

func (a *app) submit(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	secret := strings.TrimSpace(r.PostFormValue("secret"))
	if secret == "" || utf8.RuneCountInString(secret) > MaxSecretLen {
		http.Redirect(w, r, "/submit", http.StatusSeeOther)
		return
	}
	err := a.users.SetSecret(r.Context(), u.ID, secret)
	if err != nil {
		a.fail(w, r, err, "unable to store secret")
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusSeeOther)
}

func (a *app) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.realm.End(w, r); err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Warn().Err(err).Msg("Unable to remove session from store")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *app) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := struct {
		Status string `json:"status"`
		Store  string `json:"store"`
	}{Status: "ok", Store: "ok"}
	code := http.StatusOK
	if err := a.users.Ping(ctx); err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Warn().Err(err).Msg("User store is not responding")
		status.Status, status.Store = "degraded", "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func (a *app) federatedStart(w http.ResponseWriter, r *http.Request) {
	state := federated.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute) / time.Second),
		HttpOnly: true,
		Secure:   !a.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.federated.AuthCodeURL(state), http.StatusSeeOther)
}

func (a *app) federatedCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !a.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		log.Info().Str("error", providerErr).Msg("Identity provider refused the login")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	expected, err := r.Cookie(stateCookieName)
	state := query.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(expected.Value), []byte(state)) != 1 {
		log.Warn().Msg("OAuth state mismatch")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	id, err := a.federated.Exchange(ctx, query.Get("code"))
	if err != nil {
		log.Warn().Err(err).Msg("Unable to complete federated login")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	u, err := a.users.FindOrCreateBySubject(ctx, id.Provider, id.Subject, id.Login())
	if err != nil {
		a.fail(w, r, err, "unable to register federated user")
		return
	}
	a.startSession(w, r, u)
}

// authenticated loads the session user, a session pointing to a user
// that no longer exists is discarded.
func (a *app) authenticated(next http.Handler) http.Handler {
	return a.realm.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := session.UserID(r.Context())
		u, err := a.users.FindByID(r.Context(), userID)
		if errors.As(err, &users.NotFound{}) {
			_ = a.realm.End(w, r)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		} else if err != nil {
			a.fail(w, r, err, "unable to load user")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	}))
}

func (a *app) startSession(w http.ResponseWriter, r *http.Request, u *users.User) {
	if err := a.realm.Start(w, r, u.ID); err != nil {
		a.fail(w, r, err, "unable to start session")
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusSeeOther)
}

func (a *app) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log := logutil.GetOrDefault(r.Context())
	log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	http.Error(w, msg+", check logs for more information", http.StatusInternalServerError)
}

func (a *app) page(title string, authenticated bool) page {
	return page{
		Title:         title,
		Authenticated: authenticated,
		GoogleEnabled: a.federated != nil,
	}
}

func currentUser(ctx context.Context) *users.User {
	u, _ := ctx.Value(userKey).(*users.User)
	return u
}

func readCredentials(r *http.Request) (string, credentials.PlainText, bool) {
	if err := r.ParseForm(); err != nil {
		return "", nil, false
	}
	login := users.NormalizeLogin(r.PostFormValue("username"))
	passwd := r.PostFormValue("password")
	if login == "" || passwd == "" || len(login) > MaxLoginLen || len(passwd) > MaxPasswordLen {
		return "", nil, false
	}
	return login, credentials.PlainText(passwd), true
}
