// Package federated signs users in through an OpenID Connect provider,
// Google by default.
//
// Only the authorization code flow is supported. The identity of the
// user is taken from the verified id_token, no userinfo call is made.
package federated

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	GoogleIssuer   = "https://accounts.google.com"
	GoogleProvider = "google"
)

type (
	Config struct {
		// Provider is the name stored next to the subject of every user
		// created through this client.
		Provider     string
		Issuer       string
		ClientID     string
		ClientSecret string
		RedirectURL  string
		Scopes       []string
	}

	Identity struct {
		Provider      string
		Subject       string
		Email         string
		EmailVerified bool
	}

	Client struct {
		provider   string
		oauth      *oauth2.Config
		verifier   *oidc.IDTokenVerifier
		httpClient *http.Client
	}

	Option func(*Client)
)

var (
	ErrMissingIDToken = errors.New("token response does not contain an id_token")
	ErrMissingSubject = errors.New("id_token does not identify a subject")
)

// WithHTTPClient makes every call to the provider go through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithDefaults fills the Google values for anything left empty.
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = GoogleProvider
	}
	if c.Issuer == "" {
		c.Issuer = GoogleIssuer
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}
	return c
}

func (c Config) Validate() error {
	switch {
	case c.ClientID == "":
		return errors.New("federated: client id is required")
	case c.ClientSecret == "":
		return errors.New("federated: client secret is required")
	case c.RedirectURL == "":
		return errors.New("federated: redirect url is required")
	}
	if _, err := url.ParseRequestURI(c.RedirectURL); err != nil {
		return fmt.Errorf("federated: invalid redirect url, cause %w", err)
	}
	if _, err := url.ParseRequestURI(c.Issuer); err != nil {
		return fmt.Errorf("federated: invalid issuer, cause %w", err)
	}
	return nil
}

// New runs the discovery against cfg.Issuer and returns a client ready
// to send users to the provider.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{provider: cfg.Provider, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	provider, err := oidc.NewProvider(c.clientContext(ctx), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("federated: unable to discover %v, cause %w", cfg.Issuer, err)
	}
	c.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       cfg.Scopes,
	}
	c.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return c, nil
}

// Provider returns the name users created by this client are tagged with.
func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens and returns the
// identity asserted by the id_token.
func (c *Client) Exchange(ctx context.Context, code string) (*Identity, error) {
	if code == "" {
		return nil, errors.New("federated: authorization code is required")
	}
	ctx = c.clientContext(ctx)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("federated: unable to exchange code, cause %w", err)
	}
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, ErrMissingIDToken
	}
	idToken, err := c.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("federated: invalid id_token, cause %w", err)
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("federated: unable to read id_token claims, cause %w", err)
	}
	if idToken.Subject == "" {
		return nil, ErrMissingSubject
	}
	return &Identity{
		Provider:      c.provider,
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// Login is the value used as login when the user is first created,
// unverified emails are not trusted.
func (i *Identity) Login() string {
	if i.EmailVerified {
		return i.Email
	}
	return ""
}

// NewState returns an unguessable value for the state parameter.
func NewState() string {
	return uuid.NewString()
}

func (c *Client) clientContext(ctx context.Context) context.Context {
	return oidc.ClientContext(ctx, c.httpClient)
}
