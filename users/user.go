// Package users keeps the single user collection of the application.
//
// A user either registers locally with a login and a password, or shows
// up through a federated provider, in which case Provider and Subject
// identify it and Password stays empty.
//
// The Password field holds whatever the configured credentials scheme
// produced, this package never looks inside it.
package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	User struct {
		ID        string    `bson:"_id"`
		Login     string    `bson:"login"`
		Password  string    `bson:"password,omitempty"`
		Provider  string    `bson:"provider,omitempty"`
		Subject   string    `bson:"subject,omitempty"`
		Secret    string    `bson:"secret,omitempty"`
		CreatedAt time.Time `bson:"created_at"`
	}

	Store interface {
		Create(ctx context.Context, u *User) error
		FindByLogin(ctx context.Context, login string) (*User, error)
		FindByID(ctx context.Context, id string) (*User, error)
		FindOrCreateBySubject(ctx context.Context, provider, subject, login string) (*User, error)
		SetSecret(ctx context.Context, id, secret string) error
		ListSecrets(ctx context.Context) ([]string, error)
		Ping(ctx context.Context) error
		Close() error
	}
)

// NormalizeLogin is applied to every login before it is stored or
// looked up.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// Prepare fills the fields every store needs before an insert.
func (u *User) Prepare(now time.Time) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now.UTC()
	}
	u.Login = NormalizeLogin(u.Login)
}

// Federated reports whether the user came from an identity provider.
func (u *User) Federated() bool {
	return u.Subject != ""
}

// FederatedLogin returns the login used for a federated user when the
// provider did not share an email.
func FederatedLogin(provider, subject string) string {
	return provider + ":" + subject
}
