// Package session keeps authenticated users logged in across requests.
//
// The browser only ever holds an opaque random token in a cookie, the
// token is mapped to a user id by a Store. Losing the store (restart,
// eviction, expiry) simply means users have to log in again.
package session

import (
	"context"
	"time"
)

type (
	Store interface {
		Save(ctx context.Context, token, userID string, ttl time.Duration) error
		Lookup(ctx context.Context, token string) (userID string, found bool, err error)
		Delete(ctx context.Context, token string) error
	}
)
