package credentials

import (
	"context"
	"crypto/subtle"
)

// PlainScheme stores passwords as they are.
type PlainScheme struct{}

func (PlainScheme) Name() string { return Plain }

func (PlainScheme) Seal(_ context.Context, passwd PlainText) (string, error) {
	return string(passwd), nil
}

func (PlainScheme) Match(_ context.Context, stored string, passwd PlainText) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(stored), passwd) == 1, nil
}
