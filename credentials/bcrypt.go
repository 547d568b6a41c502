package credentials

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptScheme hashes passwords with bcrypt. A zero Cost means
// bcrypt.DefaultCost.
type BcryptScheme struct {
	Cost int
}

func (BcryptScheme) Name() string { return Bcrypt }

func (b BcryptScheme) Seal(_ context.Context, passwd PlainText) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword(passwd, cost)
	if err != nil {
		return "", fmt.Errorf("unable to hash password, cause %w", err)
	}
	return string(hash), nil
}

func (BcryptScheme) Match(_ context.Context, stored string, passwd PlainText) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(stored), passwd)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrHashTooShort):
		return false, nil
	}
	// values stored by another scheme are a mismatch, not a failure
	var (
		badPrefix  bcrypt.InvalidHashPrefixError
		badVersion bcrypt.HashVersionTooNewError
		badCost    bcrypt.InvalidCostError
	)
	if errors.As(err, &badPrefix) || errors.As(err, &badVersion) || errors.As(err, &badCost) {
		return false, nil
	}
	return false, fmt.Errorf("unable to compare password, cause %w", err)
}
