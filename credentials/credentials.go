package credentials

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type (
	PlainText []byte
	Key       [32]byte

	KeyFn func(context.Context) (*Key, error)

	Scheme interface {
		Name() string
		Seal(ctx context.Context, passwd PlainText) (string, error)
		Match(ctx context.Context, stored string, passwd PlainText) (bool, error)
	}

	UnknownScheme struct {
		Name string
	}

	MissingKey struct {
		Scheme string
	}
)

const (
	Plain     = "plain"
	Encrypted = "encrypted"
	Argon2    = "argon2"
	Bcrypt    = "bcrypt"
)

func (u UnknownScheme) Error() string {
	return fmt.Sprintf("unknown password scheme %q, valid options are %v", u.Name, strings.Join(Names(), ", "))
}

func (m MissingKey) Error() string {
	return fmt.Sprintf("password scheme %v requires a root key", m.Scheme)
}

func (p PlainText) Zero() {
	for i := range p {
		p[i] = 0
	}
}

func (k *Key) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// Names lists every scheme accepted by ByName.
func Names() []string {
	out := []string{Plain, Encrypted, Argon2, Bcrypt}
	sort.Strings(out)
	return out
}

// ByName returns the scheme called name, keyfn is only used (and
// required) by the encrypted scheme.
func ByName(name string, keyfn KeyFn) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Plain:
		return PlainScheme{}, nil
	case Encrypted:
		if keyfn == nil {
			return nil, MissingKey{Scheme: Encrypted}
		}
		return &SealedScheme{keyfn: keyfn}, nil
	case Argon2:
		return DefaultArgon2(), nil
	case Bcrypt:
		return BcryptScheme{}, nil
	}
	return nil, UnknownScheme{Name: name}
}
