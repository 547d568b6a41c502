package credentials

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

type (
	// Argon2Scheme hashes passwords with argon2id. The parameters used
	// are kept next to the hash so they can change without breaking
	// existing users.
	Argon2Scheme struct {
		Time    uint32
		Memory  uint32
		Threads uint8
		KeyLen  uint32
		SaltLen int

		rand io.Reader
	}

	argon2Params struct {
		memory  uint32
		time    uint32
		threads uint8
		salt    []byte
		key     []byte
	}
)

var (
	errMalformedArgon2 = errors.New("stored value is not a valid argon2id hash")
)

// DefaultArgon2 follows the second recommended option of RFC 9106
// but with less memory: 1 pass over 64 MB.
func DefaultArgon2() *Argon2Scheme {
	return &Argon2Scheme{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 2,
		KeyLen:  32,
		SaltLen: 16,
	}
}

func (a *Argon2Scheme) Name() string { return Argon2 }

func (a *Argon2Scheme) Seal(_ context.Context, passwd PlainText) (string, error) {
	salt := make([]byte, a.SaltLen)
	rnd := a.rand
	if rnd == nil {
		rnd = rand.Reader
	}
	if _, err := io.ReadFull(rnd, salt); err != nil {
		return "", fmt.Errorf("unable to generate salt, cause %w", err)
	}
	key := argon2.IDKey(passwd, salt, a.Time, a.Memory, a.Threads, a.KeyLen)
	defer PlainText(key).Zero()
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.Memory, a.Time, a.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func (a *Argon2Scheme) Match(_ context.Context, stored string, passwd PlainText) (bool, error) {
	p, err := parseArgon2(stored)
	if errors.Is(err, errMalformedArgon2) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	key := argon2.IDKey(passwd, p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	defer PlainText(key).Zero()
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

func parseArgon2(stored string) (*argon2Params, error) {
	parts := strings.Split(stored, "$")
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errMalformedArgon2
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, errMalformedArgon2
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("argon2 version %v is not supported", version)
	}
	var p argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, errMalformedArgon2
	}
	var err error
	p.salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, errMalformedArgon2
	}
	p.key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(p.key) == 0 || p.threads == 0 {
		return nil, errMalformedArgon2
	}
	return &p, nil
}
