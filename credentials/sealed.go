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

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "secretbox$"

var (
	errNotSealed = errors.New("stored value was not produced by the encrypted scheme")
)

// SealedScheme encrypts the password field, it can be reversed by
// whoever holds the root key.
type SealedScheme struct {
	keyfn KeyFn
	rand  io.Reader
}

func NewSealedScheme(keyfn KeyFn) *SealedScheme {
	return &SealedScheme{keyfn: keyfn}
}

func (s *SealedScheme) Name() string { return Encrypted }

func (s *SealedScheme) Seal(ctx context.Context, passwd PlainText) (string, error) {
	key, err := s.keyfn(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to acquire root key, cause %w", err)
	}
	defer key.Zero()
	var nonce [24]byte
	rnd := s.rand
	if rnd == nil {
		rnd = rand.Reader
	}
	if _, err := io.ReadFull(rnd, nonce[:]); err != nil {
		return "", fmt.Errorf("unable to generate nonce, cause %w", err)
	}
	box := secretbox.Seal(nonce[:], passwd, &nonce, (*[32]byte)(key))
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(box), nil
}

// Open returns the password kept in stored.
func (s *SealedScheme) Open(ctx context.Context, stored string) (PlainText, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return nil, errNotSealed
	}
	box, err := base64.RawStdEncoding.DecodeString(stored[len(sealedPrefix):])
	if err != nil {
		return nil, fmt.Errorf("unable to decode sealed value, cause %w", err)
	}
	if len(box) < 24+secretbox.Overhead {
		return nil, errNotSealed
	}
	key, err := s.keyfn(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to acquire root key, cause %w", err)
	}
	defer key.Zero()
	var nonce [24]byte
	copy(nonce[:], box[:24])
	out, ok := secretbox.Open(nil, box[24:], &nonce, (*[32]byte)(key))
	if !ok {
		return nil, errors.New("unable to open sealed value, wrong key or corrupted data")
	}
	return PlainText(out), nil
}

func (s *SealedScheme) Match(ctx context.Context, stored string, passwd PlainText) (bool, error) {
	actual, err := s.Open(ctx, stored)
	if errors.Is(err, errNotSealed) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	defer actual.Zero()
	return subtle.ConstantTimeCompare(actual, passwd) == 1, nil
}
