package credentials

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

func testKeyFn(t *testing.T) KeyFn {
	var k Key
	_, err := rand.Read(k[:])
	require.NoError(t, err)
	return StaticKey(&k)
}

func TestSchemes(t *testing.T) {
	ctx := context.Background()
	keyfn := testKeyFn(t)
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := ByName(name, keyfn)
			require.NoError(t, err)
			require.Equal(t, name, s.Name())

			stored, err := s.Seal(ctx, PlainText("qwerty123"))
			require.NoError(t, err)
			require.NotEmpty(t, stored)

			ok, err := s.Match(ctx, stored, PlainText("qwerty123"))
			require.NoError(t, err)
			require.True(t, ok, "password should match")

			ok, err = s.Match(ctx, stored, PlainText("qwerty1234"))
			require.NoError(t, err)
			require.False(t, ok, "wrong password should not match")

			ok, err = s.Match(ctx, "garbage", PlainText("qwerty123"))
			require.NoError(t, err)
			require.False(t, ok, "garbage should never match")
		})
	}
}

func TestValuesFromAnotherSchemeNeverMatch(t *testing.T) {
	ctx := context.Background()
	keyfn := testKeyFn(t)
	stored := map[string]string{
		"dollar plain": "$zzz" + strings.Repeat("z", 56),
		"bad cost":     "$2a$99$" + strings.Repeat("a", 53),
	}
	for _, name := range Names() {
		s, err := ByName(name, keyfn)
		require.NoError(t, err)
		stored[name], err = s.Seal(ctx, PlainText("qwerty123"))
		require.NoError(t, err)
	}
	for _, name := range Names() {
		s, err := ByName(name, keyfn)
		require.NoError(t, err)
		for from, value := range stored {
			if from == name {
				continue
			}
			ok, err := s.Match(ctx, value, PlainText("qwerty123"))
			require.NoError(t, err, "%v matching a value from %v", name, from)
			require.False(t, ok, "%v matching a value from %v", name, from)
		}
	}
}

func TestSaltAndNonceComeFromTheReader(t *testing.T) {
	ctx := context.Background()
	seed := bytes.Repeat([]byte{7}, 64)
	keyfn := testKeyFn(t)
	newArgon2 := func() *Argon2Scheme {
		return &Argon2Scheme{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16, rand: bytes.NewReader(seed)}
	}
	newSealed := func() *SealedScheme {
		s := NewSealedScheme(keyfn)
		s.rand = bytes.NewReader(seed)
		return s
	}
	for name, pair := range map[string][2]Scheme{
		Argon2:    {newArgon2(), newArgon2()},
		Encrypted: {newSealed(), newSealed()},
	} {
		first, err := pair[0].Seal(ctx, PlainText("hunter2"))
		require.NoError(t, err)
		second, err := pair[1].Seal(ctx, PlainText("hunter2"))
		require.NoError(t, err)
		require.Equal(t, first, second, "%v with the same randomness", name)
		ok, err := pair[1].Match(ctx, first, PlainText("hunter2"))
		require.NoError(t, err)
		require.True(t, ok, name)
	}
}

func TestSealFailsWithoutRandomness(t *testing.T) {
	ctx := context.Background()
	broken := iotest.ErrReader(errors.New("entropy exhausted"))
	argon := DefaultArgon2()
	argon.rand = broken
	sealed := NewSealedScheme(testKeyFn(t))
	sealed.rand = broken
	for _, s := range []Scheme{argon, sealed} {
		stored, err := s.Seal(ctx, PlainText("hunter2"))
		require.ErrorContains(t, err, "entropy exhausted", s.Name())
		require.Empty(t, stored)
	}
}

func TestHidingSchemesNeverKeepThePassword(t *testing.T) {
	ctx := context.Background()
	keyfn := testKeyFn(t)
	for _, name := range []string{Encrypted, Argon2, Bcrypt} {
		s, err := ByName(name, keyfn)
		require.NoError(t, err)
		first, err := s.Seal(ctx, PlainText("hunter2"))
		require.NoError(t, err)
		second, err := s.Seal(ctx, PlainText("hunter2"))
		require.NoError(t, err)
		require.NotContains(t, first, "hunter2", name)
		require.NotEqual(t, first, second, "%v should randomize each value", name)
	}
}

func TestSealedSchemeNeedsTheSameKey(t *testing.T) {
	ctx := context.Background()
	s := NewSealedScheme(testKeyFn(t))
	stored, err := s.Seal(ctx, PlainText("hunter2"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stored, "secretbox$"))

	plain, err := s.Open(ctx, stored)
	require.NoError(t, err)
	require.Equal(t, PlainText("hunter2"), plain)

	other := NewSealedScheme(testKeyFn(t))
	_, err = other.Open(ctx, stored)
	require.Error(t, err)
	_, err = other.Match(ctx, stored, PlainText("hunter2"))
	require.Error(t, err)
}

func TestArgon2KeepsItsParameters(t *testing.T) {
	ctx := context.Background()
	cheap := &Argon2Scheme{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 16, SaltLen: 8}
	stored, err := cheap.Seal(ctx, PlainText("hunter2"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stored, "$argon2id$v=19$m=8192,t=1,p=1$"), stored)

	// a scheme with different defaults still verifies older hashes
	ok, err := DefaultArgon2().Match(ctx, stored, PlainText("hunter2"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestByName(t *testing.T) {
	_, err := ByName("rot13", nil)
	require.ErrorAs(t, err, &UnknownScheme{})

	_, err = ByName(Encrypted, nil)
	require.ErrorIs(t, err, MissingKey{Scheme: Encrypted})

	s, err := ByName(" BCRYPT ", nil)
	require.NoError(t, err)
	require.Equal(t, Bcrypt, s.Name())
}
