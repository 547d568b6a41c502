package credentials

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

const (
	RootKeyEnvVar = "SECRETS_ROOT_KEY"
)

// KeyFNFromEnv reads a base64 encoded key from varname and clears the
// variable right away. nil getfn/setfn default to the os package.
func KeyFNFromEnv(varname string, getfn func(string) string, setfn func(string, string) error) (KeyFn, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	val := getfn(varname)
	if err := setfn(varname, ""); err != nil {
		return nil, fmt.Errorf("credentials: unable to clear %v, cause %w", varname, err)
	}
	if val == "" {
		return nil, fmt.Errorf("credentials: environment variable %v is empty", varname)
	}
	var rootKey Key
	buf, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("credentials: cannot decode string to valid key, cause %w", err)
	}
	defer PlainText(buf).Zero()
	if len(buf) != len(rootKey) {
		return nil, fmt.Errorf("credentials: decoded key has %v bytes expecting %v bytes", len(buf), len(rootKey))
	}
	copy(rootKey[:], buf)
	return StaticKey(&rootKey), nil
}

// StaticKey returns a KeyFn that hands out copies of k.
func StaticKey(k *Key) KeyFn {
	var held Key
	copy(held[:], k[:])
	return func(context.Context) (*Key, error) {
		var out Key
		copy(out[:], held[:])
		return &out, nil
	}
}

// GenerateKey reads a new key from rnd and returns it encoded the way
// KeyFNFromEnv expects.
func GenerateKey(rnd io.Reader) (string, error) {
	var k Key
	defer k.Zero()
	if _, err := io.ReadFull(rnd, k[:]); err != nil {
		return "", fmt.Errorf("credentials: unable to read random key, cause %w", err)
	}
	return base64.StdEncoding.EncodeToString(k[:]), nil
}
