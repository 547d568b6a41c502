package credentials

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) (func(string) string, func(string, string) error) {
	return func(k string) string { return vars[k] },
		func(k, v string) error {
			vars[k] = v
			return nil
		}
}

func TestKeyFNFromEnv(t *testing.T) {
	encoded, err := GenerateKey(bytes.NewReader(bytes.Repeat([]byte{7}, 32)))
	require.NoError(t, err)

	env := map[string]string{RootKeyEnvVar: encoded}
	get, set := fakeEnv(env)
	keyfn, err := KeyFNFromEnv(RootKeyEnvVar, get, set)
	require.NoError(t, err)
	require.Empty(t, env[RootKeyEnvVar], "reading the key should remove it from the environment")

	k, err := keyfn(context.Background())
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte{7}, 32), k[:])

	// callers may wipe what they got without touching the held key
	k.Zero()
	k2, err := keyfn(context.Background())
	require.NoError(t, err)
	require.Equal(t, byte(7), k2[0])
}

func TestKeyFNFromEnvRejectsBadKeys(t *testing.T) {
	for name, val := range map[string]string{
		"empty":      "",
		"not base64": "%%%",
		"too short":  base64.StdEncoding.EncodeToString([]byte("short")),
	} {
		get, set := fakeEnv(map[string]string{"KEY": val})
		_, err := KeyFNFromEnv("KEY", get, set)
		require.Error(t, err, name)
	}
}
