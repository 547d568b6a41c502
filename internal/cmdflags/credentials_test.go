package cmdflags

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/andrebq/secrets/credentials"
	"github.com/stretchr/testify/require"
)

func TestPasswordSchemeLoad(t *testing.T) {
	p := PasswordScheme{}
	p.Flags()
	s, err := p.Load()
	require.NoError(t, err)
	require.Equal(t, credentials.Argon2, s.Name())

	p = PasswordScheme{Name: credentials.Encrypted, RootKeyEnvVar: "SECRETS_TEST_ROOT_KEY"}
	_, err = p.Load()
	require.Error(t, err, "encrypted scheme without a key")

	t.Setenv("SECRETS_TEST_ROOT_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
	s, err = p.Load()
	require.NoError(t, err)
	require.Equal(t, credentials.Encrypted, s.Name())
	require.Empty(t, os.Getenv("SECRETS_TEST_ROOT_KEY"), "root key should be removed from the environment")
}
