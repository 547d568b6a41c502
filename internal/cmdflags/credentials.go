package cmdflags

import (
	"fmt"
	"os"
	"strings"

	"github.com/andrebq/secrets/credentials"
	"github.com/urfave/cli/v2"
)

type (
	PasswordScheme struct {
		Name          string
		RootKeyEnvVar string
	}
)

func (p *PasswordScheme) Flags() []cli.Flag {
	if p.Name == "" {
		p.Name = credentials.Argon2
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "password-scheme",
			Usage:       fmt.Sprintf("How passwords are stored (%v)", strings.Join(credentials.Names(), ", ")),
			EnvVars:     []string{"SECRETS_PASSWORD_SCHEME"},
			Value:       p.Name,
			Destination: &p.Name,
		},
		RootKeyEnvVar(&p.RootKeyEnvVar),
	}
}

// Load builds the scheme, the root key is only read (and removed from
// the environment) when the encrypted scheme is selected.
func (p *PasswordScheme) Load() (credentials.Scheme, error) {
	var keyfn credentials.KeyFn
	if strings.EqualFold(strings.TrimSpace(p.Name), credentials.Encrypted) {
		var err error
		keyfn, err = credentials.KeyFNFromEnv(p.RootKeyEnvVar, os.Getenv, os.Setenv)
		if err != nil {
			return nil, err
		}
	}
	return credentials.ByName(p.Name, keyfn)
}

func RootKeyEnvVar(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = credentials.RootKeyEnvVar
	}
	return &cli.StringFlag{
		Name:        "root-key-envvar-name",
		Usage:       "Name of the environment variable that holds the root key. The key itself should not be passed as an argument",
		Value:       *out,
		Destination: out,
	}
}
