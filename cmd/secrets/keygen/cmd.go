package keygen

import (
	"crypto/rand"
	"fmt"

	"github.com/andrebq/secrets/credentials"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Print a new root key for the encrypted password scheme",
		Action: func(ctx *cli.Context) error {
			key, err := credentials.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ctx.App.Writer, key)
			return err
		},
	}
}
