package users

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/andrebq/secrets/credentials"
	"github.com/andrebq/secrets/internal/cmdflags"
	"github.com/andrebq/secrets/users"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var store cmdflags.UserStore
	var scheme cmdflags.PasswordScheme
	return &cli.Command{
		Name:  "users",
		Usage: "Manage users directly on the user store",
		Flags: append(store.Flags(), scheme.Flags()...),
		Subcommands: []*cli.Command{
			registerCmd(&store, &scheme),
		},
	}
}

func registerCmd(storeFlags *cmdflags.UserStore, schemeFlags *cmdflags.PasswordScheme) *cli.Command {
	var username string
	return &cli.Command{
		Name:  "register",
		Usage: "Register a new user (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Usage:       "Login of the user to register",
				Destination: &username,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			sc := bufio.NewScanner(ctx.App.Reader)
			if !sc.Scan() {
				if sc.Err() != nil {
					return sc.Err()
				}
				return errors.New("missing password from stdin")
			}
			passwd := credentials.PlainText(strings.TrimSpace(sc.Text()))
			defer passwd.Zero()
			if len(passwd) == 0 {
				return errors.New("missing password from stdin")
			}
			scheme, err := schemeFlags.Load()
			if err != nil {
				return err
			}
			sealed, err := scheme.Seal(ctx.Context, passwd)
			if err != nil {
				return err
			}
			store, err := storeFlags.Open(ctx.Context)
			if err != nil {
				return err
			}
			defer store.Close()
			u := &users.User{Login: username, Password: sealed}
			err = store.Create(ctx.Context, u)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ctx.App.Writer, u.ID)
			return err
		},
	}
}
