package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrebq/secrets/cmd/secrets/keygen"
	"github.com/andrebq/secrets/cmd/secrets/serve"
	"github.com/andrebq/secrets/cmd/secrets/users"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	// values from .env never override the real environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("Unable to load .env file")
	}
	var logLevel string
	var prettyLog bool
	app := &cli.App{
		Name:  "secrets",
		Usage: "Share your secrets anonymously, after logging in",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Minimum level of log entries (trace, debug, info, warn, error)",
				EnvVars:     []string{"SECRETS_LOG_LEVEL"},
				Value:       "info",
				Destination: &logLevel,
			},
			&cli.BoolFlag{
				Name:        "pretty-log",
				Usage:       "Write human friendly logs instead of JSON",
				EnvVars:     []string{"SECRETS_PRETTY_LOG"},
				Destination: &prettyLog,
			},
		},
		Before: func(ctx *cli.Context) error {
			lvl, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(lvl)
			if prettyLog {
				log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			}
			return nil
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			users.Cmd(),
			keygen.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
