package serve

import (
	"fmt"
	"os"

	"github.com/andrebq/secrets/federated"
	"github.com/andrebq/secrets/internal/cmdflags"
	"github.com/andrebq/secrets/internal/httpserver"
	"github.com/andrebq/secrets/session"
	"github.com/andrebq/secrets/web"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:3000"
	var store cmdflags.UserStore
	var scheme cmdflags.PasswordScheme
	sessionTTL := session.DefaultTTL
	var insecureCookie bool
	var redisAddr string
	redisPasswordEnvVar := "SECRETS_REDIS_PASSWORD"
	var redisDB int
	loginRate := 1.0
	loginBurst := web.DefaultLoginBurst
	var google federated.Config
	googleSecretEnvVar := "GOOGLE_CLIENT_SECRET"

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bind",
			Usage:       "Address to bind for incoming requests",
			EnvVars:     []string{"SECRETS_BIND"},
			Value:       bindAddr,
			Destination: &bindAddr,
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "How long a login lasts",
			EnvVars:     []string{"SECRETS_SESSION_TTL"},
			Value:       sessionTTL,
			Destination: &sessionTTL,
		},
		&cli.BoolFlag{
			Name:        "insecure-cookie",
			Usage:       "Send cookies over plain http (local development only)",
			EnvVars:     []string{"SECRETS_INSECURE_COOKIE"},
			Destination: &insecureCookie,
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address (host:port), when set sessions are kept in redis instead of memory",
			EnvVars:     []string{"SECRETS_REDIS_ADDR"},
			Destination: &redisAddr,
		},
		&cli.StringFlag{
			Name:        "redis-password-envvar-name",
			Usage:       "Name of the environment variable that holds the redis password",
			Value:       redisPasswordEnvVar,
			Destination: &redisPasswordEnvVar,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			EnvVars:     []string{"SECRETS_REDIS_DB"},
			Destination: &redisDB,
		},
		&cli.Float64Flag{
			Name:        "login-rate",
			Usage:       "Login and register attempts allowed per second for each client ip (0 disables the limit)",
			EnvVars:     []string{"SECRETS_LOGIN_RATE"},
			Value:       loginRate,
			Destination: &loginRate,
		},
		&cli.IntFlag{
			Name:        "login-burst",
			Usage:       "Login and register attempts a client can make at once before being limited",
			EnvVars:     []string{"SECRETS_LOGIN_BURST"},
			Value:       loginBurst,
			Destination: &loginBurst,
		},
		&cli.StringFlag{
			Name:        "google-client-id",
			Usage:       "OAuth client id, enables Sign in with Google when set",
			EnvVars:     []string{"GOOGLE_CLIENT_ID"},
			Destination: &google.ClientID,
		},
		&cli.StringFlag{
			Name:        "google-client-secret-envvar-name",
			Usage:       "Name of the environment variable that holds the OAuth client secret",
			Value:       googleSecretEnvVar,
			Destination: &googleSecretEnvVar,
		},
		&cli.StringFlag{
			Name:        "google-redirect-url",
			Usage:       "Callback url registered with the provider",
			EnvVars:     []string{"GOOGLE_REDIRECT_URL"},
			Value:       "http://localhost:3000/auth/google/authentication",
			Destination: &google.RedirectURL,
		},
		&cli.StringFlag{
			Name:        "oidc-issuer",
			Usage:       "OpenID Connect issuer used for federated login",
			EnvVars:     []string{"SECRETS_OIDC_ISSUER"},
			Value:       federated.GoogleIssuer,
			Destination: &google.Issuer,
		},
	}
	flags = append(flags, store.Flags()...)
	flags = append(flags, scheme.Flags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start the secrets web application",
		Flags: flags,
		Action: func(ctx *cli.Context) error {
			if sessionTTL <= 0 {
				return fmt.Errorf("--session-ttl must be positive, got %v", sessionTTL)
			}
			passwords, err := scheme.Load()
			if err != nil {
				return err
			}
			log.Info().Str("scheme", passwords.Name()).Msg("Password scheme selected")

			userStore, err := store.Open(ctx.Context)
			if err != nil {
				return err
			}
			defer userStore.Close()

			var sessions session.Store
			if redisAddr != "" {
				client, err := session.DialRedis(ctx.Context, redisAddr, readAndClear(redisPasswordEnvVar), redisDB)
				if err != nil {
					return err
				}
				defer client.Close()
				sessions = session.RedisStore(client, "")
				log.Info().Str("addr", redisAddr).Msg("Using redis session store")
			} else {
				sessions, err = session.InMemoryStore(sessionTTL)
				if err != nil {
					return err
				}
			}

			cfg := web.Config{
				Users:          userStore,
				Scheme:         passwords,
				Realm:          session.NewRealm(sessions, sessionTTL, insecureCookie),
				LoginRate:      rate.Limit(loginRate),
				LoginBurst:     loginBurst,
				InsecureCookie: insecureCookie,
			}
			if loginRate <= 0 {
				cfg.LoginRate = rate.Inf
			}
			if google.ClientID != "" {
				google.ClientSecret = readAndClear(googleSecretEnvVar)
				cfg.Federated, err = federated.New(ctx.Context, google)
				if err != nil {
					return fmt.Errorf("unable to configure federated login, cause %w", err)
				}
				log.Info().Str("issuer", google.Issuer).Msg("Federated login enabled")
			}

			handler, err := web.AsHandler(ctx.Context, cfg)
			if err != nil {
				return err
			}
			return httpserver.Serve(ctx.Context, bindAddr, handler)
		},
	}
}

func readAndClear(envvar string) string {
	val := os.Getenv(envvar)
	os.Unsetenv(envvar)
	return val
}
