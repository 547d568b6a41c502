package cmdflags

import (
	"context"

	"github.com/andrebq/secrets/users"
	"github.com/andrebq/secrets/users/mongostore"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type (
	// UserStore collects the flags needed to open the user collection.
	UserStore struct {
		DB            string
		MongoURI      string
		MongoDatabase string
	}
)

func (s *UserStore) Flags() []cli.Flag {
	if s.DB == "" {
		s.DB = "secrets-data/users.db"
	}
	if s.MongoDatabase == "" {
		s.MongoDatabase = mongostore.DefaultDatabase
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "db",
			Usage:       "Path to the SQLite file holding users (ignored when --mongo-uri is set)",
			EnvVars:     []string{"SECRETS_DB"},
			Value:       s.DB,
			Destination: &s.DB,
		},
		&cli.StringFlag{
			Name:        "mongo-uri",
			Usage:       "MongoDB connection string, when set users are kept in MongoDB",
			EnvVars:     []string{"SECRETS_MONGO_URI"},
			Destination: &s.MongoURI,
		},
		&cli.StringFlag{
			Name:        "mongo-database",
			Usage:       "MongoDB database holding the users collection",
			EnvVars:     []string{"SECRETS_MONGO_DATABASE"},
			Value:       s.MongoDatabase,
			Destination: &s.MongoDatabase,
		},
	}
}

func (s *UserStore) Open(ctx context.Context) (users.Store, error) {
	if s.MongoURI != "" {
		log.Info().Str("database", s.MongoDatabase).Msg("Using MongoDB user store")
		return mongostore.Open(ctx, s.MongoURI, s.MongoDatabase)
	}
	log.Info().Str("file", s.DB).Msg("Using SQLite user store")
	return users.OpenSQLite(ctx, s.DB)
}
