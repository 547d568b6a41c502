// Package mongostore keeps users as documents in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrebq/secrets/users"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultDatabase   = "authentication"
	DefaultCollection = "users"
)

type (
	Store struct {
		client     *mongo.Client
		collection *mongo.Collection
		now        func() time.Time
	}
)

var _ users.Store = (*Store)(nil)

// Open connects to uri and makes sure the indexes used to keep logins
// and federated identities unique exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongodb, cause %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping mongodb, cause %w", err)
	}
	s := &Store{
		client:     client,
		collection: client.Database(database).Collection(DefaultCollection),
		now:        time.Now,
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "login", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uidx_users_login"),
		},
		{
			Keys: bson.D{{Key: "provider", Value: 1}, {Key: "subject", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uidx_users_identity").
				SetPartialFilterExpression(bson.M{"subject": bson.M{"$exists": true}}),
		},
	})
	if err != nil {
		return fmt.Errorf("unable to create user indexes, cause %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, u *users.User) error {
	u.Prepare(s.now())
	_, err := s.collection.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return users.LoginTaken{Login: u.Login}
	} else if err != nil {
		return fmt.Errorf("unable to create user %v, cause %w", u.Login, err)
	}
	return nil
}

func (s *Store) FindByLogin(ctx context.Context, login string) (*users.User, error) {
	login = users.NormalizeLogin(login)
	return s.findOne(ctx, bson.M{"login": login}, login)
}

func (s *Store) FindByID(ctx context.Context, id string) (*users.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, id)
}

func (s *Store) FindOrCreateBySubject(ctx context.Context, provider, subject, login string) (*users.User, error) {
	if subject == "" || provider == "" {
		return nil, errors.New("provider and subject are required")
	}
	filter := bson.M{"provider": provider, "subject": subject}
	key := users.FederatedLogin(provider, subject)
	u, err := s.findOne(ctx, filter, key)
	if err == nil {
		return u, nil
	} else if !errors.As(err, &users.NotFound{}) {
		return nil, err
	}
	for _, candidate := range []string{login, key} {
		if users.NormalizeLogin(candidate) == "" {
			continue
		}
		u = &users.User{Login: candidate, Provider: provider, Subject: subject}
		err = s.Create(ctx, u)
		if err == nil {
			return u, nil
		} else if !errors.As(err, &users.LoginTaken{}) {
			return nil, err
		}
	}
	return s.findOne(ctx, filter, key)
}

func (s *Store) SetSecret(ctx context.Context, id, secret string) error {
	res, err := s.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"secret": secret}})
	if err != nil {
		return fmt.Errorf("unable to store secret for user %v, cause %w", id, err)
	} else if res.MatchedCount == 0 {
		return users.NotFound{Key: id}
	}
	return nil
}

func (s *Store) ListSecrets(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetProjection(bson.M{"secret": 1})
	cur, err := s.collection.Find(ctx, bson.M{"secret": bson.M{"$exists": true, "$ne": ""}}, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to list secrets, cause %w", err)
	}
	defer cur.Close(ctx)
	var out []string
	for cur.Next(ctx) {
		var doc struct {
			Secret string `bson:"secret"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("unable to decode secret, cause %w", err)
		}
		out = append(out, doc.Secret)
	}
	return out, cur.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) findOne(ctx context.Context, filter bson.M, key string) (*users.User, error) {
	var u users.User
	err := s.collection.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, users.NotFound{Key: key}
	} else if err != nil {
		return nil, fmt.Errorf("unable to lookup user %v, cause %w", key, err)
	}
	return &u, nil
}
