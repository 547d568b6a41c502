package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "secrets:session:"

type (
	redisStore struct {
		client redis.UniversalClient
		prefix string
	}
)

// RedisStore keeps sessions in redis, which allows more than one server
// process to share them. Expiration is handled by redis itself.
func RedisStore(client redis.UniversalClient, prefix string) Store {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &redisStore{client: client, prefix: prefix}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis at %v, cause %w", addr, err)
	}
	return client, nil
}

func (r *redisStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	err := r.client.Set(ctx, r.prefix+token, userID, ttl).Err()
	if err != nil {
		return fmt.Errorf("unable to save session, cause %w", err)
	}
	return nil
}

func (r *redisStore) Lookup(ctx context.Context, token string) (string, bool, error) {
	userID, err := r.client.Get(ctx, r.prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("unable to lookup session, cause %w", err)
	}
	return userID, true, nil
}

func (r *redisStore) Delete(ctx context.Context, token string) error {
	err := r.client.Del(ctx, r.prefix+token).Err()
	if err != nil {
		return fmt.Errorf("unable to delete session, cause %w", err)
	}
	return nil
}
