package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

type (
	memStore struct {
		cache *bigcache.BigCache
		now   func() time.Time
	}
)

// InMemoryStore keeps sessions in process memory. Entries older than
// lifeWindow are evicted even if their own ttl is longer.
func InMemoryStore(lifeWindow time.Duration) (Store, error) {
	if lifeWindow <= 0 {
		return nil, fmt.Errorf("session lifetime must be positive, got %v", lifeWindow)
	}
	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.Verbose = false
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create session cache, cause %w", err)
	}
	return &memStore{
		cache: cache,
		now:   time.Now,
	}, nil
}

// entries are encoded as an 8 byte expiration (unix nanos) followed
// by the user id
func (m *memStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	buf := make([]byte, 8+len(userID))
	binary.BigEndian.PutUint64(buf, uint64(m.now().Add(ttl).UnixNano()))
	copy(buf[8:], userID)
	return m.cache.Set(token, buf)
}

func (m *memStore) Lookup(ctx context.Context, token string) (string, bool, error) {
	buf, err := m.cache.Get(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	if len(buf) <= 8 {
		return "", false, nil
	}
	expires := time.Unix(0, int64(binary.BigEndian.Uint64(buf)))
	if !m.now().Before(expires) {
		_ = m.cache.Delete(token)
		return "", false, nil
	}
	return string(buf[8:]), true, nil
}

func (m *memStore) Delete(ctx context.Context, token string) error {
	err := m.cache.Delete(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}
