// Package redis provides a Redis-backed implementation of the storage
// port, suitable for desktop/server callers that want the credential
// cache shared across processes. Grounded on storage/redis in the
// teacher, ported from go-redis/v8 to go-redis/v9 (the pin used
// elsewhere in the example pack).
package redis

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/mediamonks/oidcflow/storage"
)

const keyPrefix = "oidcflow/credentials/"

const defaultStorageTimeout = 5 * time.Second

var _ storage.Store = (*Store)(nil)

// Config configures a Redis-backed Store.
type Config struct {
	Addrs            []string `json:"addrs" yaml:"addrs"`
	Password         string   `json:"password" yaml:"password"`
	SentinelPassword string   `json:"sentinelPassword" yaml:"sentinelPassword"`
	MasterName       string   `json:"masterName" yaml:"masterName"`
}

// Open returns a Store backed by a new Redis universal client built
// from c.
func (c *Config) Open() *Store {
	opts := &redis.UniversalOptions{
		Addrs:            c.Addrs,
		Password:         c.Password,
		SentinelPassword: c.SentinelPassword,
		MasterName:       c.MasterName,
	}
	return &Store{db: redis.NewUniversalClient(opts)}
}

// Store is a storage.Store backed by Redis.
type Store struct {
	db redis.UniversalClient
}

// NewWithClient wraps an already-constructed Redis client.
func NewWithClient(db redis.UniversalClient) *Store {
	return &Store{db: db}
}

func key(clientIdentifier string) string {
	return keyPrefix + clientIdentifier
}

func (s *Store) Get(ctx context.Context, clientIdentifier string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultStorageTimeout)
	defer cancel()

	blob, err := s.db.Get(ctx, key(clientIdentifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func (s *Store) Put(ctx context.Context, clientIdentifier string, blob []byte) error {
	ctx, cancel := context.WithTimeout(ctx, defaultStorageTimeout)
	defer cancel()

	return s.db.Set(ctx, key(clientIdentifier), blob, 0).Err()
}

func (s *Store) Delete(ctx context.Context, clientIdentifier string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultStorageTimeout)
	defer cancel()

	return s.db.Del(ctx, key(clientIdentifier)).Err()
}

// Close releases the underlying Redis client's connections.
func (s *Store) Close() error { return s.db.Close() }
