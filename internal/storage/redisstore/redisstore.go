// Package redisstore stores the snapshot blob under a Redis key.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/storage"
)

// Client is the subset of *redis.Client the store needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Store implements storage.Storage on top of a Redis client. Keys are prefixed
// so several apps can share one database.
type Store struct {
	client Client
	prefix string
}

var _ storage.Storage = (*Store)(nil)

// Options configures a connection made by Dial.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, o Options) (*Store, *redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return New(c, o.Prefix), c, nil
}

// New wraps an existing client.
func New(c Client, prefix string) *Store { return &Store{client: c, prefix: prefix} }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Set stores value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}
