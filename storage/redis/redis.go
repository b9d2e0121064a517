// Package redis is storing documents as plain string values in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/storage"
	"golang.org/x/exp/slog"
)

var _ storage.DocumentStore = &Store{}

const DefaultPrefix = "showwatch:"

// Store is keeping the document of key under prefix+key.
type Store struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

type Opt func(*Store)

func WithPrefix(prefix string) Opt {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(s *Store) {
		s.logger = logger
	}
}

// New is connecting to the Redis server at addr. An empty addr connects to localhost:6379.
func New(ctx context.Context, addr, password string, db int, opts ...Opt) (*Store, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	s := &Store{prefix: DefaultPrefix, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("driver", "redis"))

	s.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.client.Ping(pingCtx).Err(); err != nil {
		s.client.Close()
		return nil, fmt.Errorf("redis.New() - %w", err)
	}

	return s, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("Store.Get() - %s: %w", key, showwatch.ErrNotExist)
	}
	if err != nil {
		s.logger.Error("get failed", "key", s.prefix+key, "error", err)
		return nil, fmt.Errorf("Store.Get() - %w", err)
	}
	return doc, nil
}

// Put is setting the document without expiration.
func (s *Store) Put(ctx context.Context, key string, doc []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, doc, 0).Err(); err != nil {
		s.logger.Error("set failed", "key", s.prefix+key, "error", err)
		return fmt.Errorf("Store.Put() - %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
