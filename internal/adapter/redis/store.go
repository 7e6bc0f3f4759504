// Package redis persists cache entries as Redis string keys.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the cache keys.
const DefaultPrefix = "disaster-feed:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store implements the pipeline cache store on top of Redis.
type Store struct {
	client *goredis.Client
	prefix string
}

// Connect dials Redis and verifies the connection with a PING.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("redis ping failed", "addr", opts.Addr, "error", err)
		if cerr := client.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)

	return NewStore(client, opts.Prefix), nil
}

// NewStore wraps an existing client. An empty prefix uses DefaultPrefix.
func NewStore(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// GetMulti fetches all keys with one MGET. Any nil value is a domain.ErrCacheMiss.
func (s *Store) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}

	vals, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	out := make(map[string][]byte, len(keys))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			return nil, domain.ErrCacheMiss
		}
		out[keys[i]] = []byte(str)
	}
	return out, nil
}

// SetMulti writes all entries in one MULTI/EXEC transaction without expiry;
// stale entries stay until they are overwritten.
func (s *Store) SetMulti(ctx context.Context, entries map[string][]byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, s.prefix+k, v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
