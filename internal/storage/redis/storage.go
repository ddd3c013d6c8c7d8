package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yexiu0529666/gobang/internal/storage"
)

// Storage is a Redis-backed token storage. It exists for headless
// deployments where several bot processes share one account session:
// whichever process logs in writes the token, the rest pick it up.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a Redis token storage and verifies the connection
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis token storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.TokenStorage = (*Storage)(nil)

// Load returns the stored token, or "" if the key is absent
func (s *Storage) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.cfg.Key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

// Save stores the token under the configured key
func (s *Storage) Save(ctx context.Context, token string) error {
	return s.client.Set(ctx, s.cfg.Key, token, s.cfg.TokenTTL).Err()
}

// Clear removes the token key
func (s *Storage) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.cfg.Key).Err()
}
