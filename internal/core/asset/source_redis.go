package asset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 5 * time.Second

// Redis reads assets stored as plain string values under Prefix+name.
type Redis struct {
	client  redis.Cmdable
	prefix  string
	timeout time.Duration
}

type RedisOption func(*Redis)

// WithKeyPrefix namespaces asset keys, e.g. "assets:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithTimeout bounds every lookup.
func WithTimeout(d time.Duration) RedisOption {
	return func(r *Redis) { r.timeout = d }
}

func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{client: client, timeout: defaultRedisTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Load(name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	data, err := r.client.Get(ctx, r.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", r.prefix+name, err)
	}
	return data, nil
}

// Store writes data under name. Used to seed asset databases.
func (r *Redis) Store(ctx context.Context, name string, data []byte) error {
	return r.client.Set(ctx, r.prefix+name, data, 0).Err()
}
