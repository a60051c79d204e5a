package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Distributed is the shared tier over Redis.
type Distributed struct {
	client *redis.Client
}

func NewDistributed(client *redis.Client) *Distributed {
	return &Distributed{client: client}
}

func (d *Distributed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := d.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (d *Distributed) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return d.client.Set(ctx, key, value, ttl).Err()
}

func (d *Distributed) Delete(ctx context.Context, key string) error {
	return d.client.Del(ctx, key).Err()
}
