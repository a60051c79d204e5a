package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Local is the process-local tier, backed by an expiring in-memory store.
type Local struct {
	store *gocache.Cache
}

func NewLocal() *Local {
	return &Local{store: gocache.New(TTL, 10*time.Minute)}
}

func (l *Local) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := l.store.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, ErrDecode
	}
	return b, true, nil
}

func (l *Local) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	l.store.Set(key, value, ttl)
	return nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	l.store.Delete(key)
	return nil
}
