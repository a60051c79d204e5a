package cache

import (
	"context"
	"errors"
	"time"
)

// TTL is the fixed lifetime applied to every write-through and every
// read-repopulate, on both tiers. Existing deployments expect 30 minutes.
const TTL = 30 * time.Minute

// ErrDecode is returned when a cache hit cannot be deserialized into the
// expected shape. A corrupt entry signals a deeper problem, so callers treat
// it as fatal for the request instead of silently falling through.
var ErrDecode = errors.New("cache entry could not be decoded")

// Cache is one tier. Get returns (value, found, error); a miss is not an
// error. The process-local and distributed implementations are composed by
// Tiered below.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builders. The prefixes interoperate with existing deployments and must
// not change.

func AccountKey(id string) string { return "Cuenta:" + id }

func MovementKey(id string) string { return "Movimientos:" + id }

func DomiciliationKey(id string) string { return "Domiciliaciones:" + id }
