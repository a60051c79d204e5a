package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Tiered composes the local and distributed tiers into the cache-aside policy
// every service uses: reads check local first, then distributed (repopulating
// local on a hit); writes and deletes go through both. Tier failures on the
// read path are logged and treated as misses so the store stays the source of
// truth; only decode failures surface.
type Tiered struct {
	local       Cache
	distributed Cache
}

func NewTiered(local, distributed Cache) *Tiered {
	return &Tiered{local: local, distributed: distributed}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b, found, err := t.local.Get(ctx, key); err == nil && found {
		return b, true, nil
	} else if err != nil {
		return nil, false, err
	}

	if t.distributed == nil {
		return nil, false, nil
	}

	b, found, err := t.distributed.Get(ctx, key)
	if err != nil {
		log.Printf("[CACHE] Distributed read failed for %s: %v", key, err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}

	if err := t.local.Set(ctx, key, b, TTL); err != nil {
		log.Printf("[CACHE] Local repopulate failed for %s: %v", key, err)
	}
	return b, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if t.distributed == nil {
		return nil
	}
	if err := t.distributed.Set(ctx, key, value, ttl); err != nil {
		log.Printf("[CACHE] Distributed write failed for %s: %v", key, err)
	}
	return nil
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	if err := t.local.Delete(ctx, key); err != nil {
		return err
	}
	if t.distributed == nil {
		return nil
	}
	if err := t.distributed.Delete(ctx, key); err != nil {
		log.Printf("[CACHE] Distributed delete failed for %s: %v", key, err)
	}
	return nil
}

// GetJSON reads key and unmarshals the hit into dest. A present entry that
// fails to unmarshal returns ErrDecode.
func GetJSON(ctx context.Context, c *Tiered, key string, dest any) (bool, error) {
	b, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, ErrDecode
	}
	return true, nil
}

// SetJSON marshals value and writes it through both tiers with the fixed TTL.
func SetJSON(ctx context.Context, c *Tiered, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, TTL)
}
