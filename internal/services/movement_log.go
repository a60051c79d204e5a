package services

import (
	"context"
	"fmt"
	"log"

	"github.com/bancoatlas/backoffice/internal/cache"
	"github.com/bancoatlas/backoffice/internal/models"
)

// MovementStore is the persistence behind the movement log. Replace exists
// only so the revoked flag of a transfer leg can be flipped; nothing else
// ever mutates a stored movement.
type MovementStore interface {
	Insert(ctx context.Context, m *models.Movement) error
	FindByGUID(ctx context.Context, guid string) (*models.Movement, error)
	FindByClient(ctx context.Context, clientGUID string) ([]models.Movement, error)
	FindAll(ctx context.Context) ([]models.Movement, error)
	Replace(ctx context.Context, guid string, m *models.Movement) error
}

// MovementLog is the append-only record of every financial event, with the
// same two-tier cache-aside policy as the account directory for single-record
// lookups. List reads always go to the store.
type MovementLog struct {
	store MovementStore
	cache *cache.Tiered
}

func NewMovementLog(store MovementStore, tiered *cache.Tiered) *MovementLog {
	return &MovementLog{store: store, cache: tiered}
}

// Append records one movement. It must complete before the caller reports
// success to the notification layer; cache refresh failures are logged, not
// surfaced, because the store already holds the record.
func (l *MovementLog) Append(ctx context.Context, m *models.Movement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := l.store.Insert(ctx, m); err != nil {
		return fmt.Errorf("appending movement %s: %w", m.GUID, err)
	}
	if err := cache.SetJSON(ctx, l.cache, cache.MovementKey(m.GUID), m); err != nil {
		log.Printf("[MOVEMENT] Failed to cache movement %s: %v", m.GUID, err)
	}
	return nil
}

// GetByGUID returns the movement or nil when no record exists. Absence is
// never cached.
func (l *MovementLog) GetByGUID(ctx context.Context, guid string) (*models.Movement, error) {
	var cached models.Movement
	found, err := cache.GetJSON(ctx, l.cache, cache.MovementKey(guid), &cached)
	if err != nil {
		return nil, err
	}
	if found {
		return &cached, nil
	}

	m, err := l.store.FindByGUID(ctx, guid)
	if err != nil || m == nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, l.cache, cache.MovementKey(guid), m); err != nil {
		log.Printf("[MOVEMENT] Failed to cache movement %s: %v", guid, err)
	}
	return m, nil
}

func (l *MovementLog) GetByClient(ctx context.Context, clientGUID string) ([]models.Movement, error) {
	return l.store.FindByClient(ctx, clientGUID)
}

func (l *MovementLog) GetAll(ctx context.Context) ([]models.Movement, error) {
	return l.store.FindAll(ctx)
}

// Replace swaps the stored record for guid, invalidating the stale cache
// entry before writing the fresh one. The revoked flag of a transfer leg only
// ever moves false to true; Replace refuses to move it back even if an engine
// bug asked it to.
func (l *MovementLog) Replace(ctx context.Context, guid string, m *models.Movement) error {
	if err := m.Validate(); err != nil {
		return err
	}

	existing, err := l.store.FindByGUID(ctx, guid)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrMovementNotFound
	}
	if existing.Kind == models.MovementTransfer && existing.Transfer != nil && existing.Transfer.Revoked &&
		m.Transfer != nil && !m.Transfer.Revoked {
		return ErrAlreadyRevoked
	}

	if err := l.cache.Delete(ctx, cache.MovementKey(guid)); err != nil {
		log.Printf("[MOVEMENT] Failed to invalidate movement %s: %v", guid, err)
	}
	if err := l.store.Replace(ctx, guid, m); err != nil {
		return fmt.Errorf("replacing movement %s: %w", guid, err)
	}
	if err := cache.SetJSON(ctx, l.cache, cache.MovementKey(guid), m); err != nil {
		log.Printf("[MOVEMENT] Failed to cache movement %s: %v", guid, err)
	}
	return nil
}
