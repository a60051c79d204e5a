package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/bancoatlas/backoffice/internal/models"
)

// OutboxDrainer replays movements whose balance change committed but whose
// log append never did. Rows are written by MutateBalanceOutbox in the same
// relational transaction as the balance change and marked dispatched by the
// synchronous path; anything still pending after a crash lands here and is
// retried until the movement log takes it.
type OutboxDrainer struct {
	db        *sql.DB
	movements MovementRecorder
	interval  time.Duration
	batchSize int
}

func NewOutboxDrainer(db *sql.DB, movements MovementRecorder) *OutboxDrainer {
	return &OutboxDrainer{
		db:        db,
		movements: movements,
		interval:  15 * time.Second,
		batchSize: 50,
	}
}

// Run drains pending rows until ctx is cancelled.
func (d *OutboxDrainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := d.DrainOnce(ctx); err != nil {
				log.Printf("[OUTBOX] Drain failed: %v", err)
			} else if n > 0 {
				log.Printf("[OUTBOX] Replayed %d pending movement(s)", n)
			}
		}
	}
}

// DrainOnce processes one batch of pending rows and reports how many were
// dispatched. Rows whose append fails keep status pending with attempts
// bumped, so they come around again next tick.
func (d *OutboxDrainer) DrainOnce(ctx context.Context) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, movement_guid, payload FROM movement_outbox WHERE status = 'pending' ORDER BY created_at LIMIT $1 FOR UPDATE SKIP LOCKED`,
		d.batchSize)
	if err != nil {
		return 0, err
	}

	type pendingRow struct {
		id           int64
		movementGUID string
		payload      []byte
	}
	var pending []pendingRow
	for rows.Next() {
		var r pendingRow
		if err := rows.Scan(&r.id, &r.movementGUID, &r.payload); err != nil {
			rows.Close()
			return 0, err
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	dispatched := 0
	now := time.Now()
	for _, row := range pending {
		if err := d.replay(ctx, row.movementGUID, row.payload); err != nil {
			log.Printf("[OUTBOX] Replay of movement %s failed: %v", row.movementGUID, err)
			if _, err := tx.ExecContext(ctx,
				`UPDATE movement_outbox SET attempts = attempts + 1 WHERE id = $1`, row.id); err != nil {
				return dispatched, err
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE movement_outbox SET status = 'dispatched', dispatched_at = $1 WHERE id = $2`, now, row.id); err != nil {
			return dispatched, err
		}
		dispatched++
	}

	return dispatched, tx.Commit()
}

func (d *OutboxDrainer) replay(ctx context.Context, movementGUID string, payload []byte) error {
	// The synchronous append may have succeeded with only the dispatched
	// mark lost; appending again would double-record the event.
	existing, err := d.movements.GetByGUID(ctx, movementGUID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	var movement models.Movement
	if err := json.Unmarshal(payload, &movement); err != nil {
		return err
	}
	return d.movements.Append(ctx, &movement)
}
