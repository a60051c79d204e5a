package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bancoatlas/backoffice/internal/cache"
	"github.com/bancoatlas/backoffice/internal/models"
)

// AccountDirectory is the only component with write access to account rows.
// Reads are cache-aside over both tiers; MutateBalance is the single
// sanctioned balance mutation and always runs inside a row-locked
// transaction.
type AccountDirectory struct {
	db    *sql.DB
	cache *cache.Tiered
}

func NewAccountDirectory(db *sql.DB, tiered *cache.Tiered) *AccountDirectory {
	return &AccountDirectory{db: db, cache: tiered}
}

var _ Directory = (*AccountDirectory)(nil)

const accountColumns = `id, guid, iban, balance, client_guid, product_guid, card_guid, deleted, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.GUID, &a.IBAN, &a.Balance, &a.ClientGUID,
		&a.ProductGUID, &a.CardGUID, &a.Deleted, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByGUID returns the account or nil when no row exists. Absence is never
// cached: only positive presence goes into the tiers.
func (d *AccountDirectory) GetByGUID(ctx context.Context, guid string) (*models.Account, error) {
	var cached models.Account
	found, err := cache.GetJSON(ctx, d.cache, cache.AccountKey(guid), &cached)
	if err != nil {
		return nil, err
	}
	if found {
		return &cached, nil
	}

	account, err := scanAccount(d.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM cuentas WHERE guid = $1 AND deleted = false`, guid))
	if err != nil || account == nil {
		return nil, err
	}

	d.refreshCache(ctx, account)
	return account, nil
}

// GetByIBAN resolves an account by IBAN. A nil result is expected for IBANs
// held at other institutions and is not an error.
func (d *AccountDirectory) GetByIBAN(ctx context.Context, iban string) (*models.Account, error) {
	var cached models.Account
	found, err := cache.GetJSON(ctx, d.cache, cache.AccountKey(iban), &cached)
	if err != nil {
		return nil, err
	}
	if found {
		return &cached, nil
	}

	account, err := scanAccount(d.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM cuentas WHERE iban = $1 AND deleted = false`, iban))
	if err != nil || account == nil {
		return nil, err
	}

	d.refreshCache(ctx, account)
	return account, nil
}

// MutateBalance applies delta to the account balance inside its own
// transaction and refreshes both cache tiers on success. The row is re-read
// under FOR UPDATE so concurrent mutations serialize on the store's row lock,
// and a debit that would leave the balance negative is rejected even when the
// caller already checked.
func (d *AccountDirectory) MutateBalance(ctx context.Context, guid string, delta decimal.Decimal) (*models.Account, error) {
	return d.mutate(ctx, guid, delta, nil)
}

// MutateBalanceOutbox is MutateBalance plus an outbox row recording the
// movement that must eventually reach the movement log, written in the same
// relational transaction as the balance change. A crash after commit leaves a
// pending row the drainer replays instead of a silent gap.
func (d *AccountDirectory) MutateBalanceOutbox(ctx context.Context, guid string, delta decimal.Decimal, movement *models.Movement) (*models.Account, error) {
	return d.mutate(ctx, guid, delta, movement)
}

func (d *AccountDirectory) mutate(ctx context.Context, guid string, delta decimal.Decimal, movement *models.Movement) (*models.Account, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, txFailed("begin", guid, err)
	}
	defer tx.Rollback()

	var account models.Account
	err = tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM cuentas WHERE guid = $1 AND deleted = false FOR UPDATE`, guid).
		Scan(&account.ID, &account.GUID, &account.IBAN, &account.Balance, &account.ClientGUID,
			&account.ProductGUID, &account.CardGUID, &account.Deleted, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, txFailed("lock", guid, err)
	}

	newBalance := account.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE cuentas SET balance = $1, updated_at = $2 WHERE guid = $3`,
		newBalance, now, guid); err != nil {
		return nil, txFailed("update", guid, err)
	}

	if movement != nil {
		payload, err := json.Marshal(movement)
		if err != nil {
			return nil, txFailed("outbox encode", guid, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO movement_outbox (movement_guid, payload, status, attempts, created_at) VALUES ($1, $2, 'pending', 0, $3)`,
			movement.GUID, payload, now); err != nil {
			return nil, txFailed("outbox insert", guid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, txFailed("commit", guid, err)
	}

	account.Balance = newBalance
	account.UpdatedAt = now
	d.refreshCache(ctx, &account)
	return &account, nil
}

// MarkOutboxDispatched flips the outbox row for a movement once the log
// append completed on the synchronous path.
func (d *AccountDirectory) MarkOutboxDispatched(ctx context.Context, movementGUID string) {
	if _, err := d.db.ExecContext(ctx,
		`UPDATE movement_outbox SET status = 'dispatched', dispatched_at = $1 WHERE movement_guid = $2 AND status = 'pending'`,
		time.Now(), movementGUID); err != nil {
		log.Printf("[OUTBOX] Failed to mark movement %s dispatched: %v", movementGUID, err)
	}
}

func (d *AccountDirectory) refreshCache(ctx context.Context, account *models.Account) {
	if err := cache.SetJSON(ctx, d.cache, cache.AccountKey(account.GUID), account); err != nil {
		log.Printf("[CACHE] Failed to refresh account %s: %v", account.GUID, err)
	}
	if err := cache.SetJSON(ctx, d.cache, cache.AccountKey(account.IBAN), account); err != nil {
		log.Printf("[CACHE] Failed to refresh account iban %s: %v", account.IBAN, err)
	}
}

// ResolveClientByGUID returns the client or nil when no row exists.
func (d *AccountDirectory) ResolveClientByGUID(ctx context.Context, guid string) (*models.Client, error) {
	var c models.Client
	err := d.db.QueryRowContext(ctx,
		`SELECT id, guid, name, surname, nif, email, password_hash, created_at FROM clientes WHERE guid = $1`, guid).
		Scan(&c.ID, &c.GUID, &c.Name, &c.Surname, &c.NIF, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolveClientByEmail is used by the login path.
func (d *AccountDirectory) ResolveClientByEmail(ctx context.Context, email string) (*models.Client, error) {
	var c models.Client
	err := d.db.QueryRowContext(ctx,
		`SELECT id, guid, name, surname, nif, email, password_hash, created_at FROM clientes WHERE email = $1`, email).
		Scan(&c.ID, &c.GUID, &c.Name, &c.Surname, &c.NIF, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolveCardByNumber returns the card or nil when no row exists.
func (d *AccountDirectory) ResolveCardByNumber(ctx context.Context, number string) (*models.Card, error) {
	var c models.Card
	err := d.db.QueryRowContext(ctx,
		`SELECT id, guid, number, account_guid, client_guid, created_at FROM tarjetas WHERE number = $1`, number).
		Scan(&c.ID, &c.GUID, &c.Number, &c.AccountGUID, &c.ClientGUID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolveAccountByCardGUID follows the card link back to its account.
func (d *AccountDirectory) ResolveAccountByCardGUID(ctx context.Context, cardGUID string) (*models.Account, error) {
	account, err := scanAccount(d.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM cuentas WHERE card_guid = $1 AND deleted = false`, cardGUID))
	if err != nil || account == nil {
		return nil, err
	}
	d.refreshCache(ctx, account)
	return account, nil
}
