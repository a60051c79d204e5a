package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bancoatlas/backoffice/internal/cache"
	"github.com/bancoatlas/backoffice/internal/models"
)

// DomiciliationService manages recurring-collection mandates. Creation
// charges the first installment immediately, so a mandate only ever exists
// with its opening charge already applied.
type DomiciliationService struct {
	db        *sql.DB
	directory Directory
	movements MovementRecorder
	cache     *cache.Tiered
	notifier  Notifier
}

func NewDomiciliationService(db *sql.DB, directory Directory, movements MovementRecorder, tiered *cache.Tiered, notifier Notifier) *DomiciliationService {
	return &DomiciliationService{
		db:        db,
		directory: directory,
		movements: movements,
		cache:     tiered,
		notifier:  notifier,
	}
}

const mandateColumns = `id, guid, client_guid, creditor, company_iban, client_iban, amount, periodicity, active, created_at, last_run_at`

// Create validates the request against the client's account, debits the first
// installment and only then persists the mandate. A failed charge leaves no
// mandate behind.
func (s *DomiciliationService) Create(ctx context.Context, principal models.Principal, req models.CreateDomiciliationRequest) (*models.Domiciliation, error) {
	client, err := s.directory.ResolveClientByGUID(ctx, principal.ClientGUID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}

	account, err := s.directory.GetByIBAN(ctx, req.ClientIBAN)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.ClientGUID != client.GUID {
		return nil, ErrAccountMismatch
	}

	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if account.Balance.LessThan(req.Amount) {
		return nil, ErrInsufficientFunds
	}

	periodicity, err := models.ParsePeriodicity(req.Periodicity)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	mandate := &models.Domiciliation{
		GUID:        uuid.New().String(),
		ClientGUID:  client.GUID,
		Creditor:    req.Creditor,
		CompanyIBAN: req.CompanyIBAN,
		ClientIBAN:  req.ClientIBAN,
		Amount:      req.Amount,
		Periodicity: periodicity,
		Active:      true,
		CreatedAt:   now,
		LastRunAt:   &now,
	}

	movement := models.NewDomiciliationMovement(client.GUID, models.DomiciliationCharge{
		MandateGUID: mandate.GUID,
		Creditor:    req.Creditor,
		CompanyIBAN: req.CompanyIBAN,
		ClientIBAN:  req.ClientIBAN,
		Amount:      req.Amount,
	})

	// First installment. If the charge fails the mandate is never written.
	if _, err := s.directory.MutateBalanceOutbox(ctx, account.GUID, req.Amount.Neg(), &movement); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO domiciliaciones (guid, client_guid, creditor, company_iban, client_iban, amount, periodicity, active, created_at, last_run_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		mandate.GUID, mandate.ClientGUID, mandate.Creditor, mandate.CompanyIBAN, mandate.ClientIBAN,
		mandate.Amount, mandate.Periodicity, mandate.Active, mandate.CreatedAt, mandate.LastRunAt); err != nil {
		return nil, fmt.Errorf("persisting domiciliation %s: %w", mandate.GUID, err)
	}

	s.refreshCache(ctx, mandate)

	if err := s.movements.Append(ctx, &movement); err != nil {
		// Balance already committed; the outbox row keeps the charge recoverable.
		log.Printf("[DOMICILIATION] Movement append failed for mandate %s: %v", mandate.GUID, err)
	} else {
		s.directory.MarkOutboxDispatched(ctx, movement.GUID)
	}

	notify(s.notifier, client.GUID,
		fmt.Sprintf("Domiciliación de %s a favor de %s creada", req.Amount.StringFixed(2), req.Creditor),
		NotifyDomiciliation)
	return mandate, nil
}

// Deactivate flips a mandate inactive. Deactivating an already-inactive
// mandate is an idempotent no-op that still returns the current state.
func (s *DomiciliationService) Deactivate(ctx context.Context, guid string) (*models.Domiciliation, error) {
	return s.deactivate(ctx, guid, "")
}

// DeactivateOwn is Deactivate plus an ownership check against the principal.
func (s *DomiciliationService) DeactivateOwn(ctx context.Context, principal models.Principal, guid string) (*models.Domiciliation, error) {
	return s.deactivate(ctx, guid, principal.ClientGUID)
}

func (s *DomiciliationService) deactivate(ctx context.Context, guid, requiredOwner string) (*models.Domiciliation, error) {
	mandate, err := s.GetByGUID(ctx, guid)
	if err != nil {
		return nil, err
	}
	if mandate == nil {
		return nil, ErrMandateNotFound
	}
	if requiredOwner != "" && mandate.ClientGUID != requiredOwner {
		return nil, ErrMandateNotOwned
	}
	if !mandate.Active {
		return mandate, nil
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE domiciliaciones SET active = false WHERE guid = $1`, guid); err != nil {
		return nil, fmt.Errorf("deactivating domiciliation %s: %w", guid, err)
	}

	mandate.Active = false
	s.refreshCache(ctx, mandate)
	notify(s.notifier, mandate.ClientGUID,
		fmt.Sprintf("Domiciliación a favor de %s dada de baja", mandate.Creditor),
		NotifyDomiciliation)
	return mandate, nil
}

// GetByGUID resolves a mandate cache-aside, returning nil when no row exists.
func (s *DomiciliationService) GetByGUID(ctx context.Context, guid string) (*models.Domiciliation, error) {
	var cached models.Domiciliation
	found, err := cache.GetJSON(ctx, s.cache, cache.DomiciliationKey(guid), &cached)
	if err != nil {
		return nil, err
	}
	if found {
		return &cached, nil
	}

	var m models.Domiciliation
	err = s.db.QueryRowContext(ctx,
		`SELECT `+mandateColumns+` FROM domiciliaciones WHERE guid = $1`, guid).
		Scan(&m.ID, &m.GUID, &m.ClientGUID, &m.Creditor, &m.CompanyIBAN, &m.ClientIBAN,
			&m.Amount, &m.Periodicity, &m.Active, &m.CreatedAt, &m.LastRunAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, &m)
	return &m, nil
}

func (s *DomiciliationService) refreshCache(ctx context.Context, mandate *models.Domiciliation) {
	if err := cache.SetJSON(ctx, s.cache, cache.DomiciliationKey(mandate.GUID), mandate); err != nil {
		log.Printf("[CACHE] Failed to refresh domiciliation %s: %v", mandate.GUID, err)
	}
}
