package services

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/bancoatlas/backoffice/internal/audit"
	"github.com/bancoatlas/backoffice/internal/models"
)

// Directory is what the engines need from the account directory. The
// concrete *AccountDirectory satisfies it; tests substitute a mock.
type Directory interface {
	GetByGUID(ctx context.Context, guid string) (*models.Account, error)
	GetByIBAN(ctx context.Context, iban string) (*models.Account, error)
	MutateBalance(ctx context.Context, guid string, delta decimal.Decimal) (*models.Account, error)
	MutateBalanceOutbox(ctx context.Context, guid string, delta decimal.Decimal, movement *models.Movement) (*models.Account, error)
	MarkOutboxDispatched(ctx context.Context, movementGUID string)
	ResolveClientByGUID(ctx context.Context, guid string) (*models.Client, error)
	ResolveClientByEmail(ctx context.Context, email string) (*models.Client, error)
	ResolveCardByNumber(ctx context.Context, number string) (*models.Card, error)
	ResolveAccountByCardGUID(ctx context.Context, cardGUID string) (*models.Account, error)
}

// MovementRecorder is the slice of the movement log the engines drive.
type MovementRecorder interface {
	Append(ctx context.Context, m *models.Movement) error
	GetByGUID(ctx context.Context, guid string) (*models.Movement, error)
	Replace(ctx context.Context, guid string, m *models.Movement) error
}

// SettlementSender forwards credit transfers whose destination lives at
// another institution. Best-effort, like notifications.
type SettlementSender interface {
	SendCreditTransfer(ctx context.Context, originIBAN, destinationIBAN, beneficiary string, amount decimal.Decimal) error
}

// TransferService settles transfers between accounts and compensating
// reversals of settled transfers. Each leg runs in its own store
// transaction; there is no cross-account atomicity, only the outbox making
// the balance/log gap recoverable.
type TransferService struct {
	directory  Directory
	movements  MovementRecorder
	notifier   Notifier
	settlement SettlementSender
	audit      *audit.Logger
}

func NewTransferService(directory Directory, movements MovementRecorder, notifier Notifier, settlement SettlementSender) *TransferService {
	return &TransferService{
		directory:  directory,
		movements:  movements,
		notifier:   notifier,
		settlement: settlement,
		audit:      audit.NewLogger(),
	}
}

// TransferResult carries the movements recorded for one settled transfer.
// DebitLeg is always present; CreditLeg only when the destination account is
// held at this institution.
type TransferResult struct {
	DebitLeg  *models.Movement `json:"debitLeg"`
	CreditLeg *models.Movement `json:"creditLeg,omitempty"`
}

// CreateTransfer settles a transfer from the principal's account. The
// destination is credited before the origin is debited: a failure between the
// two risks a transient double-credit, never funds reported nowhere.
func (s *TransferService) CreateTransfer(ctx context.Context, principal models.Principal, req models.CreateTransferRequest) (*TransferResult, error) {
	if req.OriginIBAN == req.DestinationIBAN {
		return nil, ErrSameAccountTransfer
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	origin, err := s.directory.GetByIBAN(ctx, req.OriginIBAN)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, ErrAccountNotFound
	}
	if origin.ClientGUID != principal.ClientGUID {
		return nil, ErrAccountNotOwned
	}
	if origin.Balance.LessThan(req.Amount) {
		return nil, ErrInsufficientFunds
	}

	// Destination may legitimately be another bank; nil is not an error.
	destination, err := s.directory.GetByIBAN(ctx, req.DestinationIBAN)
	if err != nil {
		return nil, err
	}

	result := &TransferResult{}

	if destination != nil {
		creditLeg := models.NewTransferMovement(destination.ClientGUID, models.TransferLeg{
			OriginIBAN:      req.OriginIBAN,
			DestinationIBAN: req.DestinationIBAN,
			Beneficiary:     req.Beneficiary,
			Amount:          req.Amount,
		})
		if _, err := s.directory.MutateBalanceOutbox(ctx, destination.GUID, req.Amount, &creditLeg); err != nil {
			s.audit.LogError("TRANSFER_CREDIT", destination.GUID, err)
			return nil, err
		}
		s.audit.LogMovement("TRANSFER_CREDIT", creditLeg.GUID, destination.GUID, req.Amount)
		result.CreditLeg = &creditLeg
	}

	debitLeg := models.NewTransferMovement(origin.ClientGUID, models.TransferLeg{
		OriginIBAN:      req.OriginIBAN,
		DestinationIBAN: req.DestinationIBAN,
		Beneficiary:     req.Beneficiary,
		Amount:          req.Amount.Neg(),
	})
	if _, err := s.directory.MutateBalanceOutbox(ctx, origin.GUID, req.Amount.Neg(), &debitLeg); err != nil {
		// Destination already credited; the credit leg stays in the outbox
		// and the gap is reported, not masked.
		s.audit.LogError("TRANSFER_DEBIT", origin.GUID, err)
		if result.CreditLeg != nil {
			log.Printf("[TRANSFER] Origin debit failed after destination credit, movement %s: %v", result.CreditLeg.GUID, err)
		}
		return nil, err
	}
	s.audit.LogMovement("TRANSFER_DEBIT", debitLeg.GUID, origin.GUID, req.Amount.Neg())
	result.DebitLeg = &debitLeg

	// Credit leg recorded first, then debit leg. Appends happen before any
	// notification; failures leave the outbox row pending for the drainer.
	if result.CreditLeg != nil {
		s.appendLeg(ctx, result.CreditLeg)
	}
	s.appendLeg(ctx, &debitLeg)

	notify(s.notifier, origin.ClientGUID,
		fmt.Sprintf("Transferencia de %s a favor de %s enviada", req.Amount.StringFixed(2), req.Beneficiary),
		NotifyTransfer)
	if destination != nil {
		notify(s.notifier, destination.ClientGUID,
			fmt.Sprintf("Transferencia de %s recibida de %s", req.Amount.StringFixed(2), req.OriginIBAN),
			NotifyTransfer)
	} else if s.settlement != nil {
		if err := s.settlement.SendCreditTransfer(ctx, req.OriginIBAN, req.DestinationIBAN, req.Beneficiary, req.Amount); err != nil {
			log.Printf("[TRANSFER] Settlement message for %s failed: %v", req.DestinationIBAN, err)
		}
	}

	return result, nil
}

// RevokeTransfer reverses a settled transfer by its credit-leg movement. The
// original record is flagged revoked but never deleted, and two compensating
// legs are appended so the audit trail shows both directions.
func (s *TransferService) RevokeTransfer(ctx context.Context, principal models.Principal, movementGUID string) (*TransferResult, error) {
	movement, err := s.movements.GetByGUID(ctx, movementGUID)
	if err != nil {
		return nil, err
	}
	if movement == nil || movement.Kind != models.MovementTransfer || movement.Transfer == nil {
		return nil, ErrMovementNotFound
	}
	if movement.ClientGUID != principal.ClientGUID {
		return nil, ErrMovementNotOwned
	}
	if movement.Transfer.Amount.IsNegative() {
		return nil, ErrNotARecipientTransfer
	}
	if movement.Transfer.Revoked {
		return nil, ErrAlreadyRevoked
	}

	amount := movement.Transfer.Amount

	// The original destination becomes the new origin.
	newOrigin, err := s.directory.GetByIBAN(ctx, movement.Transfer.DestinationIBAN)
	if err != nil {
		return nil, err
	}
	if newOrigin == nil {
		return nil, ErrAccountNotFound
	}
	if newOrigin.ClientGUID != principal.ClientGUID {
		return nil, ErrAccountNotOwned
	}
	if newOrigin.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	newDestination, err := s.directory.GetByIBAN(ctx, movement.Transfer.OriginIBAN)
	if err != nil {
		return nil, err
	}

	result := &TransferResult{}
	beneficiary := movement.Transfer.Beneficiary

	if newDestination != nil {
		creditLeg := models.NewTransferMovement(newDestination.ClientGUID, models.TransferLeg{
			OriginIBAN:      movement.Transfer.DestinationIBAN,
			DestinationIBAN: movement.Transfer.OriginIBAN,
			Beneficiary:     beneficiary,
			Amount:          amount,
		})
		if _, err := s.directory.MutateBalanceOutbox(ctx, newDestination.GUID, amount, &creditLeg); err != nil {
			s.audit.LogError("REVOCATION_CREDIT", newDestination.GUID, err)
			return nil, err
		}
		s.audit.LogMovement("REVOCATION_CREDIT", creditLeg.GUID, newDestination.GUID, amount)
		result.CreditLeg = &creditLeg
	}

	debitLeg := models.NewTransferMovement(newOrigin.ClientGUID, models.TransferLeg{
		OriginIBAN:      movement.Transfer.DestinationIBAN,
		DestinationIBAN: movement.Transfer.OriginIBAN,
		Beneficiary:     beneficiary,
		Amount:          amount.Neg(),
	})
	if _, err := s.directory.MutateBalanceOutbox(ctx, newOrigin.GUID, amount.Neg(), &debitLeg); err != nil {
		s.audit.LogError("REVOCATION_DEBIT", newOrigin.GUID, err)
		if result.CreditLeg != nil {
			log.Printf("[TRANSFER] Revocation debit failed after credit, movement %s: %v", result.CreditLeg.GUID, err)
		}
		return nil, err
	}
	s.audit.LogMovement("REVOCATION_DEBIT", debitLeg.GUID, newOrigin.GUID, amount.Neg())
	result.DebitLeg = &debitLeg

	if result.CreditLeg != nil {
		s.appendLeg(ctx, result.CreditLeg)
	}
	s.appendLeg(ctx, &debitLeg)

	movement.Transfer.Revoked = true
	if err := s.movements.Replace(ctx, movement.GUID, movement); err != nil {
		return nil, err
	}

	notify(s.notifier, principal.ClientGUID,
		fmt.Sprintf("Transferencia de %s de %s revocada", amount.StringFixed(2), beneficiary),
		NotifyRevocation)
	return result, nil
}

func (s *TransferService) appendLeg(ctx context.Context, leg *models.Movement) {
	if err := s.movements.Append(ctx, leg); err != nil {
		// Balance is committed; the pending outbox row keeps this leg
		// recoverable by the drainer.
		log.Printf("[TRANSFER] Movement append failed for %s: %v", leg.GUID, err)
		return
	}
	s.directory.MarkOutboxDispatched(ctx, leg.GUID)
}
