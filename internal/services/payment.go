package services

import (
	"context"
	"fmt"

	"github.com/bancoatlas/backoffice/internal/audit"
	"github.com/bancoatlas/backoffice/internal/models"
)

// PaymentService books externally-originated events against local accounts:
// payroll deposits coming in from companies and card charges coming in from
// merchants. Same shape as the transfer engine, one leg each.
type PaymentService struct {
	directory Directory
	movements MovementRecorder
	notifier  Notifier
	audit     *audit.Logger
}

func NewPaymentService(directory Directory, movements MovementRecorder, notifier Notifier) *PaymentService {
	return &PaymentService{
		directory: directory,
		movements: movements,
		notifier:  notifier,
		audit:     audit.NewLogger(),
	}
}

// CreatePayrollIncome credits a salary deposit to the account behind the
// client IBAN and records one payroll movement.
func (s *PaymentService) CreatePayrollIncome(ctx context.Context, req models.CreatePayrollIncomeRequest) (*models.Movement, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	account, err := s.directory.GetByIBAN(ctx, req.ClientIBAN)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	movement := models.NewPayrollMovement(account.ClientGUID, models.PayrollIncome{
		Company:     req.Company,
		CIF:         req.CIF,
		CompanyIBAN: req.CompanyIBAN,
		ClientIBAN:  req.ClientIBAN,
		Amount:      req.Amount,
	})

	if _, err := s.directory.MutateBalanceOutbox(ctx, account.GUID, req.Amount, &movement); err != nil {
		s.audit.LogError("PAYROLL_CREDIT", account.GUID, err)
		return nil, err
	}
	s.audit.LogMovement("PAYROLL_CREDIT", movement.GUID, account.GUID, req.Amount)

	if err := s.movements.Append(ctx, &movement); err != nil {
		return nil, err
	}
	s.directory.MarkOutboxDispatched(ctx, movement.GUID)

	notify(s.notifier, account.ClientGUID,
		fmt.Sprintf("Nómina de %s recibida de %s", req.Amount.StringFixed(2), req.Company),
		NotifyPayroll)
	return &movement, nil
}

// CreateCardPayment debits a merchant charge from the account linked to the
// card and records one card-payment movement.
func (s *PaymentService) CreateCardPayment(ctx context.Context, req models.CreateCardPaymentRequest) (*models.Movement, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	card, err := s.directory.ResolveCardByNumber(ctx, req.CardNumber)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	account, err := s.directory.ResolveAccountByCardGUID(ctx, card.GUID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.Balance.LessThan(req.Amount) {
		return nil, ErrInsufficientFunds
	}

	movement := models.NewCardPaymentMovement(account.ClientGUID, models.CardPayment{
		Merchant:   req.Merchant,
		CardNumber: req.CardNumber,
		Amount:     req.Amount,
	})

	if _, err := s.directory.MutateBalanceOutbox(ctx, account.GUID, req.Amount.Neg(), &movement); err != nil {
		s.audit.LogError("CARD_DEBIT", account.GUID, err)
		return nil, err
	}
	s.audit.LogMovement("CARD_DEBIT", movement.GUID, account.GUID, req.Amount.Neg())

	if err := s.movements.Append(ctx, &movement); err != nil {
		return nil, err
	}
	s.directory.MarkOutboxDispatched(ctx, movement.GUID)

	notify(s.notifier, account.ClientGUID,
		fmt.Sprintf("Pago de %s con tarjeta en %s", req.Amount.StringFixed(2), req.Merchant),
		NotifyCardPayment)
	return &movement, nil
}
