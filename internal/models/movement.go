package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind tags the single payload a movement carries.
type MovementKind string

const (
	MovementDomiciliation MovementKind = "domiciliacion"
	MovementPayroll       MovementKind = "nomina"
	MovementCardPayment   MovementKind = "tarjeta"
	MovementTransfer      MovementKind = "transferencia"
)

// DomiciliationCharge records one mandate installment collected from an account.
type DomiciliationCharge struct {
	MandateGUID string          `json:"mandate_guid"`
	Creditor    string          `json:"creditor"`
	CompanyIBAN string          `json:"company_iban"`
	ClientIBAN  string          `json:"client_iban"`
	Amount      decimal.Decimal `json:"amount"`
}

// PayrollIncome records a salary deposit from a company.
type PayrollIncome struct {
	Company     string          `json:"company"`
	CIF         string          `json:"cif"`
	CompanyIBAN string          `json:"company_iban"`
	ClientIBAN  string          `json:"client_iban"`
	Amount      decimal.Decimal `json:"amount"`
}

// CardPayment records a merchant charge against the card's account.
type CardPayment struct {
	Merchant   string          `json:"merchant"`
	CardNumber string          `json:"card_number"`
	Amount     decimal.Decimal `json:"amount"`
}

// TransferLeg is one side of a transfer. Amount is signed: positive for the
// credit leg, negative for the debit leg. Only a credit leg can be revoked,
// and Revoked moves false to true exactly once.
type TransferLeg struct {
	OriginIBAN      string          `json:"origin_iban"`
	DestinationIBAN string          `json:"destination_iban"`
	Beneficiary     string          `json:"beneficiary"`
	Amount          decimal.Decimal `json:"amount"`
	Revoked         bool            `json:"revoked"`
}

// Movement is one immutable financial event. Kind selects exactly one of the
// payload pointers; the constructors below are the only sanctioned way to
// build one, so a populated payload without its matching tag never exists.
type Movement struct {
	GUID       string       `json:"guid"`
	ClientGUID string       `json:"client_guid"`
	Kind       MovementKind `json:"kind"`
	CreatedAt  time.Time    `json:"created_at"`

	Domiciliation *DomiciliationCharge `json:"domiciliation,omitempty"`
	Payroll       *PayrollIncome       `json:"payroll,omitempty"`
	Card          *CardPayment         `json:"card,omitempty"`
	Transfer      *TransferLeg         `json:"transfer,omitempty"`
}

var ErrMalformedMovement = errors.New("movement payload does not match its kind")

func newMovement(clientGUID string, kind MovementKind) Movement {
	return Movement{
		GUID:       uuid.New().String(),
		ClientGUID: clientGUID,
		Kind:       kind,
		CreatedAt:  time.Now().UTC(),
	}
}

func NewDomiciliationMovement(clientGUID string, charge DomiciliationCharge) Movement {
	m := newMovement(clientGUID, MovementDomiciliation)
	m.Domiciliation = &charge
	return m
}

func NewPayrollMovement(clientGUID string, income PayrollIncome) Movement {
	m := newMovement(clientGUID, MovementPayroll)
	m.Payroll = &income
	return m
}

func NewCardPaymentMovement(clientGUID string, payment CardPayment) Movement {
	m := newMovement(clientGUID, MovementCardPayment)
	m.Card = &payment
	return m
}

func NewTransferMovement(clientGUID string, leg TransferLeg) Movement {
	m := newMovement(clientGUID, MovementTransfer)
	m.Transfer = &leg
	return m
}

// Validate checks that the tag and the populated payload agree and that no
// other payload is set.
func (m *Movement) Validate() error {
	populated := 0
	if m.Domiciliation != nil {
		populated++
	}
	if m.Payroll != nil {
		populated++
	}
	if m.Card != nil {
		populated++
	}
	if m.Transfer != nil {
		populated++
	}
	if populated != 1 {
		return ErrMalformedMovement
	}

	switch m.Kind {
	case MovementDomiciliation:
		if m.Domiciliation == nil {
			return ErrMalformedMovement
		}
	case MovementPayroll:
		if m.Payroll == nil {
			return ErrMalformedMovement
		}
	case MovementCardPayment:
		if m.Card == nil {
			return ErrMalformedMovement
		}
	case MovementTransfer:
		if m.Transfer == nil {
			return ErrMalformedMovement
		}
	default:
		return ErrMalformedMovement
	}
	return nil
}

// IsCreditLeg reports whether this movement is the receiving side of a
// transfer. Debit legs have no state machine and can never be revoked.
func (m *Movement) IsCreditLeg() bool {
	return m.Kind == MovementTransfer && m.Transfer != nil && m.Transfer.Amount.IsPositive()
}
