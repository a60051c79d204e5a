package models

import "github.com/shopspring/decimal"

// Request records for the engine entry points. Validation tags are enforced
// at the handler boundary before anything touches a store.

type CreateDomiciliationRequest struct {
	Creditor    string          `json:"creditor" validate:"required,max=120"`
	CompanyIBAN string          `json:"companyIban" validate:"required,min=15,max=34"`
	ClientIBAN  string          `json:"clientIban" validate:"required,min=15,max=34"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Periodicity string          `json:"periodicity" validate:"required"`
}

type CreateTransferRequest struct {
	OriginIBAN      string          `json:"originIban" validate:"required,min=15,max=34"`
	DestinationIBAN string          `json:"destinationIban" validate:"required,min=15,max=34"`
	Beneficiary     string          `json:"beneficiary" validate:"required,max=120"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	Concept         string          `json:"concept" validate:"max=200"`
}

type CreatePayrollIncomeRequest struct {
	Company     string          `json:"company" validate:"required,max=120"`
	CIF         string          `json:"cif" validate:"required,max=20"`
	CompanyIBAN string          `json:"companyIban" validate:"required,min=15,max=34"`
	ClientIBAN  string          `json:"clientIban" validate:"required,min=15,max=34"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
}

type CreateCardPaymentRequest struct {
	Merchant   string          `json:"merchant" validate:"required,max=120"`
	CardNumber string          `json:"cardNumber" validate:"required,min=12,max=19"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}
