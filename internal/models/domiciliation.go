package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Periodicity is how often a mandate is collected.
type Periodicity string

const (
	PeriodicityMonthly   Periodicity = "mensual"
	PeriodicityQuarterly Periodicity = "trimestral"
	PeriodicityAnnual    Periodicity = "anual"
)

var ErrInvalidPeriodicity = errors.New("unknown periodicity")

// ParsePeriodicity maps a request string to the fixed enumeration.
func ParsePeriodicity(s string) (Periodicity, error) {
	switch Periodicity(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodicityMonthly:
		return PeriodicityMonthly, nil
	case PeriodicityQuarterly:
		return PeriodicityQuarterly, nil
	case PeriodicityAnnual:
		return PeriodicityAnnual, nil
	default:
		return "", ErrInvalidPeriodicity
	}
}

// Domiciliation is a recurring-collection mandate tied to one account.
// Active only ever transitions true to false; rows are never deleted.
type Domiciliation struct {
	ID          int64           `json:"id" db:"id"`
	GUID        string          `json:"guid" db:"guid"`
	ClientGUID  string          `json:"client_guid" db:"client_guid"`
	Creditor    string          `json:"creditor" db:"creditor"`
	CompanyIBAN string          `json:"company_iban" db:"company_iban"`
	ClientIBAN  string          `json:"client_iban" db:"client_iban"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Periodicity Periodicity     `json:"periodicity" db:"periodicity"`
	Active      bool            `json:"active" db:"active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	LastRunAt   *time.Time      `json:"last_run_at,omitempty" db:"last_run_at"`
}
