package services

import (
	"errors"
	"fmt"
)

// Business outcomes are routine branches, not exceptional failures, so every
// engine returns one of these sentinels (possibly wrapped with context) and
// the handler layer maps them to a response with errors.Is.
var (
	ErrClientNotFound   = errors.New("client not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrCardNotFound     = errors.New("card not found")
	ErrMovementNotFound = errors.New("movement not found")
	ErrMandateNotFound  = errors.New("domiciliation not found")

	ErrAccountNotOwned  = errors.New("account does not belong to the requesting client")
	ErrMovementNotOwned = errors.New("movement does not belong to the requesting client")
	ErrMandateNotOwned  = errors.New("domiciliation does not belong to the requesting client")
	ErrAccountMismatch  = errors.New("account iban does not belong to the requesting client")

	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrSameAccountTransfer   = errors.New("origin and destination accounts are the same")
	ErrAlreadyRevoked        = errors.New("transfer already revoked")
	ErrNotARecipientTransfer = errors.New("only the credit leg of a transfer can be revoked")

	ErrTransactionFailed = errors.New("balance transaction failed")
)

// txFailed wraps a store error with the account and operation it broke on.
// The underlying message is only ever exposed as this single wrapped detail.
func txFailed(op, accountGUID string, err error) error {
	return fmt.Errorf("%w: %s on account %s: %v", ErrTransactionFailed, op, accountGUID, err)
}
