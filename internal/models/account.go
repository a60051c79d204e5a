package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a client account row in the relational store. Balance is a
// NUMERIC column and is only ever changed through the account directory's
// guarded mutation; everything else treats it as read-only.
type Account struct {
	ID          int64           `json:"id" db:"id"`
	GUID        string          `json:"guid" db:"guid"`
	IBAN        string          `json:"iban" db:"iban"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	ClientGUID  string          `json:"client_guid" db:"client_guid"`
	ProductGUID string          `json:"product_guid" db:"product_guid"`
	CardGUID    *string         `json:"card_guid,omitempty" db:"card_guid"`
	Deleted     bool            `json:"deleted" db:"deleted"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Client owns accounts, cards and mandates. PasswordHash is an argon2id
// encoded string and never leaves the process.
type Client struct {
	ID           int64     `json:"id" db:"id"`
	GUID         string    `json:"guid" db:"guid"`
	Name         string    `json:"name" db:"name"`
	Surname      string    `json:"surname" db:"surname"`
	NIF          string    `json:"nif" db:"nif"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Card links a PAN to one account.
type Card struct {
	ID          int64     `json:"id" db:"id"`
	GUID        string    `json:"guid" db:"guid"`
	Number      string    `json:"number" db:"number"`
	AccountGUID string    `json:"account_guid" db:"account_guid"`
	ClientGUID  string    `json:"client_guid" db:"client_guid"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Principal is the authenticated caller, threaded explicitly through every
// engine call instead of being pulled from ambient request state.
type Principal struct {
	ClientGUID string `json:"client_guid"`
	Email      string `json:"email"`
}
