package models

import (
	"errors"
	"time"
)

// CheckStatus is the state of an issued check.
type CheckStatus string

const (
	CheckPending   CheckStatus = "pending"
	CheckCleared   CheckStatus = "cleared"
	CheckCancelled CheckStatus = "cancelled"
)

// Check is a check issued by the user, whether or not the bank has cleared it.
type Check struct {
	ID                string      `db:"id" json:"id"`
	UserID            string      `db:"user_id" json:"user_id"`
	CheckNumber       string      `db:"check_number" json:"check_number"`
	DateIssued        Date        `db:"date_issued" json:"date_issued"`
	Amount            float64     `db:"amount" json:"amount"`
	Payee             string      `db:"payee" json:"payee"`
	Description       string      `db:"description" json:"description,omitempty"`
	Status            CheckStatus `db:"status" json:"status"`
	DateCleared       *Date       `db:"date_cleared" json:"date_cleared"`
	BankTransactionID string      `db:"bank_transaction_id" json:"bank_transaction_id,omitempty"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
}

// Validate checks field and state invariants: cleared checks carry both the
// clearing date and the transaction reference, other states carry neither.
func (c *Check) Validate() error {
	switch {
	case c.UserID == "":
		return errors.New("check: user_id is required")
	case c.CheckNumber == "":
		return errors.New("check: check_number is required")
	case c.DateIssued.IsZero():
		return errors.New("check: date_issued is required")
	case c.Amount < 0:
		return errors.New("check: amount must be non-negative")
	}
	switch c.Status {
	case CheckCleared:
		if c.DateCleared == nil || c.BankTransactionID == "" {
			return errors.New("check: cleared check needs date_cleared and bank_transaction_id")
		}
	case CheckPending, CheckCancelled:
		if c.DateCleared != nil || c.BankTransactionID != "" {
			return errors.New("check: only cleared checks carry clearing details")
		}
	default:
		return errors.New("check: unknown status")
	}
	return nil
}
