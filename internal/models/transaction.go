package models

import (
	"errors"
	"time"
)

// TxnType is the direction of a bank transaction. Amounts are always stored
// as positive magnitudes; direction lives here only.
type TxnType string

const (
	Debit  TxnType = "debit"
	Credit TxnType = "credit"
)

// Valid reports whether t is a known direction.
func (t TxnType) Valid() bool {
	return t == Debit || t == Credit
}

// ManualStatementID marks transactions entered by hand rather than parsed.
const ManualStatementID = "manual"

// BankTransaction is one parsed or manually entered bank ledger line.
//
// MatchedCheckID and CategoryID are weak references: the referenced record may
// have been deleted, in which case readers treat the reference as absent.
type BankTransaction struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	StatementID    string    `db:"statement_id" json:"statement_id"`
	Date           Date      `db:"date" json:"date"`
	Description    string    `db:"description" json:"description"`
	Amount         float64   `db:"amount" json:"amount"`
	Type           TxnType   `db:"type" json:"type"`
	CheckNumber    string    `db:"check_number" json:"check_number,omitempty"`
	MatchedCheckID string    `db:"matched_check_id" json:"matched_check_id,omitempty"`
	CategoryID     string    `db:"category_id" json:"category_id,omitempty"`
	Validated      bool      `db:"validated" json:"validated"`
	// Position is the source line order within the statement.
	Position       int       `db:"position" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Validate checks the record invariants enforced at the store boundary.
func (t *BankTransaction) Validate() error {
	switch {
	case t.UserID == "":
		return errors.New("transaction: user_id is required")
	case t.Date.IsZero():
		return errors.New("transaction: date is required")
	case t.Amount < 0:
		return errors.New("transaction: amount must be a non-negative magnitude")
	case !t.Type.Valid():
		return errors.New("transaction: type must be debit or credit")
	}
	return nil
}

// BankStatement is the metadata of one uploaded statement document.
type BankStatement struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	Filename          string    `db:"filename" json:"filename"`
	PeriodStart       *Date     `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd         *Date     `db:"period_end" json:"period_end,omitempty"`
	StartingBalance   *float64  `db:"starting_balance" json:"starting_balance,omitempty"`
	EndingBalance     *float64  `db:"ending_balance" json:"ending_balance,omitempty"`
	TransactionsCount int       `db:"transactions_count" json:"transactions_count"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
