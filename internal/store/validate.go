package store

import (
	"errors"
	"fmt"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

// ErrInvalid wraps record validation failures at the store boundary.
var ErrInvalid = errors.New("invalid record")

// ValidateStatement checks statement metadata before it is written.
func ValidateStatement(s *models.BankStatement) error {
	if s.UserID == "" {
		return fmt.Errorf("%w: statement: user_id is required", ErrInvalid)
	}
	if s.PeriodStart != nil && s.PeriodEnd != nil && s.PeriodEnd.Before(s.PeriodStart.Time) {
		return fmt.Errorf("%w: statement: period_end before period_start", ErrInvalid)
	}
	return nil
}

// ValidateCategory checks a category before it is written.
func ValidateCategory(c *models.Category) error {
	switch {
	case c.UserID == "":
		return fmt.Errorf("%w: category: user_id is required", ErrInvalid)
	case c.Name == "":
		return fmt.Errorf("%w: category: name is required", ErrInvalid)
	case c.Type != models.IncomeCategory && c.Type != models.ExpenseCategory:
		return fmt.Errorf("%w: category: type must be income or expense", ErrInvalid)
	}
	return nil
}

// ValidateSale checks a sale before it is written.
func ValidateSale(s *models.Sale) error {
	switch {
	case s.UserID == "":
		return fmt.Errorf("%w: sale: user_id is required", ErrInvalid)
	case s.Date.IsZero():
		return fmt.Errorf("%w: sale: date is required", ErrInvalid)
	case s.Amount < 0:
		return fmt.Errorf("%w: sale: amount must be non-negative", ErrInvalid)
	}
	return nil
}

// ValidateExpense checks an expense before it is written.
func ValidateExpense(e *models.Expense) error {
	switch {
	case e.UserID == "":
		return fmt.Errorf("%w: expense: user_id is required", ErrInvalid)
	case e.Date.IsZero():
		return fmt.Errorf("%w: expense: date is required", ErrInvalid)
	case e.Amount < 0:
		return fmt.Errorf("%w: expense: amount must be non-negative", ErrInvalid)
	}
	return nil
}

// ValidateTransaction wraps the record's own checks with ErrInvalid.
func ValidateTransaction(t *models.BankTransaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ValidateCheck wraps the record's own checks with ErrInvalid.
func ValidateCheck(c *models.Check) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
