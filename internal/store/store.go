// Package store defines the persistence contracts shared by the memory and
// SQL backends. Every read and write is scoped by user id.
package store

import (
	"context"
	"errors"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

// ErrNotFound is returned when a record does not exist for the calling user.
var ErrNotFound = errors.New("not found")

// DateRange is an inclusive date window. A zero bound is open.
type DateRange struct {
	From models.Date
	To   models.Date
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d models.Date) bool {
	if !r.From.IsZero() && d.Before(r.From.Time) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To.Time) {
		return false
	}
	return true
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	Type        models.TxnType
	StatementID string
	// Unmatched keeps only transactions with no matched check.
	Unmatched bool
	Validated *bool
	Range     DateRange
}

// Matches applies the filter to one record.
func (f TransactionFilter) Matches(t models.BankTransaction) bool {
	switch {
	case f.Type != "" && t.Type != f.Type:
		return false
	case f.StatementID != "" && t.StatementID != f.StatementID:
		return false
	case f.Unmatched && t.MatchedCheckID != "":
		return false
	case f.Validated != nil && t.Validated != *f.Validated:
		return false
	}
	return f.Range.Contains(t.Date)
}

// CheckFilter narrows ListChecks.
type CheckFilter struct {
	Status models.CheckStatus
}

// TransactionStore persists bank transactions. Lists are ordered by date,
// then creation, then source position.
type TransactionStore interface {
	InsertTransactions(ctx context.Context, txns []models.BankTransaction) ([]models.BankTransaction, error)
	CreateTransaction(ctx context.Context, txn *models.BankTransaction) error
	GetTransaction(ctx context.Context, userID, id string) (*models.BankTransaction, error)
	ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]models.BankTransaction, error)
	UpdateTransaction(ctx context.Context, txn *models.BankTransaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// CheckStore persists the check register. Lists are ordered by issue date.
type CheckStore interface {
	CreateCheck(ctx context.Context, c *models.Check) error
	GetCheck(ctx context.Context, userID, id string) (*models.Check, error)
	ListChecks(ctx context.Context, userID string, f CheckFilter) ([]models.Check, error)
	UpdateCheck(ctx context.Context, c *models.Check) error
	DeleteCheck(ctx context.Context, userID, id string) error
}

// StatementStore persists uploaded statement metadata.
type StatementStore interface {
	CreateStatement(ctx context.Context, s *models.BankStatement) error
	GetStatement(ctx context.Context, userID, id string) (*models.BankStatement, error)
	ListStatements(ctx context.Context, userID string) ([]models.BankStatement, error)
}

// CategoryStore persists the income/expense taxonomy.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, userID, id string) (*models.Category, error)
	ListCategories(ctx context.Context, userID string) ([]models.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error
}

// SaleStore persists manually recorded sales. Lists are ordered by date.
type SaleStore interface {
	CreateSale(ctx context.Context, s *models.Sale) error
	ListSales(ctx context.Context, userID string, r DateRange) ([]models.Sale, error)
	DeleteSale(ctx context.Context, userID, id string) error
}

// ExpenseStore persists manually recorded expenses. Lists are ordered by date.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e *models.Expense) error
	ListExpenses(ctx context.Context, userID string, r DateRange) ([]models.Expense, error)
	DeleteExpense(ctx context.Context, userID, id string) error
}

// Store is the full persistence surface.
type Store interface {
	TransactionStore
	CheckStore
	StatementStore
	CategoryStore
	SaleStore
	ExpenseStore
	Close() error
}
