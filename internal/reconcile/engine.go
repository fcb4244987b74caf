// Package reconcile matches the user's check register and sales against bank
// transactions and produces reconciliation reports. Matching is greedy and
// first-match-wins; mistakes are corrected through ManualMatch and Validate.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

var (
	ErrNotEligible     = errors.New("not eligible for matching")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidCategory = errors.New("invalid category")
)

// Store is the slice of persistence the engine needs.
type Store interface {
	store.TransactionStore
	store.CheckStore
	store.CategoryStore
	store.SaleStore
}

// Options tunes the matching heuristics.
type Options struct {
	// AmountTolerance is the strict upper bound on |a-b| for two amounts to match.
	AmountTolerance float64
	// DateWindowDays bounds the issue-to-posting distance for amount matches.
	DateWindowDays int
	// DepositWindow is how many recent bank-routed sales are checked for
	// deposits in transit. It is an approximation, not a guarantee.
	DepositWindow int
	// BankPaymentMethods lists sale payment methods that reach the bank.
	BankPaymentMethods []string
	Now                func() time.Time
}

// DefaultOptions returns the stock tolerances.
func DefaultOptions() Options {
	return Options{
		AmountTolerance:    0.01,
		DateWindowDays:     7,
		DepositWindow:      20,
		BankPaymentMethods: []string{"transfer", "wire", "check", "cheque", "transferencia", "deposit"},
		Now:                time.Now,
	}
}

// Engine runs reconciliation for one store.
type Engine struct {
	store     Store
	opts      Options
	tolerance decimal.Decimal
	bankPay   map[string]bool
	log       zerolog.Logger
}

// New creates an Engine.
func New(s Store, opts Options, log zerolog.Logger) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	bankPay := make(map[string]bool, len(opts.BankPaymentMethods))
	for _, m := range opts.BankPaymentMethods {
		bankPay[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return &Engine{
		store:     s,
		opts:      opts,
		tolerance: decimal.NewFromFloat(opts.AmountTolerance),
		bankPay:   bankPay,
		log:       log.With().Str("component", "reconcile").Logger(),
	}
}

func (e *Engine) today() models.Date {
	return models.DateOf(e.opts.Now())
}

func (e *Engine) amountsMatch(a, b float64) bool {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs().LessThan(e.tolerance)
}

// matches applies the auto-match rule: equal check numbers, or equal amounts
// issued and posted within the date window.
func (e *Engine) matches(txn models.BankTransaction, c models.Check) bool {
	if txn.CheckNumber != "" && txn.CheckNumber == c.CheckNumber {
		return true
	}
	if !e.amountsMatch(txn.Amount, c.Amount) {
		return false
	}
	return daysApart(txn.Date, c.DateIssued) <= e.opts.DateWindowDays
}

func daysApart(a, b models.Date) int {
	d := a.DaysTo(b)
	if d < 0 {
		d = -d
	}
	return d
}

// AutoMatch links unmatched debit transactions to pending checks and returns
// how many pairs were linked. Transactions are scanned in date order and each
// takes the first eligible check; a check is consumed at most once per pass.
func (e *Engine) AutoMatch(ctx context.Context, userID string) (int, error) {
	txns, err := e.store.ListTransactions(ctx, userID, store.TransactionFilter{Type: models.Debit})
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	checks, err := e.store.ListChecks(ctx, userID, store.CheckFilter{})
	if err != nil {
		return 0, fmt.Errorf("list checks: %w", err)
	}

	exists := make(map[string]bool, len(checks))
	var pending []models.Check
	for _, c := range checks {
		exists[c.ID] = true
		if c.Status == models.CheckPending {
			pending = append(pending, c)
		}
	}

	used := make([]bool, len(pending))
	matched := 0
	for i := range txns {
		txn := &txns[i]
		// A reference to a deleted check counts as unmatched.
		if txn.MatchedCheckID != "" && exists[txn.MatchedCheckID] {
			continue
		}
		for j := range pending {
			if used[j] || !e.matches(*txn, pending[j]) {
				continue
			}
			if err := e.link(ctx, txn, &pending[j]); err != nil {
				return matched, err
			}
			used[j] = true
			matched++
			break
		}
	}

	e.log.Info().
		Str("user_id", userID).
		Int("candidates", len(txns)).
		Int("pending_checks", len(pending)).
		Int("matched", matched).
		Msg("auto-match complete")
	return matched, nil
}

// link clears the check and then points the transaction at it. The two writes
// are not atomic; a failure between them leaves a cleared check whose
// transaction ManualMatch can still repair.
func (e *Engine) link(ctx context.Context, txn *models.BankTransaction, c *models.Check) error {
	if err := clearCheck(c, txn.ID, txn.Date); err != nil {
		return err
	}
	if err := e.store.UpdateCheck(ctx, c); err != nil {
		return fmt.Errorf("clear check %s: %w", c.ID, err)
	}
	txn.MatchedCheckID = c.ID
	if err := e.store.UpdateTransaction(ctx, txn); err != nil {
		return fmt.Errorf("link transaction %s: %w", txn.ID, err)
	}
	e.log.Debug().
		Str("transaction_id", txn.ID).
		Str("check_id", c.ID).
		Str("check_number", c.CheckNumber).
		Msg("linked check")
	return nil
}

// ManualMatch force-links a transaction to a check regardless of amount or
// date. Only pending checks are eligible. Repeating a match that already
// succeeded is not an error.
func (e *Engine) ManualMatch(ctx context.Context, userID, txnID, checkID string) (*models.BankTransaction, *models.Check, error) {
	txn, err := e.store.GetTransaction(ctx, userID, txnID)
	if err != nil {
		return nil, nil, err
	}
	c, err := e.store.GetCheck(ctx, userID, checkID)
	if err != nil {
		return nil, nil, err
	}

	if c.Status == models.CheckCleared && c.BankTransactionID == txn.ID {
		if txn.MatchedCheckID != c.ID {
			txn.MatchedCheckID = c.ID
			if err := e.store.UpdateTransaction(ctx, txn); err != nil {
				return nil, nil, fmt.Errorf("link transaction %s: %w", txn.ID, err)
			}
		}
		return txn, c, nil
	}
	if c.Status != models.CheckPending {
		return nil, nil, fmt.Errorf("%w: check %s is %s", ErrNotEligible, c.CheckNumber, c.Status)
	}

	if txn.MatchedCheckID != "" && txn.MatchedCheckID != c.ID {
		_, err := e.store.GetCheck(ctx, userID, txn.MatchedCheckID)
		switch {
		case err == nil:
			return nil, nil, fmt.Errorf("%w: transaction %s is already matched to check %s", ErrNotEligible, txn.ID, txn.MatchedCheckID)
		case !errors.Is(err, store.ErrNotFound):
			return nil, nil, err
		}
	}

	if err := e.link(ctx, txn, c); err != nil {
		return nil, nil, err
	}
	return txn, c, nil
}

// Validate records a human decision on a transaction's direction and
// category. An empty categoryID leaves the current category untouched.
func (e *Engine) Validate(ctx context.Context, userID, txnID string, typ models.TxnType, categoryID string) (*models.BankTransaction, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	txn, err := e.store.GetTransaction(ctx, userID, txnID)
	if err != nil {
		return nil, err
	}
	if categoryID != "" {
		if _, err := e.store.GetCategory(ctx, userID, categoryID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, categoryID)
			}
			return nil, err
		}
		txn.CategoryID = categoryID
	}
	txn.Type = typ
	txn.Validated = true
	if err := e.store.UpdateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
