package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

// DepositsInTransit returns the recent bank-routed sales that have no credit
// transaction of the same amount. Dates are ignored; only the most recent
// DepositWindow bank-routed sales are considered.
func (e *Engine) DepositsInTransit(ctx context.Context, userID string) ([]models.Sale, error) {
	sales, err := e.store.ListSales(ctx, userID, store.DateRange{})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	credits, err := e.store.ListTransactions(ctx, userID, store.TransactionFilter{Type: models.Credit})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	var routed []models.Sale
	for _, s := range sales {
		if e.bankPay[strings.ToLower(strings.TrimSpace(s.PaymentMethod))] {
			routed = append(routed, s)
		}
	}
	sort.SliceStable(routed, func(i, j int) bool {
		return routed[i].Date.After(routed[j].Date.Time)
	})
	if len(routed) > e.opts.DepositWindow {
		routed = routed[:e.opts.DepositWindow]
	}

	inTransit := []models.Sale{}
	for _, s := range routed {
		seen := false
		for _, c := range credits {
			if e.amountsMatch(s.Amount, c.Amount) {
				seen = true
				break
			}
		}
		if !seen {
			inTransit = append(inTransit, s)
		}
	}
	return inTransit, nil
}

// Report reconciles a statement balance against outstanding checks and
// deposits in transit. The book balance is taken to be the statement balance,
// so the difference is always deposits in transit minus outstanding checks.
func (e *Engine) Report(ctx context.Context, userID string, statementBalance float64) (*models.ReconciliationReport, error) {
	outstanding, err := e.store.ListChecks(ctx, userID, store.CheckFilter{Status: models.CheckPending})
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	deposits, err := e.DepositsInTransit(ctx, userID)
	if err != nil {
		return nil, err
	}

	outTotal := decimal.Zero
	for _, c := range outstanding {
		outTotal = outTotal.Add(decimal.NewFromFloat(c.Amount))
	}
	ditTotal := decimal.Zero
	for _, s := range deposits {
		ditTotal = ditTotal.Add(decimal.NewFromFloat(s.Amount))
	}

	statement := decimal.NewFromFloat(statementBalance)
	reconciled := statement.Add(ditTotal).Sub(outTotal)
	book := statement

	return &models.ReconciliationReport{
		StatementBalance:       round2(statement),
		BookBalance:            round2(book),
		OutstandingChecks:      outstanding,
		OutstandingChecksTotal: round2(outTotal),
		DepositsInTransit:      deposits,
		DepositsInTransitTotal: round2(ditTotal),
		ReconciledBalance:      round2(reconciled),
		Difference:             round2(reconciled.Sub(book)),
	}, nil
}
