package reconcile

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

// clearCheck moves a pending check to cleared. No other state may clear.
func clearCheck(c *models.Check, txnID string, on models.Date) error {
	if c.Status != models.CheckPending {
		return fmt.Errorf("%w: check %s is %s", ErrNotEligible, c.CheckNumber, c.Status)
	}
	cleared := on
	c.Status = models.CheckCleared
	c.DateCleared = &cleared
	c.BankTransactionID = txnID
	return nil
}

// cancelCheck moves a pending check to cancelled. Cancelling twice is a no-op.
func cancelCheck(c *models.Check) (changed bool, err error) {
	switch c.Status {
	case models.CheckPending:
		c.Status = models.CheckCancelled
		return true, nil
	case models.CheckCancelled:
		return false, nil
	default:
		return false, fmt.Errorf("%w: check %s is %s", ErrNotEligible, c.CheckNumber, c.Status)
	}
}

// CancelCheck voids a pending check. It has no effect on any transaction.
func (e *Engine) CancelCheck(ctx context.Context, userID, checkID string) (*models.Check, error) {
	c, err := e.store.GetCheck(ctx, userID, checkID)
	if err != nil {
		return nil, err
	}
	changed, err := cancelCheck(c)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := e.store.UpdateCheck(ctx, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type ageBucket struct {
	label string
	max   int // inclusive upper bound in days; -1 for open-ended
}

var ageBuckets = []ageBucket{
	{"0-30", 30},
	{"31-60", 60},
	{"61-90", 90},
	{"90+", -1},
}

// InTransitReport groups pending checks by days since issue.
func (e *Engine) InTransitReport(ctx context.Context, userID string) (*models.InTransitReport, error) {
	pending, err := e.store.ListChecks(ctx, userID, store.CheckFilter{Status: models.CheckPending})
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}

	today := e.today()
	report := &models.InTransitReport{GeneratedOn: today}
	sums := make([]decimal.Decimal, len(ageBuckets))
	report.ByAge = make([]models.AgeBucket, len(ageBuckets))
	for i, b := range ageBuckets {
		report.ByAge[i] = models.AgeBucket{Label: b.label, Checks: []models.Check{}}
	}

	total := decimal.Zero
	for _, c := range pending {
		age := c.DateIssued.DaysTo(today)
		idx := len(ageBuckets) - 1
		for i, b := range ageBuckets {
			if b.max >= 0 && age <= b.max {
				idx = i
				break
			}
		}
		amt := decimal.NewFromFloat(c.Amount)
		report.ByAge[idx].Checks = append(report.ByAge[idx].Checks, c)
		report.ByAge[idx].Count++
		sums[idx] = sums[idx].Add(amt)
		total = total.Add(amt)
	}
	for i := range report.ByAge {
		report.ByAge[i].Amount = round2(sums[i])
	}
	report.TotalChecks = len(pending)
	report.TotalAmount = round2(total)
	return report, nil
}
