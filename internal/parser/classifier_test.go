package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

func fixedClock() time.Time {
	return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func TestClassify(t *testing.T) {
	c := NewClassifier(fixedClock, 200)

	tests := []struct {
		name   string
		line   string
		rule   string
		date   models.Date
		amount float64
		typ    models.TxnType
		check  string
	}{
		{
			name: "compact check line", line: "9/15 CHECK 1234 Office Supplies 150.00",
			rule: "compact", date: models.NewDate(2024, 9, 15), amount: 150, typ: models.Debit, check: "1234",
		},
		{
			name: "compact credit", line: "9/10 Zelle from Maria 200.00",
			rule: "compact", date: models.NewDate(2024, 9, 10), amount: 200, typ: models.Credit,
		},
		{
			name: "compact structural check number", line: "9/12 1045 Rent payment 1,200.00",
			rule: "compact", date: models.NewDate(2024, 9, 12), amount: 1200, typ: models.Debit, check: "1045",
		},
		{
			name: "compact defaults to debit", line: "9/14 Coffee shop downtown 4.5",
			rule: "compact", date: models.NewDate(2024, 9, 14), amount: 4.5, typ: models.Debit,
		},
		{
			name: "date description amount", line: "01/15/2024 Payroll deposit 2,500.00",
			rule: "date_desc_amount", date: models.NewDate(2024, 1, 15), amount: 2500, typ: models.Credit,
		},
		{
			name: "parenthesised amount is debit", line: "01/15/2024 Refund credit (45.20)",
			rule: "date_desc_amount", date: models.NewDate(2024, 1, 15), amount: 45.20, typ: models.Debit,
		},
		{
			name: "date amount description", line: "01/16/2024 -45.20 Grocery store",
			rule: "date_amount_desc", date: models.NewDate(2024, 1, 16), amount: 45.20, typ: models.Debit,
		},
		{
			name: "description date amount", line: "Deposit from client 01/17/2024 300.00",
			rule: "desc_date_amount", date: models.NewDate(2024, 1, 17), amount: 300, typ: models.Credit,
		},
		{
			name: "iso date", line: "2024-01-18 Interest credit 1.25",
			rule: "iso_date", date: models.NewDate(2024, 1, 18), amount: 1.25, typ: models.Credit,
		},
		{
			name: "iso date amount first", line: "2024-01-18 1.25 Interest credit",
			rule: "iso_date_amount_first", date: models.NewDate(2024, 1, 18), amount: 1.25, typ: models.Credit,
		},
		{
			name: "dual date keeps posting date", line: "01/19/2024 01/20/2024 ATM withdrawal 60.00",
			rule: "dual_date", date: models.NewDate(2024, 1, 19), amount: 60, typ: models.Debit,
		},
		{
			name: "hash check number", line: "01/20/2024 Payment ref #45678 99.99",
			rule: "date_desc_amount", date: models.NewDate(2024, 1, 20), amount: 99.99, typ: models.Debit, check: "45678",
		},
		{
			name: "day first date", line: "25/01/2024 Card purchase 10.00",
			rule: "date_desc_amount", date: models.NewDate(2024, 1, 25), amount: 10, typ: models.Debit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand, m, err := c.Classify(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.rule, m.Rule)
			assert.True(t, tt.date.Equal(cand.Date.Time), "date: got %s, want %s", cand.Date, tt.date)
			assert.InDelta(t, tt.amount, cand.Amount, 0.0001)
			assert.Equal(t, tt.typ, cand.Type)
			assert.Equal(t, tt.check, cand.CheckNumber)
		})
	}
}

func TestClassifyCompactWinsOverFullDate(t *testing.T) {
	c := NewClassifier(fixedClock, 200)
	line := "9/15 Payment 10/01/2024 25.00"

	// The full-date layout would also accept this line on its own.
	var fallback Rule
	for _, r := range c.Rules() {
		if r.Name() == "desc_date_amount" {
			fallback = r
		}
	}
	require.NotNil(t, fallback)
	_, ok := fallback.Match(line)
	require.True(t, ok)

	cand, m, err := c.Classify(line)
	require.NoError(t, err)
	assert.Equal(t, "compact", m.Rule)
	assert.Equal(t, "2024-09-15", cand.Date.String())
	assert.Equal(t, "Payment 10/01/2024", cand.Description)
}

func TestClassifyRejections(t *testing.T) {
	c := NewClassifier(fixedClock, 200)

	tests := []struct {
		line string
		err  error
	}{
		{"01/31/2024 Subtotal 1,000.00", ErrFurniture},
		{"01/31/2024 Total fees 12.00", ErrFurniture},
		{"01/31/2024 Continued on next 0.00", ErrFurniture},
		{"13/45 Something odd 10.00", ErrBadDate},
		{"9/31 Vendor payment 5.00", ErrBadDate},
		{"45/45/2024 Something odd 10.00", ErrBadDate},
		{"Thank you for banking with us", ErrNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, _, err := c.Classify(tt.line)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassifyTruncatesDescription(t *testing.T) {
	c := NewClassifier(fixedClock, 20)
	cand, _, err := c.Classify("9/15 A very long merchant description that goes on 10.00")
	require.NoError(t, err)
	assert.Equal(t, "A very long merchant", cand.Description)
}
