// Package ledger computes profit and loss from manually entered sales and
// expenses plus validated, categorized bank transactions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

// ErrInvalidFilter is returned for an unknown or incomplete report filter.
var ErrInvalidFilter = errors.New("invalid report filter")

// UnknownCategory labels amounts whose category no longer exists.
const UnknownCategory = "Unknown"

// Store is the slice of persistence the aggregator reads.
type Store interface {
	store.TransactionStore
	store.CategoryStore
	store.SaleStore
	store.ExpenseStore
}

// Summary is the profit/loss view of one date range.
type Summary struct {
	TotalIncome        float64            `json:"total_income"`
	TotalExpenses      float64            `json:"total_expenses"`
	NetProfit          float64            `json:"net_profit"`
	TotalCOGS          float64            `json:"total_cogs"`
	COGSPercentage     float64            `json:"cogs_percentage"`
	GrossProfit        float64            `json:"gross_profit"`
	GrossMargin        float64            `json:"gross_margin"`
	IncomeByCategory   map[string]float64 `json:"income_by_category"`
	ExpensesByCategory map[string]float64 `json:"expenses_by_category"`
	SalesByPayment     map[string]float64 `json:"sales_by_payment"`
}

// MonthComparison is one calendar month in a comparison series.
type MonthComparison struct {
	Month            string   `json:"month"`
	Income           float64  `json:"income"`
	Expenses         float64  `json:"expenses"`
	Profit           float64  `json:"profit"`
	GrowthPercentage *float64 `json:"growth_percentage"`
}

// PeriodReport is a summary over a named period.
type PeriodReport struct {
	FilterType string      `json:"filter_type"`
	StartDate  models.Date `json:"start_date"`
	EndDate    models.Date `json:"end_date"`
	Summary    *Summary    `json:"summary"`
}

// CogsBreakdown shows where cost of goods sold comes from.
type CogsBreakdown struct {
	CogsCategories        []models.Category `json:"cogs_categories"`
	TotalCogsFromExpenses float64           `json:"total_cogs_from_expenses"`
	TotalCogsFromBank     float64           `json:"total_cogs_from_bank"`
	TotalCogs             float64           `json:"total_cogs"`
}

// Aggregator computes ledger views.
type Aggregator struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

// New creates an Aggregator. now anchors relative periods.
func New(s Store, now func() time.Time, log zerolog.Logger) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{store: s, now: now, log: log.With().Str("component", "ledger").Logger()}
}

// inputs is everything that contributes to one range.
type inputs struct {
	sales      []models.Sale
	expenses   []models.Expense
	bank       []models.BankTransaction
	categories map[string]models.Category
}

func (a *Aggregator) load(ctx context.Context, userID string, r store.DateRange) (*inputs, error) {
	cats, err := a.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	sales, err := a.store.ListSales(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	expenses, err := a.store.ListExpenses(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	validated := true
	txns, err := a.store.ListTransactions(ctx, userID, store.TransactionFilter{Validated: &validated, Range: r})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	in := &inputs{sales: sales, expenses: expenses, categories: make(map[string]models.Category, len(cats))}
	for _, c := range cats {
		in.categories[c.ID] = c
	}
	// Only validated transactions whose category still exists count.
	for _, t := range txns {
		if _, ok := in.categories[t.CategoryID]; t.Validated && ok {
			in.bank = append(in.bank, t)
		}
	}
	return in, nil
}

func (in *inputs) categoryName(id string) string {
	if c, ok := in.categories[id]; ok {
		return c.Name
	}
	return UnknownCategory
}

func (in *inputs) isCOGS(id string) bool {
	c, ok := in.categories[id]
	return ok && c.IsCOGS
}

// tally accumulates money per label.
type tally map[string]decimal.Decimal

func (t tally) add(label string, amount float64) {
	t[label] = t[label].Add(decimal.NewFromFloat(amount))
}

func (t tally) floats() map[string]float64 {
	out := make(map[string]float64, len(t))
	for k, v := range t {
		out[k] = round2(v)
	}
	return out
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

var hundred = decimal.NewFromInt(100)

// percent returns num/den*100, or 0 when den is not positive.
func percent(num, den decimal.Decimal) float64 {
	if !den.IsPositive() {
		return 0
	}
	return round2(num.Div(den).Mul(hundred))
}

func (in *inputs) summarize() *Summary {
	income, expense := decimal.Zero, decimal.Zero
	cogsExp, cogsBank := decimal.Zero, decimal.Zero
	incomeBy, expenseBy, byPayment := tally{}, tally{}, tally{}

	for _, s := range in.sales {
		income = income.Add(decimal.NewFromFloat(s.Amount))
		incomeBy.add(in.categoryName(s.CategoryID), s.Amount)
		byPayment.add(s.PaymentMethod, s.Amount)
	}
	for _, e := range in.expenses {
		amt := decimal.NewFromFloat(e.Amount)
		expense = expense.Add(amt)
		expenseBy.add(in.categoryName(e.CategoryID), e.Amount)
		if in.isCOGS(e.CategoryID) {
			cogsExp = cogsExp.Add(amt)
		}
	}
	for _, t := range in.bank {
		amt := decimal.NewFromFloat(t.Amount)
		if t.Type == models.Credit {
			income = income.Add(amt)
			incomeBy.add(in.categoryName(t.CategoryID), t.Amount)
			continue
		}
		expense = expense.Add(amt)
		expenseBy.add(in.categoryName(t.CategoryID), t.Amount)
		if in.isCOGS(t.CategoryID) {
			cogsBank = cogsBank.Add(amt)
		}
	}

	cogs := cogsExp.Add(cogsBank)
	gross := income.Sub(cogs)
	return &Summary{
		TotalIncome:        round2(income),
		TotalExpenses:      round2(expense),
		NetProfit:          round2(income.Sub(expense)),
		TotalCOGS:          round2(cogs),
		COGSPercentage:     percent(cogs, income),
		GrossProfit:        round2(gross),
		GrossMargin:        percent(gross, income),
		IncomeByCategory:   incomeBy.floats(),
		ExpensesByCategory: expenseBy.floats(),
		SalesByPayment:     byPayment.floats(),
	}
}

// Summary computes the dashboard figures over r.
func (a *Aggregator) Summary(ctx context.Context, userID string, r store.DateRange) (*Summary, error) {
	in, err := a.load(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return in.summarize(), nil
}

// MonthComparison returns the last n calendar months, newest first. Growth is
// the change in profit against the previous month, relative to its magnitude,
// and is nil when the previous month's profit was zero.
func (a *Aggregator) MonthComparison(ctx context.Context, userID string, n int) ([]MonthComparison, error) {
	if n <= 0 {
		n = 12
	}
	now := a.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := make([]MonthComparison, 0, n)
	var prev *decimal.Decimal
	for i := n - 1; i >= 0; i-- {
		start := first.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, -1)
		in, err := a.load(ctx, userID, store.DateRange{From: models.DateOf(start), To: models.DateOf(end)})
		if err != nil {
			return nil, err
		}
		s := in.summarize()
		profit := decimal.NewFromFloat(s.TotalIncome).Sub(decimal.NewFromFloat(s.TotalExpenses))

		mc := MonthComparison{
			Month:    start.Format("2006-01"),
			Income:   s.TotalIncome,
			Expenses: s.TotalExpenses,
			Profit:   round2(profit),
		}
		if prev != nil && !prev.IsZero() {
			g := round2(profit.Sub(*prev).Div(prev.Abs()).Mul(hundred))
			mc.GrowthPercentage = &g
		}
		p := profit
		prev = &p
		out = append(out, mc)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// PeriodRange resolves a named filter to a date range ending today.
// filterType is one of week, month, quarter, year or custom; custom needs
// both bounds.
func (a *Aggregator) PeriodRange(filterType string, start, end models.Date) (store.DateRange, error) {
	today := models.DateOf(a.now())
	t := today.Time
	switch filterType {
	case "week":
		return store.DateRange{From: today.AddDays(-7), To: today}, nil
	case "month", "":
		return store.DateRange{From: models.NewDate(t.Year(), t.Month(), 1), To: today}, nil
	case "quarter":
		q := time.Month((int(t.Month())-1)/3*3 + 1)
		return store.DateRange{From: models.NewDate(t.Year(), q, 1), To: today}, nil
	case "year":
		return store.DateRange{From: models.NewDate(t.Year(), time.January, 1), To: today}, nil
	case "custom":
		if start.IsZero() || end.IsZero() {
			return store.DateRange{}, fmt.Errorf("%w: custom filter needs start_date and end_date", ErrInvalidFilter)
		}
		if end.Before(start.Time) {
			return store.DateRange{}, fmt.Errorf("%w: end_date before start_date", ErrInvalidFilter)
		}
		return store.DateRange{From: start, To: end}, nil
	default:
		return store.DateRange{}, fmt.Errorf("%w: unknown filter_type %q", ErrInvalidFilter, filterType)
	}
}

// PeriodReport computes the summary for a named period.
func (a *Aggregator) PeriodReport(ctx context.Context, userID, filterType string, start, end models.Date) (*PeriodReport, error) {
	r, err := a.PeriodRange(filterType, start, end)
	if err != nil {
		return nil, err
	}
	if filterType == "" {
		filterType = "month"
	}
	s, err := a.Summary(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return &PeriodReport{FilterType: filterType, StartDate: r.From, EndDate: r.To, Summary: s}, nil
}

// CogsBreakdown splits cost of goods sold into its expense and bank sources.
func (a *Aggregator) CogsBreakdown(ctx context.Context, userID string, r store.DateRange) (*CogsBreakdown, error) {
	in, err := a.load(ctx, userID, r)
	if err != nil {
		return nil, err
	}

	out := &CogsBreakdown{CogsCategories: []models.Category{}}
	cats, err := a.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if c.IsCOGS {
			out.CogsCategories = append(out.CogsCategories, c)
		}
	}

	fromExp, fromBank := decimal.Zero, decimal.Zero
	for _, e := range in.expenses {
		if in.isCOGS(e.CategoryID) {
			fromExp = fromExp.Add(decimal.NewFromFloat(e.Amount))
		}
	}
	for _, t := range in.bank {
		if t.Type == models.Debit && in.isCOGS(t.CategoryID) {
			fromBank = fromBank.Add(decimal.NewFromFloat(t.Amount))
		}
	}
	out.TotalCogsFromExpenses = round2(fromExp)
	out.TotalCogsFromBank = round2(fromBank)
	out.TotalCogs = round2(fromExp.Add(fromBank))
	return out, nil
}
