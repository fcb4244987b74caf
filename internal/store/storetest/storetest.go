// Package storetest holds the behavioural contract every store.Store
// implementation must satisfy.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run exercises s against the store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("TransactionsRoundTrip", func(t *testing.T) { testTransactionsRoundTrip(t, newStore(t)) })
	t.Run("TransactionFilters", func(t *testing.T) { testTransactionFilters(t, newStore(t)) })
	t.Run("UserIsolation", func(t *testing.T) { testUserIsolation(t, newStore(t)) })
	t.Run("Validation", func(t *testing.T) { testValidation(t, newStore(t)) })
	t.Run("Checks", func(t *testing.T) { testChecks(t, newStore(t)) })
	t.Run("Statements", func(t *testing.T) { testStatements(t, newStore(t)) })
	t.Run("CategoriesAreWeakReferences", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("SalesAndExpenses", func(t *testing.T) { testSalesAndExpenses(t, newStore(t)) })
}

func txn(user string, d models.Date, desc string, amount float64, typ models.TxnType) models.BankTransaction {
	return models.BankTransaction{
		UserID:      user,
		StatementID: "stmt-1",
		Date:        d,
		Description: desc,
		Amount:      amount,
		Type:        typ,
	}
}

func testTransactionsRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	day := models.NewDate(2024, time.September, 15)

	batch := []models.BankTransaction{
		txn("u1", day, "Office Supplies", 150, models.Debit),
		txn("u1", day, "Zelle from Maria", 200, models.Credit),
		txn("u1", day, "Office Supplies", 150, models.Debit),
	}
	for i := range batch {
		batch[i].Position = i
	}
	batch[0].CheckNumber = "1234"

	inserted, err := s.InsertTransactions(ctx, batch)
	require.NoError(t, err)
	require.Len(t, inserted, 3)
	for _, tx := range inserted {
		assert.NotEmpty(t, tx.ID)
		assert.False(t, tx.CreatedAt.IsZero())
	}

	got, err := s.GetTransaction(ctx, "u1", inserted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-09-15", got.Date.String())
	assert.Equal(t, "1234", got.CheckNumber)
	assert.InDelta(t, 150.0, got.Amount, 0.001)
	assert.Equal(t, models.Debit, got.Type)
	assert.False(t, got.Validated)

	list, err := s.ListTransactions(ctx, "u1", store.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{inserted[0].ID, inserted[1].ID, inserted[2].ID},
		[]string{list[0].ID, list[1].ID, list[2].ID})

	got.Validated = true
	got.CategoryID = "cat-1"
	got.MatchedCheckID = "chk-1"
	require.NoError(t, s.UpdateTransaction(ctx, got))

	again, err := s.GetTransaction(ctx, "u1", got.ID)
	require.NoError(t, err)
	assert.True(t, again.Validated)
	assert.Equal(t, "cat-1", again.CategoryID)
	assert.Equal(t, "chk-1", again.MatchedCheckID)

	require.NoError(t, s.DeleteTransaction(ctx, "u1", got.ID))
	_, err = s.GetTransaction(ctx, "u1", got.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testTransactionFilters(t *testing.T, s store.Store) {
	ctx := context.Background()

	manual := txn("u1", models.NewDate(2024, 1, 5), "Manual entry", 10, models.Credit)
	manual.StatementID = models.ManualStatementID
	manual.Validated = true
	require.NoError(t, s.CreateTransaction(ctx, &manual))

	matched := txn("u1", models.NewDate(2024, 1, 10), "Check 100", 50, models.Debit)
	matched.MatchedCheckID = "chk"
	open := txn("u1", models.NewDate(2024, 2, 1), "Card purchase", 20, models.Debit)
	_, err := s.InsertTransactions(ctx, []models.BankTransaction{open, matched})
	require.NoError(t, err)

	list, err := s.ListTransactions(ctx, "u1", store.TransactionFilter{Type: models.Debit, Unmatched: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Card purchase", list[0].Description)

	validated := true
	list, err = s.ListTransactions(ctx, "u1", store.TransactionFilter{Validated: &validated})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ManualStatementID, list[0].StatementID)

	list, err = s.ListTransactions(ctx, "u1", store.TransactionFilter{
		Range: store.DateRange{From: models.NewDate(2024, 1, 6), To: models.NewDate(2024, 1, 31)},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Check 100", list[0].Description)

	// Ordered by date regardless of insertion order.
	list, err = s.ListTransactions(ctx, "u1", store.TransactionFilter{StatementID: "stmt-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Check 100", list[0].Description)
	assert.Equal(t, "Card purchase", list[1].Description)
}

func testUserIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()

	mine := txn("alice", models.NewDate(2024, 3, 1), "Rent", 900, models.Debit)
	require.NoError(t, s.CreateTransaction(ctx, &mine))
	chk := models.Check{UserID: "alice", CheckNumber: "77", DateIssued: models.NewDate(2024, 3, 1), Amount: 900, Payee: "Landlord"}
	require.NoError(t, s.CreateCheck(ctx, &chk))

	_, err := s.GetTransaction(ctx, "bob", mine.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetCheck(ctx, "bob", chk.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.ListTransactions(ctx, "bob", store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	stolen := mine
	stolen.UserID = "bob"
	stolen.Description = "hijacked"
	assert.ErrorIs(t, s.UpdateTransaction(ctx, &stolen), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "bob", mine.ID), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCheck(ctx, "bob", chk.ID), store.ErrNotFound)

	still, err := s.GetTransaction(ctx, "alice", mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent", still.Description)
}

func testValidation(t *testing.T, s store.Store) {
	ctx := context.Background()

	bad := txn("u1", models.NewDate(2024, 1, 1), "Negative", -5, models.Debit)
	assert.ErrorIs(t, s.CreateTransaction(ctx, &bad), store.ErrInvalid)

	noType := txn("u1", models.NewDate(2024, 1, 1), "Untyped", 5, "")
	_, err := s.InsertTransactions(ctx, []models.BankTransaction{noType})
	assert.ErrorIs(t, err, store.ErrInvalid)

	chk := models.Check{UserID: "u1", CheckNumber: "1", DateIssued: models.NewDate(2024, 1, 1), Amount: 5, Status: models.CheckCleared}
	assert.ErrorIs(t, s.CreateCheck(ctx, &chk), store.ErrInvalid)

	cat := models.Category{UserID: "u1", Name: "Misc", Type: "other"}
	assert.ErrorIs(t, s.CreateCategory(ctx, &cat), store.ErrInvalid)
}

func testChecks(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := models.Check{UserID: "u1", CheckNumber: "1001", DateIssued: models.NewDate(2024, 5, 2), Amount: 75.5, Payee: "Acme"}
	second := models.Check{UserID: "u1", CheckNumber: "1000", DateIssued: models.NewDate(2024, 5, 1), Amount: 20, Payee: "Bolt"}
	require.NoError(t, s.CreateCheck(ctx, &first))
	require.NoError(t, s.CreateCheck(ctx, &second))
	assert.Equal(t, models.CheckPending, first.Status)

	all, err := s.ListChecks(ctx, "u1", store.CheckFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1000", all[0].CheckNumber)

	cleared := models.NewDate(2024, 5, 9)
	first.Status = models.CheckCleared
	first.DateCleared = &cleared
	first.BankTransactionID = "txn-9"
	require.NoError(t, s.UpdateCheck(ctx, &first))

	pending, err := s.ListChecks(ctx, "u1", store.CheckFilter{Status: models.CheckPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "1000", pending[0].CheckNumber)

	got, err := s.GetCheck(ctx, "u1", first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DateCleared)
	assert.Equal(t, "2024-05-09", got.DateCleared.String())
	assert.Equal(t, "txn-9", got.BankTransactionID)
	assert.InDelta(t, 75.5, got.Amount, 0.001)

	require.NoError(t, s.DeleteCheck(ctx, "u1", second.ID))
	_, err = s.GetCheck(ctx, "u1", second.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testStatements(t *testing.T, s store.Store) {
	ctx := context.Background()

	start := models.NewDate(2024, 9, 1)
	end := models.NewDate(2024, 9, 30)
	opening := 1000.0
	st := models.BankStatement{
		UserID: "u1", Filename: "sept.pdf", PeriodStart: &start, PeriodEnd: &end,
		StartingBalance: &opening, TransactionsCount: 12,
	}
	require.NoError(t, s.CreateStatement(ctx, &st))
	bare := models.BankStatement{UserID: "u1", Filename: "raw.txt"}
	require.NoError(t, s.CreateStatement(ctx, &bare))

	got, err := s.GetStatement(ctx, "u1", st.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PeriodStart)
	assert.Equal(t, "2024-09-01", got.PeriodStart.String())
	require.NotNil(t, got.StartingBalance)
	assert.InDelta(t, 1000.0, *got.StartingBalance, 0.001)
	assert.Nil(t, got.EndingBalance)
	assert.Equal(t, 12, got.TransactionsCount)

	list, err := s.ListStatements(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	backwards := models.BankStatement{UserID: "u1", PeriodStart: &end, PeriodEnd: &start}
	assert.ErrorIs(t, s.CreateStatement(ctx, &backwards), store.ErrInvalid)
}

func testCategories(t *testing.T, s store.Store) {
	ctx := context.Background()

	cat := models.Category{UserID: "u1", Name: "Inventario/Productos", Type: models.ExpenseCategory, IsCOGS: true, IsPredefined: true}
	require.NoError(t, s.CreateCategory(ctx, &cat))

	tx := txn("u1", models.NewDate(2024, 4, 4), "Wholesale stock", 300, models.Debit)
	tx.CategoryID = cat.ID
	require.NoError(t, s.CreateTransaction(ctx, &tx))

	got, err := s.GetCategory(ctx, "u1", cat.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCOGS)
	assert.True(t, got.IsPredefined)

	require.NoError(t, s.DeleteCategory(ctx, "u1", cat.ID))
	cats, err := s.ListCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cats)

	// The transaction survives with a dangling reference.
	left, err := s.GetTransaction(ctx, "u1", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, cat.ID, left.CategoryID)
}

func testSalesAndExpenses(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, d := range []int{20, 5, 12} {
		sale := models.Sale{UserID: "u1", Date: models.NewDate(2024, 6, d), Amount: float64(d), PaymentMethod: "wire", Source: "manual"}
		require.NoError(t, s.CreateSale(ctx, &sale))
	}
	sales, err := s.ListSales(ctx, "u1", store.DateRange{})
	require.NoError(t, err)
	require.Len(t, sales, 3)
	assert.Equal(t, "2024-06-05", sales[0].Date.String())
	assert.Equal(t, "2024-06-20", sales[2].Date.String())

	sales, err = s.ListSales(ctx, "u1", store.DateRange{From: models.NewDate(2024, 6, 10)})
	require.NoError(t, err)
	assert.Len(t, sales, 2)

	require.NoError(t, s.DeleteSale(ctx, "u1", sales[0].ID))
	assert.ErrorIs(t, s.DeleteSale(ctx, "u1", sales[0].ID), store.ErrNotFound)

	exp := models.Expense{UserID: "u1", Date: models.NewDate(2024, 6, 3), Amount: 42, CategoryID: "c"}
	require.NoError(t, s.CreateExpense(ctx, &exp))
	exps, err := s.ListExpenses(ctx, "u1", store.DateRange{To: models.NewDate(2024, 6, 3)})
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.InDelta(t, 42.0, exps[0].Amount, 0.001)

	require.NoError(t, s.DeleteExpense(ctx, "u1", exp.ID))
	exps, err = s.ListExpenses(ctx, "u1", store.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, exps)
}
