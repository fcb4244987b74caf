// Package memory is an in-process Store used by tests and by
// database.driver=memory. Data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

type row[T any] struct {
	seq    int64
	userID string
	val    T
}

// table is a user-partitioned map of records. Values are copied in and out.
type table[T any] struct {
	rows map[string]row[T]
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[string]row[T])}
}

func (t table[T]) get(userID, id string) (T, bool) {
	r, ok := t.rows[id]
	if !ok || r.userID != userID {
		var zero T
		return zero, false
	}
	return r.val, true
}

func (t table[T]) list(userID string, keep func(T) bool, less func(a, b T) bool) []T {
	var rows []row[T]
	for _, r := range t.rows {
		if r.userID == userID && (keep == nil || keep(r.val)) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if less != nil {
			if less(rows[i].val, rows[j].val) {
				return true
			}
			if less(rows[j].val, rows[i].val) {
				return false
			}
		}
		return rows[i].seq < rows[j].seq
	})
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.val)
	}
	return out
}

func (t table[T]) delete(userID, id string) bool {
	r, ok := t.rows[id]
	if !ok || r.userID != userID {
		return false
	}
	delete(t.rows, id)
	return true
}

// Store implements store.Store in memory. It is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	seq int64
	now func() time.Time

	transactions table[models.BankTransaction]
	checks       table[models.Check]
	statements   table[models.BankStatement]
	categories   table[models.Category]
	sales        table[models.Sale]
	expenses     table[models.Expense]
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		now:          func() time.Time { return time.Now().UTC() },
		transactions: newTable[models.BankTransaction](),
		checks:       newTable[models.Check](),
		statements:   newTable[models.BankStatement](),
		categories:   newTable[models.Category](),
		sales:        newTable[models.Sale](),
		expenses:     newTable[models.Expense](),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) stamp(id *string, created *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	if created.IsZero() {
		*created = s.now()
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
}

// Transactions

func txnLess(a, b models.BankTransaction) bool {
	if !a.Date.Equal(b.Date.Time) {
		return a.Date.Before(b.Date.Time)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Position < b.Position
}

func (s *Store) InsertTransactions(ctx context.Context, txns []models.BankTransaction) ([]models.BankTransaction, error) {
	for i := range txns {
		if err := store.ValidateTransaction(&txns[i]); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.BankTransaction, len(txns))
	for i, txn := range txns {
		s.stamp(&txn.ID, &txn.CreatedAt)
		s.transactions.rows[txn.ID] = row[models.BankTransaction]{seq: s.nextSeq(), userID: txn.UserID, val: txn}
		out[i] = txn
	}
	return out, nil
}

func (s *Store) CreateTransaction(ctx context.Context, txn *models.BankTransaction) error {
	if err := store.ValidateTransaction(txn); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&txn.ID, &txn.CreatedAt)
	s.transactions.rows[txn.ID] = row[models.BankTransaction]{seq: s.nextSeq(), userID: txn.UserID, val: *txn}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*models.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.transactions.get(userID, id)
	if !ok {
		return nil, notFound("transaction", id)
	}
	return &txn, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]models.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.transactions.list(userID, f.Matches, txnLess), nil
}

func (s *Store) UpdateTransaction(ctx context.Context, txn *models.BankTransaction) error {
	if err := store.ValidateTransaction(txn); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.transactions.rows[txn.ID]
	if !ok || r.userID != txn.UserID {
		return notFound("transaction", txn.ID)
	}
	r.val = *txn
	s.transactions.rows[txn.ID] = r
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.transactions.delete(userID, id) {
		return notFound("transaction", id)
	}
	return nil
}

// Checks

func (s *Store) CreateCheck(ctx context.Context, c *models.Check) error {
	if c.Status == "" {
		c.Status = models.CheckPending
	}
	if err := store.ValidateCheck(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&c.ID, &c.CreatedAt)
	s.checks.rows[c.ID] = row[models.Check]{seq: s.nextSeq(), userID: c.UserID, val: *c}
	return nil
}

func (s *Store) GetCheck(ctx context.Context, userID, id string) (*models.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.checks.get(userID, id)
	if !ok {
		return nil, notFound("check", id)
	}
	return &c, nil
}

func (s *Store) ListChecks(ctx context.Context, userID string, f store.CheckFilter) ([]models.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keep := func(c models.Check) bool { return f.Status == "" || c.Status == f.Status }
	less := func(a, b models.Check) bool { return a.DateIssued.Before(b.DateIssued.Time) }
	return s.checks.list(userID, keep, less), nil
}

func (s *Store) UpdateCheck(ctx context.Context, c *models.Check) error {
	if err := store.ValidateCheck(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.checks.rows[c.ID]
	if !ok || r.userID != c.UserID {
		return notFound("check", c.ID)
	}
	r.val = *c
	s.checks.rows[c.ID] = r
	return nil
}

func (s *Store) DeleteCheck(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.checks.delete(userID, id) {
		return notFound("check", id)
	}
	return nil
}

// Statements

func (s *Store) CreateStatement(ctx context.Context, st *models.BankStatement) error {
	if err := store.ValidateStatement(st); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&st.ID, &st.CreatedAt)
	s.statements.rows[st.ID] = row[models.BankStatement]{seq: s.nextSeq(), userID: st.UserID, val: *st}
	return nil
}

func (s *Store) GetStatement(ctx context.Context, userID, id string) (*models.BankStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.statements.get(userID, id)
	if !ok {
		return nil, notFound("statement", id)
	}
	return &st, nil
}

func (s *Store) ListStatements(ctx context.Context, userID string) ([]models.BankStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.statements.list(userID, nil, nil), nil
}

// Categories

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := store.ValidateCategory(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&c.ID, &c.CreatedAt)
	s.categories.rows[c.ID] = row[models.Category]{seq: s.nextSeq(), userID: c.UserID, val: *c}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, userID, id string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories.get(userID, id)
	if !ok {
		return nil, notFound("category", id)
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.categories.list(userID, nil, nil), nil
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.categories.delete(userID, id) {
		return notFound("category", id)
	}
	return nil
}

// Sales

func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	if err := store.ValidateSale(sale); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&sale.ID, &sale.CreatedAt)
	s.sales.rows[sale.ID] = row[models.Sale]{seq: s.nextSeq(), userID: sale.UserID, val: *sale}
	return nil
}

func (s *Store) ListSales(ctx context.Context, userID string, r store.DateRange) ([]models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keep := func(sale models.Sale) bool { return r.Contains(sale.Date) }
	less := func(a, b models.Sale) bool { return a.Date.Before(b.Date.Time) }
	return s.sales.list(userID, keep, less), nil
}

func (s *Store) DeleteSale(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sales.delete(userID, id) {
		return notFound("sale", id)
	}
	return nil
}

// Expenses

func (s *Store) CreateExpense(ctx context.Context, e *models.Expense) error {
	if err := store.ValidateExpense(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&e.ID, &e.CreatedAt)
	s.expenses.rows[e.ID] = row[models.Expense]{seq: s.nextSeq(), userID: e.UserID, val: *e}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string, r store.DateRange) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keep := func(e models.Expense) bool { return r.Contains(e.Date) }
	less := func(a, b models.Expense) bool { return a.Date.Before(b.Date.Time) }
	return s.expenses.list(userID, keep, less), nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.expenses.delete(userID, id) {
		return notFound("expense", id)
	}
	return nil
}
