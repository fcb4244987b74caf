// Package sqlstore implements store.Store over sqlx. The same queries run on
// postgres (lib/pq) and sqlite3 (mattn/go-sqlite3); placeholders are rebound
// per driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

const (
	txnColumns       = `id, user_id, statement_id, date, description, amount, type, check_number, matched_check_id, category_id, validated, position, created_at`
	checkColumns     = `id, user_id, check_number, date_issued, amount, payee, description, status, date_cleared, bank_transaction_id, created_at`
	statementColumns = `id, user_id, filename, period_start, period_end, starting_balance, ending_balance, transactions_count, created_at`
	categoryColumns  = `id, user_id, name, type, is_predefined, is_cogs, created_at`
	saleColumns      = `id, user_id, date, amount, category_id, payment_method, description, source, created_at`
	expenseColumns   = `id, user_id, date, amount, category_id, description, created_at`
)

// Store implements store.Store using a SQL database.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New wraps an already connected and migrated database.
func New(db *sqlx.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Open migrates the schema at migrationURL and then connects with driver/dsn.
func Open(ctx context.Context, driver, dsn, migrationURL string) (*Store, error) {
	if err := RunMigrations(migrationURL); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", driver, err)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// sqlite serialises writers; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	return New(db), nil
}

// DB returns the underlying connection.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

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

func (s *Store) get(ctx context.Context, dest any, kind, query, userID, id string) error {
	err := s.db.GetContext(ctx, dest, s.db.Rebind(query), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(kind, id)
	}
	return err
}

// execOne runs a named statement that must touch exactly one of the user's rows.
func (s *Store) execOne(ctx context.Context, kind, id, query string, arg any) error {
	res, err := s.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func (s *Store) deleteOne(ctx context.Context, kind, table, userID, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM `+table+` WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// Transactions

const insertTxn = `INSERT INTO bank_transactions (` + txnColumns + `)
	VALUES (:id, :user_id, :statement_id, :date, :description, :amount, :type, :check_number, :matched_check_id, :category_id, :validated, :position, :created_at)`

func (s *Store) InsertTransactions(ctx context.Context, txns []models.BankTransaction) ([]models.BankTransaction, error) {
	out := make([]models.BankTransaction, len(txns))
	now := s.now()
	for i, txn := range txns {
		if err := store.ValidateTransaction(&txn); err != nil {
			return nil, err
		}
		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = now
		}
		s.stamp(&txn.ID, &txn.CreatedAt)
		out[i] = txn
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertTxn)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, txn := range out {
		if _, err := stmt.ExecContext(ctx, txn); err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateTransaction(ctx context.Context, txn *models.BankTransaction) error {
	if err := store.ValidateTransaction(txn); err != nil {
		return err
	}
	s.stamp(&txn.ID, &txn.CreatedAt)
	_, err := s.db.NamedExecContext(ctx, insertTxn, txn)
	return err
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*models.BankTransaction, error) {
	var txn models.BankTransaction
	q := `SELECT ` + txnColumns + ` FROM bank_transactions WHERE id = ? AND user_id = ?`
	if err := s.get(ctx, &txn, "transaction", q, userID, id); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]models.BankTransaction, error) {
	q := `SELECT ` + txnColumns + ` FROM bank_transactions WHERE user_id = ?`
	args := []any{userID}

	if f.Type != "" {
		q += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.StatementID != "" {
		q += ` AND statement_id = ?`
		args = append(args, f.StatementID)
	}
	if f.Unmatched {
		q += ` AND matched_check_id = ''`
	}
	if f.Validated != nil {
		q += ` AND validated = ?`
		args = append(args, *f.Validated)
	}
	q, args = appendRange(q, args, "date", f.Range)
	q += ` ORDER BY date, created_at, position`

	out := []models.BankTransaction{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, txn *models.BankTransaction) error {
	if err := store.ValidateTransaction(txn); err != nil {
		return err
	}
	q := `UPDATE bank_transactions SET
		date = :date, description = :description, amount = :amount, type = :type,
		check_number = :check_number, matched_check_id = :matched_check_id,
		category_id = :category_id, validated = :validated
		WHERE id = :id AND user_id = :user_id`
	return s.execOne(ctx, "transaction", txn.ID, q, txn)
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	return s.deleteOne(ctx, "transaction", "bank_transactions", userID, id)
}

// Checks

func (s *Store) CreateCheck(ctx context.Context, c *models.Check) error {
	if c.Status == "" {
		c.Status = models.CheckPending
	}
	if err := store.ValidateCheck(c); err != nil {
		return err
	}
	s.stamp(&c.ID, &c.CreatedAt)
	q := `INSERT INTO checks (` + checkColumns + `)
		VALUES (:id, :user_id, :check_number, :date_issued, :amount, :payee, :description, :status, :date_cleared, :bank_transaction_id, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, c)
	return err
}

func (s *Store) GetCheck(ctx context.Context, userID, id string) (*models.Check, error) {
	var c models.Check
	q := `SELECT ` + checkColumns + ` FROM checks WHERE id = ? AND user_id = ?`
	if err := s.get(ctx, &c, "check", q, userID, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListChecks(ctx context.Context, userID string, f store.CheckFilter) ([]models.Check, error) {
	q := `SELECT ` + checkColumns + ` FROM checks WHERE user_id = ?`
	args := []any{userID}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	q += ` ORDER BY date_issued, created_at`

	out := []models.Check{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateCheck(ctx context.Context, c *models.Check) error {
	if err := store.ValidateCheck(c); err != nil {
		return err
	}
	q := `UPDATE checks SET
		check_number = :check_number, date_issued = :date_issued, amount = :amount,
		payee = :payee, description = :description, status = :status,
		date_cleared = :date_cleared, bank_transaction_id = :bank_transaction_id
		WHERE id = :id AND user_id = :user_id`
	return s.execOne(ctx, "check", c.ID, q, c)
}

func (s *Store) DeleteCheck(ctx context.Context, userID, id string) error {
	return s.deleteOne(ctx, "check", "checks", userID, id)
}

// Statements

func (s *Store) CreateStatement(ctx context.Context, st *models.BankStatement) error {
	if err := store.ValidateStatement(st); err != nil {
		return err
	}
	s.stamp(&st.ID, &st.CreatedAt)
	q := `INSERT INTO bank_statements (` + statementColumns + `)
		VALUES (:id, :user_id, :filename, :period_start, :period_end, :starting_balance, :ending_balance, :transactions_count, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, st)
	return err
}

func (s *Store) GetStatement(ctx context.Context, userID, id string) (*models.BankStatement, error) {
	var st models.BankStatement
	q := `SELECT ` + statementColumns + ` FROM bank_statements WHERE id = ? AND user_id = ?`
	if err := s.get(ctx, &st, "statement", q, userID, id); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListStatements(ctx context.Context, userID string) ([]models.BankStatement, error) {
	out := []models.BankStatement{}
	q := `SELECT ` + statementColumns + ` FROM bank_statements WHERE user_id = ? ORDER BY created_at`
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), userID); err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	return out, nil
}

// Categories

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := store.ValidateCategory(c); err != nil {
		return err
	}
	s.stamp(&c.ID, &c.CreatedAt)
	q := `INSERT INTO categories (` + categoryColumns + `)
		VALUES (:id, :user_id, :name, :type, :is_predefined, :is_cogs, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, c)
	return err
}

func (s *Store) GetCategory(ctx context.Context, userID, id string) (*models.Category, error) {
	var c models.Category
	q := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ? AND user_id = ?`
	if err := s.get(ctx, &c, "category", q, userID, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]models.Category, error) {
	out := []models.Category{}
	q := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ? ORDER BY created_at, name`
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), userID); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	return s.deleteOne(ctx, "category", "categories", userID, id)
}

// Sales

func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	if err := store.ValidateSale(sale); err != nil {
		return err
	}
	s.stamp(&sale.ID, &sale.CreatedAt)
	q := `INSERT INTO sales (` + saleColumns + `)
		VALUES (:id, :user_id, :date, :amount, :category_id, :payment_method, :description, :source, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, sale)
	return err
}

func (s *Store) ListSales(ctx context.Context, userID string, r store.DateRange) ([]models.Sale, error) {
	q := `SELECT ` + saleColumns + ` FROM sales WHERE user_id = ?`
	args := []any{userID}
	q, args = appendRange(q, args, "date", r)
	q += ` ORDER BY date, created_at`

	out := []models.Sale{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteSale(ctx context.Context, userID, id string) error {
	return s.deleteOne(ctx, "sale", "sales", userID, id)
}

// Expenses

func (s *Store) CreateExpense(ctx context.Context, e *models.Expense) error {
	if err := store.ValidateExpense(e); err != nil {
		return err
	}
	s.stamp(&e.ID, &e.CreatedAt)
	q := `INSERT INTO expenses (` + expenseColumns + `)
		VALUES (:id, :user_id, :date, :amount, :category_id, :description, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, e)
	return err
}

func (s *Store) ListExpenses(ctx context.Context, userID string, r store.DateRange) ([]models.Expense, error) {
	q := `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = ?`
	args := []any{userID}
	q, args = appendRange(q, args, "date", r)
	q += ` ORDER BY date, created_at`

	out := []models.Expense{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	return s.deleteOne(ctx, "expense", "expenses", userID, id)
}

func appendRange(q string, args []any, column string, r store.DateRange) (string, []any) {
	if !r.From.IsZero() {
		q += ` AND ` + column + ` >= ?`
		args = append(args, r.From)
	}
	if !r.To.IsZero() {
		q += ` AND ` + column + ` <= ?`
		args = append(args, r.To)
	}
	return q, args
}
