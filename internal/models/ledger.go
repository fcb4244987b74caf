package models

import "time"

// CategoryType separates income from expense categories.
type CategoryType string

const (
	IncomeCategory  CategoryType = "income"
	ExpenseCategory CategoryType = "expense"
)

// Category is an income/expense taxonomy entry. IsCOGS marks expense
// categories that count as cost of goods sold.
type Category struct {
	ID           string       `db:"id" json:"id"`
	UserID       string       `db:"user_id" json:"user_id"`
	Name         string       `db:"name" json:"name"`
	Type         CategoryType `db:"type" json:"type"`
	IsPredefined bool         `db:"is_predefined" json:"is_predefined"`
	IsCOGS       bool         `db:"is_cogs" json:"is_cogs"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// Sale is a manually recorded sale.
type Sale struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Date          Date      `db:"date" json:"date"`
	Amount        float64   `db:"amount" json:"amount"`
	CategoryID    string    `db:"category_id" json:"category_id"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	Description   string    `db:"description" json:"description,omitempty"`
	Source        string    `db:"source" json:"source"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Expense is a manually recorded expense.
type Expense struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Date        Date      `db:"date" json:"date"`
	Amount      float64   `db:"amount" json:"amount"`
	CategoryID  string    `db:"category_id" json:"category_id"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
