package entity

import "time"

// CategoryType mirrors the transaction types plus a catch-all.
type CategoryType string

const (
	CategoryIncome   CategoryType = "INCOME"
	CategoryExpense  CategoryType = "EXPENSE"
	CategoryTransfer CategoryType = "TRANSFER"
	CategoryOther    CategoryType = "OTHER"
)

// Category is auto-vivified on first use: the pipeline finds an existing
// row by display name or creates one, so repeated transactions with the
// same label never accumulate duplicates.
type Category struct {
	ID          int64        `db:"id"`
	Name        string       `db:"name"`
	Type        CategoryType `db:"category_type"`
	Description string       `db:"description"`
	CreatedAt   time.Time    `db:"created_at"`
}

// DisplayName builds the canonical category name recorded for a
// transaction: "<label> - Account Transactions <account type>".
func DisplayName(label, accountType string) string {
	return label + " - Account Transactions " + accountType
}
