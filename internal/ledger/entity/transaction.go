package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates the direction of money movement.
type TransactionType string

const (
	TypeIncome   TransactionType = "INCOME"
	TypeExpense  TransactionType = "EXPENSE"
	TypeTransfer TransactionType = "TRANSFER"
)

// Transaction is an immutable ledger row. Corrections are made with new
// offsetting transactions, never edits.
type Transaction struct {
	ID               int64           `db:"id"`
	AccountID        int64           `db:"account_id"`
	RelatedAccountID *int64          `db:"related_account_id"`
	CategoryID       int64           `db:"category_id"`
	Type             TransactionType `db:"transaction_type"`
	Amount           decimal.Decimal `db:"amount"`
	Currency         string          `db:"currency"`
	Description      string          `db:"description"`
	Reference        string          `db:"reference"`
	OccurredAt       time.Time       `db:"occurred_at"`
	CreatedAt        time.Time       `db:"created_at"`
	IsReconciled     bool            `db:"is_reconciled"`
}
