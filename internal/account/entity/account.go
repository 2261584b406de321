package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates the supported account kinds.
type AccountType string

const (
	TypeCash       AccountType = "CASH"
	TypeSavings    AccountType = "SAVINGS"
	TypeChecking   AccountType = "CHECKING"
	TypeCredit     AccountType = "CREDIT"
	TypeInvestment AccountType = "INVESTMENT"
	TypeOther      AccountType = "OTHER"
)

// Currency enumerates the supported account currencies.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCOP Currency = "COP"
	CurrencyEUR Currency = "EUR"
)

// Account is a row in the `accounts` table. CachedBalance is the
// authoritative running balance: it must equal the sum of all committed
// transactions against the account, and the ledger pipeline is the only
// writer.
type Account struct {
	ID            int64           `db:"id"`
	UserID        int64           `db:"user_id"`
	Number        string          `db:"account_number"`
	Name          string          `db:"account_name"`
	Type          AccountType     `db:"account_type"`
	Currency      Currency        `db:"currency"`
	CachedBalance decimal.Decimal `db:"cached_balance"`
	IsActive      bool            `db:"is_active"`
	CreatedAt     time.Time       `db:"created_at"`
}

// numberPrefixes maps each account type to its fixed 4-digit prefix. The
// prefix is part of the external account handle, so these values must not
// change once accounts exist.
var numberPrefixes = map[AccountType]string{
	TypeCash:       "5500",
	TypeChecking:   "5501",
	TypeSavings:    "5502",
	TypeCredit:     "5503",
	TypeInvestment: "5504",
	TypeOther:      "5599",
}

// ValidType reports whether t is one of the supported account types.
func ValidType(t AccountType) bool {
	_, ok := numberPrefixes[t]
	return ok
}

// ValidCurrency reports whether c is a supported currency.
func ValidCurrency(c Currency) bool {
	switch c {
	case CurrencyUSD, CurrencyCOP, CurrencyEUR:
		return true
	}
	return false
}

// NumberForType generates an opaque external account number of the form
// "<4-digit-type-prefix>-<uuidv4>". Uniqueness rides on the random UUID;
// it is not checked against existing rows.
func NumberForType(t AccountType) string {
	prefix, ok := numberPrefixes[t]
	if !ok {
		prefix = numberPrefixes[TypeOther]
	}
	return prefix + "-" + uuid.NewString()
}
