package ledger

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	accentity "github.com/ubudget/service-ledger-go/internal/account/entity"
	"github.com/ubudget/service-ledger-go/internal/ledger/entity"
	"github.com/ubudget/service-ledger-go/pkg/utilities"
)

// Reason tells callers exactly why a pipeline run was refused. The ledger
// never reports a bare false: every refusal carries one of these.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidInput
	ReasonUserNotFound
	ReasonAccountNotFound
	ReasonAccountInactive
	ReasonInsufficientFunds
	ReasonCategoryNotFound
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "ok"
	case ReasonInvalidInput:
		return "invalid input"
	case ReasonUserNotFound:
		return "user not found"
	case ReasonAccountNotFound:
		return "account not found"
	case ReasonAccountInactive:
		return "account inactive"
	case ReasonInsufficientFunds:
		return "insufficient funds"
	case ReasonCategoryNotFound:
		return "category not found"
	}
	return "unknown"
}

// Input is the fixed tuple every pipeline stage receives. Amounts are
// decimal strings at this boundary. Op selects the compute mode ("sum"
// adds, anything else subtracts) and doubles as the free slot the caller
// repurposes between stages, as the stage protocol always did.
type Input struct {
	UserRef     string
	AccountOne  string
	AccountTwo  string
	Category    string
	AmountOne   string
	AmountTwo   string
	Currency    string
	Description string
	Op          string
}

// Result is the outcome of a stage or of a full pipeline run.
type Result struct {
	OK          bool
	Reason      Reason
	Amount      decimal.Decimal
	Transaction *entity.Transaction
}

func refused(r Reason) Result { return Result{Reason: r} }

// Store is the read surface plus the transactional entry point the
// pipeline needs. The sqlx implementation lives in the repo package.
type Store interface {
	UserExists(ctx context.Context, userRef string) (bool, error)
	GetAccount(ctx context.Context, number string) (*accentity.Account, error)
	GetCategory(ctx context.Context, name string) (*entity.Category, error)
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the unit-of-work surface available inside WithinTx. LockAccount
// must hold a write lock on the row until the enclosing transaction ends.
type Tx interface {
	LockAccount(ctx context.Context, number string) (*accentity.Account, error)
	FindOrCreateCategory(ctx context.Context, name string, ctype entity.CategoryType) (*entity.Category, error)
	InsertTransaction(ctx context.Context, t *entity.Transaction) error
	UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
}

// Service runs the ledger pipeline: verify funds, compute amounts, insert
// the transaction row, and apply the new balances. Execute runs all four
// steps in one database transaction; the Manager exposes them one stage at
// a time for callers that sequence the pipeline themselves.
type Service struct {
	store Store

	// NewReference mints the transaction reference code. Defaults to a
	// snowflake ID; tests may pin it.
	NewReference func() string
	// Now is the clock; tests may pin it.
	Now func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:        store,
		NewReference: utilities.NewSnowflakeID,
		Now:          time.Now,
	}
}

// Compute is the arithmetic stage. "sum" adds; any other mode subtracts.
func Compute(a, b decimal.Decimal, mode string) decimal.Decimal {
	if mode == "sum" {
		return a.Add(b)
	}
	return a.Sub(b)
}

// hasFunds applies the strict sufficiency rule: the balance after the
// debit must stay above zero. A debit that would land exactly on zero is
// refused.
func hasFunds(balance, amount decimal.Decimal) bool {
	return balance.Sub(amount).IsPositive()
}

// parseAmounts validates and parses the two amount legs. AmountOne is
// required and must be positive; AmountTwo defaults to zero when blank and
// must be positive when a secondary account participates.
func parseAmounts(in Input) (one, two decimal.Decimal, ok bool) {
	var err error
	one, err = decimal.NewFromString(strings.TrimSpace(in.AmountOne))
	if err != nil || !one.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	if strings.TrimSpace(in.AmountTwo) == "" {
		two = decimal.Zero
	} else {
		two, err = decimal.NewFromString(strings.TrimSpace(in.AmountTwo))
		if err != nil || two.IsNegative() {
			return decimal.Zero, decimal.Zero, false
		}
	}
	if in.AccountTwo != "" && !two.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	return one, two, true
}

// Verify is the funds-check stage. Checks run in a fixed order and the
// first failure wins: user, primary account, secondary account, primary
// funds, secondary funds, category label.
func (s *Service) Verify(ctx context.Context, in Input) (Result, error) {
	one, two, ok := parseAmounts(in)
	if !ok {
		return refused(ReasonInvalidInput), nil
	}

	found, err := s.store.UserExists(ctx, in.UserRef)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return refused(ReasonUserNotFound), nil
	}

	primary, res, err := s.fetchAccount(ctx, in.AccountOne)
	if primary == nil {
		return res, err
	}

	var secondary *accentity.Account
	if in.AccountTwo != "" {
		secondary, res, err = s.fetchAccount(ctx, in.AccountTwo)
		if secondary == nil {
			return res, err
		}
	}

	if !hasFunds(primary.CachedBalance, one) {
		return refused(ReasonInsufficientFunds), nil
	}
	if secondary != nil && !hasFunds(secondary.CachedBalance, two) {
		return refused(ReasonInsufficientFunds), nil
	}

	if strings.TrimSpace(in.Category) == "" {
		return refused(ReasonInvalidInput), nil
	}
	return Result{OK: true}, nil
}

func (s *Service) fetchAccount(ctx context.Context, number string) (*accentity.Account, Result, error) {
	a, err := s.store.GetAccount(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, refused(ReasonAccountNotFound), nil
		}
		return nil, Result{}, err
	}
	if !a.IsActive {
		return nil, refused(ReasonAccountInactive), nil
	}
	return a, Result{}, nil
}

// Execute runs the whole pipeline inside one database transaction. All
// participating account rows are locked for the duration, so the funds
// check cannot go stale before the balance write and concurrent runs
// against the same account serialize instead of losing updates.
func (s *Service) Execute(ctx context.Context, in Input) (Result, error) {
	one, two, ok := parseAmounts(in)
	if !ok {
		return refused(ReasonInvalidInput), nil
	}
	if strings.TrimSpace(in.Category) == "" {
		return refused(ReasonInvalidInput), nil
	}

	found, err := s.store.UserExists(ctx, in.UserRef)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return refused(ReasonUserNotFound), nil
	}

	var out Result
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		// Lock in a fixed order so two transfers touching the same pair
		// of accounts cannot deadlock.
		numbers := []string{in.AccountOne}
		if in.AccountTwo != "" {
			numbers = append(numbers, in.AccountTwo)
		}
		sort.Strings(numbers)

		locked := make(map[string]*accentity.Account, len(numbers))
		for _, n := range numbers {
			a, err := tx.LockAccount(ctx, n)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					out = refused(ReasonAccountNotFound)
					return errAbort
				}
				return err
			}
			if !a.IsActive {
				out = refused(ReasonAccountInactive)
				return errAbort
			}
			locked[n] = a
		}
		primary := locked[in.AccountOne]
		var secondary *accentity.Account
		if in.AccountTwo != "" {
			secondary = locked[in.AccountTwo]
		}

		if !hasFunds(primary.CachedBalance, one) {
			out = refused(ReasonInsufficientFunds)
			return errAbort
		}
		if secondary != nil && !hasFunds(secondary.CachedBalance, two) {
			out = refused(ReasonInsufficientFunds)
			return errAbort
		}

		txType := entity.TypeExpense
		ctype := entity.CategoryExpense
		if secondary != nil {
			txType = entity.TypeTransfer
			ctype = entity.CategoryTransfer
		}

		cat, err := tx.FindOrCreateCategory(ctx,
			entity.DisplayName(strings.TrimSpace(in.Category), string(primary.Type)), ctype)
		if err != nil {
			return err
		}

		total := Compute(one, two, "sum")
		currency := strings.TrimSpace(in.Currency)
		if currency == "" {
			currency = string(primary.Currency)
		}
		description := strings.TrimSpace(in.Description)
		if description == "" {
			description = "Transaction successful"
		}

		t := &entity.Transaction{
			AccountID:    primary.ID,
			CategoryID:   cat.ID,
			Type:         txType,
			Amount:       total,
			Currency:     currency,
			Description:  description,
			Reference:    s.NewReference(),
			OccurredAt:   s.Now(),
			IsReconciled: true,
		}
		if secondary != nil {
			id := secondary.ID
			t.RelatedAccountID = &id
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return err
		}

		// Each leg is debited by its own amount, against the balance read
		// under the lock.
		if err := tx.UpdateBalance(ctx, primary.ID, primary.CachedBalance.Sub(one)); err != nil {
			return err
		}
		if secondary != nil {
			if err := tx.UpdateBalance(ctx, secondary.ID, secondary.CachedBalance.Sub(two)); err != nil {
				return err
			}
		}

		out = Result{OK: true, Reason: ReasonNone, Amount: total, Transaction: t}
		return nil
	})
	if err != nil && !errors.Is(err, errAbort) {
		return Result{}, err
	}
	return out, nil
}

// errAbort rolls the enclosing transaction back while letting the typed
// refusal in `out` travel to the caller as a non-error.
var errAbort = errors.New("ledger: abort")
