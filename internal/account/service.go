package account

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ubudget/service-ledger-go/internal/account/entity"
	"github.com/ubudget/service-ledger-go/internal/verify"
)

var (
	ErrInvalidInput = errors.New("invalid account data")
	ErrNotFound     = errors.New("account not found")
)

// Repository is the data access surface the service needs. The sqlx
// implementation lives in the repo package; tests use an in-memory fake.
type Repository interface {
	Create(ctx context.Context, a *entity.Account) (int64, error)
	GetByNumber(ctx context.Context, number string) (*entity.Account, error)
	ListByUser(ctx context.Context, userID int64) ([]*entity.Account, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	Deactivate(ctx context.Context, userID int64, number string) (bool, error)
}

// Service owns account lifecycle: creation with number generation, listing,
// and soft deactivation.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// CreateAccount validates the request, generates the external account
// number and persists the row. The opening balance must be positive, and
// type/currency must be known values (the original left these unchecked;
// closing that gap is recorded in DESIGN.md).
func (s *Service) CreateAccount(ctx context.Context, userID int64, name string, typ entity.AccountType, currency entity.Currency, balance string) (*entity.Account, error) {
	if !verify.AccountCreation(name, balance) {
		return nil, ErrInvalidInput
	}
	if !entity.ValidType(typ) || !entity.ValidCurrency(currency) {
		return nil, ErrInvalidInput
	}
	opening, err := decimal.NewFromString(strings.TrimSpace(balance))
	if err != nil {
		return nil, ErrInvalidInput
	}
	a := &entity.Account{
		UserID:        userID,
		Number:        entity.NumberForType(typ),
		Name:          strings.TrimSpace(name),
		Type:          typ,
		Currency:      currency,
		CachedBalance: opening,
		IsActive:      true,
	}
	if _, err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeactivateAccount soft-deletes an account owned by the user.
func (s *Service) DeactivateAccount(ctx context.Context, userID int64, number string) error {
	done, err := s.repo.Deactivate(ctx, userID, number)
	if err != nil {
		return err
	}
	if !done {
		return ErrNotFound
	}
	return nil
}

// ListAccounts returns the user's active accounts.
func (s *Service) ListAccounts(ctx context.Context, userID int64) ([]*entity.Account, error) {
	return s.repo.ListByUser(ctx, userID)
}

// CountAccounts returns how many active accounts the user holds.
func (s *Service) CountAccounts(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountByUser(ctx, userID)
}
