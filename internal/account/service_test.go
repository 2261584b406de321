package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ubudget/service-ledger-go/internal/account/entity"
)

type fakeRepo struct {
	rows map[string]*entity.Account
	next int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[string]*entity.Account{}}
}

func (f *fakeRepo) Create(_ context.Context, a *entity.Account) (int64, error) {
	f.next++
	a.ID = f.next
	cp := *a
	f.rows[a.Number] = &cp
	return a.ID, nil
}

func (f *fakeRepo) GetByNumber(_ context.Context, number string) (*entity.Account, error) {
	a, ok := f.rows[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID int64) ([]*entity.Account, error) {
	var out []*entity.Account
	for _, a := range f.rows {
		if a.UserID == userID && a.IsActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountByUser(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, a := range f.rows {
		if a.UserID == userID && a.IsActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) Deactivate(_ context.Context, userID int64, number string) (bool, error) {
	a, ok := f.rows[number]
	if !ok || a.UserID != userID || !a.IsActive {
		return false, nil
	}
	a.IsActive = false
	return true, nil
}

func TestCreateAccount(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	a, err := svc.CreateAccount(context.Background(), 1, "Daily savings", entity.TypeSavings, entity.CurrencyUSD, "250.75")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(a.Number, "5502-") {
		t.Fatalf("savings number must use the 5502 prefix, got %q", a.Number)
	}
	if !a.CachedBalance.Equal(decimal.RequireFromString("250.75")) {
		t.Fatalf("opening balance=%s", a.CachedBalance)
	}
	if !a.IsActive {
		t.Fatal("new accounts start active")
	}
}

func TestCreateAccountRefusals(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	cases := []struct {
		name     string
		accName  string
		typ      entity.AccountType
		currency entity.Currency
		balance  string
	}{
		{"blank name", "  ", entity.TypeCash, entity.CurrencyUSD, "100"},
		{"zero balance", "Wallet", entity.TypeCash, entity.CurrencyUSD, "0"},
		{"negative balance", "Wallet", entity.TypeCash, entity.CurrencyUSD, "-5"},
		{"unparsable balance", "Wallet", entity.TypeCash, entity.CurrencyUSD, "lots"},
		{"unknown type", "Wallet", entity.AccountType("PIGGYBANK"), entity.CurrencyUSD, "100"},
		{"unknown currency", "Wallet", entity.TypeCash, entity.Currency("GBP"), "100"},
	}
	for _, c := range cases {
		if _, err := svc.CreateAccount(ctx, 1, c.accName, c.typ, c.currency, c.balance); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err=%v want ErrInvalidInput", c.name, err)
		}
	}
}

func TestDeactivateAccount(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	a, err := svc.CreateAccount(ctx, 1, "Wallet", entity.TypeCash, entity.CurrencyUSD, "100")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeactivateAccount(ctx, 1, a.Number); err != nil {
		t.Fatal(err)
	}
	// Deactivating again, or someone else's account, misses.
	if err := svc.DeactivateAccount(ctx, 1, a.Number); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double deactivate: err=%v", err)
	}
	if err := svc.DeactivateAccount(ctx, 2, a.Number); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign deactivate: err=%v", err)
	}

	n, err := svc.CountAccounts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("count=%d want 0 after deactivation", n)
	}
}

func TestListAccountsScopedToUser(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, 1, "Mine", entity.TypeChecking, entity.CurrencyUSD, "10"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateAccount(ctx, 2, "Theirs", entity.TypeChecking, entity.CurrencyEUR, "10"); err != nil {
		t.Fatal(err)
	}
	mine, err := svc.ListAccounts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].Name != "Mine" {
		t.Fatalf("list wrong: %+v", mine)
	}
}
