package obligation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ubudget/service-ledger-go/internal/obligation/entity"
)

type fakeRepo struct {
	users map[int64]bool
	rows  map[int64]*entity.Obligation
	next  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]bool{}, rows: map[int64]*entity.Obligation{}}
}

func (f *fakeRepo) UserExists(_ context.Context, userID int64) (bool, error) {
	return f.users[userID], nil
}

func (f *fakeRepo) Create(_ context.Context, o *entity.Obligation) (int64, error) {
	f.next++
	o.ID = f.next
	cp := *o
	f.rows[o.ID] = &cp
	return o.ID, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*entity.Obligation, error) {
	o, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID int64) ([]*entity.Obligation, error) {
	var out []*entity.Obligation
	for _, o := range f.rows {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) SetState(_ context.Context, id, userID int64, state entity.State) (bool, error) {
	o, ok := f.rows[id]
	if !ok || o.UserID != userID {
		return false, nil
	}
	o.State = state
	return true, nil
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo)
	// Pin the clock so the one-month floor is deterministic.
	svc.Now = func() time.Time {
		return time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)
	}
	return svc
}

func validInput() CreateInput {
	return CreateInput{
		UserID:      1,
		Title:       "Rent",
		AmountTotal: "1200.50",
		DueDate:     "2026-05-01",
	}
}

func TestCreateObligationDefaults(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	svc := newTestService(repo)

	o, err := svc.CreateObligation(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}
	if !o.AmountRemaining.Equal(decimal.RequireFromString("1200.50")) {
		t.Fatalf("remaining should default to total, got %s", o.AmountRemaining)
	}
	if o.Currency != "USD" || o.Frequency != entity.FrequencyOneTime || o.State != entity.StateOpen {
		t.Fatalf("defaults wrong: %+v", o)
	}
}

func TestValidateRefusals(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	svc := newTestService(repo)
	ctx := context.Background()

	unknown := validInput()
	unknown.UserID = 99
	if err := svc.Validate(ctx, unknown); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: err=%v", err)
	}

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"blank title", func(in *CreateInput) { in.Title = "  " }},
		{"blank amount", func(in *CreateInput) { in.AmountTotal = "" }},
		{"bad amount", func(in *CreateInput) { in.AmountTotal = "twelve" }},
		{"negative amount", func(in *CreateInput) { in.AmountTotal = "-5" }},
		{"blank due date", func(in *CreateInput) { in.DueDate = "" }},
		{"malformed due date", func(in *CreateInput) { in.DueDate = "05/01/2026" }},
		{"unknown frequency", func(in *CreateInput) { in.Frequency = "weekly" }},
	}
	for _, c := range cases {
		in := validInput()
		c.mutate(&in)
		if err := svc.Validate(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err=%v want ErrInvalidInput", c.name, err)
		}
	}
}

func TestValidateDueDateFloor(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	svc := newTestService(repo)
	ctx := context.Background()

	// Clock pinned to 2026-03-10, so the floor is 2026-04-10.
	early := validInput()
	early.DueDate = "2026-04-09"
	if err := svc.Validate(ctx, early); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("one day before the floor: err=%v", err)
	}
	onFloor := validInput()
	onFloor.DueDate = "2026-04-10"
	if err := svc.Validate(ctx, onFloor); err != nil {
		t.Fatalf("the floor itself must pass: %v", err)
	}
}

func TestCancel(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	svc := newTestService(repo)
	ctx := context.Background()

	o, err := svc.CreateObligation(ctx, validInput())
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Cancel(ctx, o.ID, 1); err != nil {
		t.Fatal(err)
	}
	if repo.rows[o.ID].State != entity.StateCancelled {
		t.Fatalf("state=%s want cancelled", repo.rows[o.ID].State)
	}
	// Another user's obligation looks like a miss.
	if err := svc.Cancel(ctx, o.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign cancel: err=%v", err)
	}
	if err := svc.Cancel(ctx, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing row: err=%v", err)
	}
}
