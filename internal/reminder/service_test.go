package reminder

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	obentity "github.com/ubudget/service-ledger-go/internal/obligation/entity"
	"github.com/ubudget/service-ledger-go/internal/reminder/entity"
)

type fakeRepo struct {
	users map[int64]bool
	rows  map[int64]*entity.Reminder
	next  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]bool{}, rows: map[int64]*entity.Reminder{}}
}

func (f *fakeRepo) UserExists(_ context.Context, userID int64) (bool, error) {
	return f.users[userID], nil
}

func (f *fakeRepo) Create(_ context.Context, rem *entity.Reminder) (int64, error) {
	f.next++
	rem.ID = f.next
	cp := *rem
	f.rows[rem.ID] = &cp
	return rem.ID, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID int64) ([]*entity.Reminder, error) {
	var out []*entity.Reminder
	for _, rem := range f.rows {
		if rem.UserID == userID {
			cp := *rem
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListDue(_ context.Context, now time.Time) ([]*entity.Reminder, error) {
	var out []*entity.Reminder
	for _, rem := range f.rows {
		if !rem.IsSent && !rem.RemindAt.After(now) {
			cp := *rem
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkSent(_ context.Context, id int64) (bool, error) {
	rem, ok := f.rows[id]
	if !ok || rem.IsSent {
		return false, nil
	}
	rem.IsSent = true
	return true, nil
}

type fakeObligations struct {
	rows map[string]*obentity.Obligation
}

func (f *fakeObligations) GetByTitle(_ context.Context, userID int64, title string) (*obentity.Obligation, error) {
	o, ok := f.rows[title]
	if !ok || o.UserID != userID {
		return nil, sql.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func TestCreateForObligation(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	due := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	obligations := &fakeObligations{rows: map[string]*obentity.Obligation{
		"Rent": {ID: 7, UserID: 1, Title: "Rent", DueDate: due},
	}}
	svc := NewService(repo, obligations)
	ctx := context.Background()

	rem, err := svc.CreateForObligation(ctx, 1, "Rent")
	if err != nil {
		t.Fatal(err)
	}
	if rem.Title != "Reminder for Obligation: Rent" {
		t.Fatalf("title=%q", rem.Title)
	}
	want := `Reminder: Your obligation "Rent" is due on 2026-06-15. Please ensure timely payment.`
	if rem.Message != want {
		t.Fatalf("message=%q", rem.Message)
	}
	if !rem.RemindAt.Equal(due.AddDate(0, 0, -5)) {
		t.Fatalf("remind_at=%s want five days before due", rem.RemindAt)
	}
	if rem.ChannelSet != (entity.ChannelSet{Push: true}) {
		t.Fatalf("channels=%+v want push only", rem.ChannelSet)
	}
	if rem.ObligationID == nil || *rem.ObligationID != 7 {
		t.Fatalf("obligation link wrong: %+v", rem.ObligationID)
	}

	if _, err := svc.CreateForObligation(ctx, 1, "Electricity"); !errors.Is(err, ErrObligationNotFound) {
		t.Fatalf("missing obligation: err=%v", err)
	}
	if _, err := svc.CreateForObligation(ctx, 2, "Rent"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: err=%v", err)
	}
	if _, err := svc.CreateForObligation(ctx, 1, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank title: err=%v", err)
	}
}

func TestCreateStandalone(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	svc := NewService(repo, &fakeObligations{rows: map[string]*obentity.Obligation{}})
	ctx := context.Background()

	at := time.Date(2026, time.July, 1, 9, 0, 0, 0, time.UTC)
	rem, err := svc.CreateStandalone(ctx, StandaloneInput{UserID: 1, Title: "Check budget", RemindAt: at})
	if err != nil {
		t.Fatal(err)
	}
	// Empty channel set falls back to push.
	if rem.ChannelSet != (entity.ChannelSet{Push: true}) {
		t.Fatalf("channels=%+v", rem.ChannelSet)
	}

	if _, err := svc.CreateStandalone(ctx, StandaloneInput{UserID: 1, Title: "", RemindAt: at}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank title: err=%v", err)
	}
	if _, err := svc.CreateStandalone(ctx, StandaloneInput{UserID: 1, Title: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero remind_at: err=%v", err)
	}
}

func TestDueAndMarkSent(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	svc := NewService(repo, &fakeObligations{rows: map[string]*obentity.Obligation{}})
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	duev, err := svc.CreateStandalone(ctx, StandaloneInput{UserID: 1, Title: "due", RemindAt: past})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateStandalone(ctx, StandaloneInput{UserID: 1, Title: "later", RemindAt: future}); err != nil {
		t.Fatal(err)
	}

	ready, err := svc.ListDue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 1 || ready[0].ID != duev.ID {
		t.Fatalf("due list wrong: %+v", ready)
	}

	if err := svc.MarkSent(ctx, duev.ID); err != nil {
		t.Fatal(err)
	}
	// Second delivery attempt is refused.
	if err := svc.MarkSent(ctx, duev.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double send: err=%v", err)
	}

	ready, err = svc.ListDue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 0 {
		t.Fatalf("sent reminders must drop out of the due list: %+v", ready)
	}
}
