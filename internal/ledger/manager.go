package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ubudget/service-ledger-go/internal/ledger/entity"
)

// Stage names one of the four pipeline operations. The set is closed: the
// pipeline has exactly these steps, so dispatch is a switch rather than an
// open-ended strategy object.
type Stage int

const (
	StageVerify Stage = iota
	StageCompute
	StageInsert
	StageApply
)

func (s Stage) String() string {
	switch s {
	case StageVerify:
		return "verify"
	case StageCompute:
		return "compute"
	case StageInsert:
		return "insert"
	case StageApply:
		return "apply"
	}
	return "unknown"
}

// Manager holds a current stage and forwards the input tuple to it. It
// carries no memory of prior stages and gives no atomicity across calls;
// callers that want the race-free path use Service.Execute instead.
type Manager struct {
	svc   *Service
	stage Stage
}

func NewManager(svc *Service, initial Stage) *Manager {
	return &Manager{svc: svc, stage: initial}
}

// SetStage swaps the operation the next Run will perform.
func (m *Manager) SetStage(s Stage) { m.stage = s }

// Stage returns the currently selected operation.
func (m *Manager) Stage() Stage { return m.stage }

// Run forwards the input tuple to the current stage.
func (m *Manager) Run(ctx context.Context, in Input) (Result, error) {
	switch m.stage {
	case StageVerify:
		return m.svc.Verify(ctx, in)
	case StageCompute:
		return m.svc.computeStage(in)
	case StageInsert:
		return m.svc.insertStage(ctx, in)
	case StageApply:
		return m.svc.applyStage(ctx, in)
	}
	return refused(ReasonInvalidInput), nil
}

// computeStage parses both amount legs and applies the arithmetic mode
// from the Op slot.
func (s *Service) computeStage(in Input) (Result, error) {
	one, err := decimal.NewFromString(strings.TrimSpace(in.AmountOne))
	if err != nil {
		return refused(ReasonInvalidInput), nil
	}
	two := decimal.Zero
	if strings.TrimSpace(in.AmountTwo) != "" {
		two, err = decimal.NewFromString(strings.TrimSpace(in.AmountTwo))
		if err != nil {
			return refused(ReasonInvalidInput), nil
		}
	}
	return Result{OK: true, Amount: Compute(one, two, in.Op)}, nil
}

// insertStage persists a transaction row from an already-computed total in
// AmountOne. The category must exist: auto-vivification happens through
// EnsureCategory before this stage, mirroring the staged protocol where
// the Op slot carries the category display name between the two calls.
func (s *Service) insertStage(ctx context.Context, in Input) (Result, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(in.AmountOne))
	if err != nil || !amount.IsPositive() {
		return refused(ReasonInvalidInput), nil
	}

	primary, res, err := s.fetchAccount(ctx, in.AccountOne)
	if primary == nil {
		return res, err
	}
	var secondaryID *int64
	txType := entity.TypeExpense
	if in.AccountTwo != "" {
		secondary, res, err := s.fetchAccount(ctx, in.AccountTwo)
		if secondary == nil {
			return res, err
		}
		id := secondary.ID
		secondaryID = &id
		txType = entity.TypeTransfer
	}

	name := strings.TrimSpace(in.Op)
	if name == "" {
		name = entity.DisplayName(strings.TrimSpace(in.Category), string(primary.Type))
	}
	cat, err := s.store.GetCategory(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return refused(ReasonCategoryNotFound), nil
		}
		return Result{}, err
	}

	currency := strings.TrimSpace(in.Currency)
	if currency == "" {
		currency = string(primary.Currency)
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = "Transaction successful"
	}

	t := &entity.Transaction{
		AccountID:        primary.ID,
		RelatedAccountID: secondaryID,
		CategoryID:       cat.ID,
		Type:             txType,
		Amount:           amount,
		Currency:         currency,
		Description:      description,
		Reference:        s.NewReference(),
		OccurredAt:       s.Now(),
		IsReconciled:     true,
	}
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		return tx.InsertTransaction(ctx, t)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{OK: true, Amount: amount, Transaction: t}, nil
}

// applyStage writes pre-computed balances: AmountOne becomes the new
// balance of AccountOne, AmountTwo of AccountTwo when present. Used only
// by the staged protocol; Execute derives balances under lock instead.
func (s *Service) applyStage(ctx context.Context, in Input) (Result, error) {
	balanceOne, err := decimal.NewFromString(strings.TrimSpace(in.AmountOne))
	if err != nil {
		return refused(ReasonInvalidInput), nil
	}
	var balanceTwo decimal.Decimal
	if in.AccountTwo != "" {
		balanceTwo, err = decimal.NewFromString(strings.TrimSpace(in.AmountTwo))
		if err != nil {
			return refused(ReasonInvalidInput), nil
		}
	}

	var out Result
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		a, err := tx.LockAccount(ctx, in.AccountOne)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				out = refused(ReasonAccountNotFound)
				return errAbort
			}
			return err
		}
		if err := tx.UpdateBalance(ctx, a.ID, balanceOne); err != nil {
			return err
		}
		if in.AccountTwo != "" {
			b, err := tx.LockAccount(ctx, in.AccountTwo)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					out = refused(ReasonAccountNotFound)
					return errAbort
				}
				return err
			}
			if err := tx.UpdateBalance(ctx, b.ID, balanceTwo); err != nil {
				return err
			}
		}
		out = Result{OK: true}
		return nil
	})
	if err != nil && !errors.Is(err, errAbort) {
		return Result{}, err
	}
	return out, nil
}

// EnsureCategory finds or creates the category for a label against an
// account and returns the display name the insert stage expects. Repeated
// calls with the same label reuse the existing row.
func (s *Service) EnsureCategory(ctx context.Context, label, accountNumber string) (string, error) {
	if strings.TrimSpace(label) == "" {
		return "", ErrInvalidCategory
	}
	a, err := s.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return "", err
	}
	name := entity.DisplayName(strings.TrimSpace(label), string(a.Type))
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.FindOrCreateCategory(ctx, name, entity.CategoryOther)
		return err
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// ErrInvalidCategory is returned when a category label is blank.
var ErrInvalidCategory = errors.New("category label is empty")
