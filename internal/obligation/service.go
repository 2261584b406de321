package obligation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ubudget/service-ledger-go/internal/obligation/entity"
	"github.com/ubudget/service-ledger-go/internal/verify"
)

var (
	ErrInvalidInput = errors.New("invalid obligation input")
	ErrUserNotFound = errors.New("user not found")
	ErrNotFound     = errors.New("obligation not found")
)

// DueDateLayout is the wire format for due dates.
const DueDateLayout = "2006-01-02"

// Repository is the persistence surface the service needs.
type Repository interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	Create(ctx context.Context, o *entity.Obligation) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.Obligation, error)
	ListByUser(ctx context.Context, userID int64) ([]*entity.Obligation, error)
	SetState(ctx context.Context, id, userID int64, state entity.State) (bool, error)
}

// CreateInput carries an obligation creation request. Amounts are decimal
// strings; the due date uses DueDateLayout.
type CreateInput struct {
	UserID          int64
	Title           string
	AmountTotal     string
	AmountRemaining string
	Currency        string
	DueDate         string
	Frequency       entity.Frequency
}

// Service validates and persists obligations.
type Service struct {
	repo Repository
	Now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, Now: time.Now}
}

// Validate checks the request without persisting anything: the user must
// exist, the fields must parse, and the due date must be at least one
// calendar month out.
func (s *Service) Validate(ctx context.Context, in CreateInput) error {
	ok, err := s.repo.UserExists(ctx, in.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	if !verify.ObligationFields(in.Title, in.AmountTotal, in.DueDate) {
		return ErrInvalidInput
	}
	if in.Frequency != "" && !entity.ValidFrequency(in.Frequency) {
		return ErrInvalidInput
	}
	due, err := time.Parse(DueDateLayout, strings.TrimSpace(in.DueDate))
	if err != nil {
		return ErrInvalidInput
	}
	if !verify.ObligationDueDate(due, s.Now()) {
		return ErrInvalidInput
	}
	return nil
}

// Insert persists the obligation without re-validating. Amount remaining
// defaults to the total, currency to USD, frequency to one_time.
func (s *Service) Insert(ctx context.Context, in CreateInput) (*entity.Obligation, error) {
	total, err := decimal.NewFromString(strings.TrimSpace(in.AmountTotal))
	if err != nil {
		return nil, ErrInvalidInput
	}
	remaining := total
	if r := strings.TrimSpace(in.AmountRemaining); r != "" {
		remaining, err = decimal.NewFromString(r)
		if err != nil {
			return nil, ErrInvalidInput
		}
	}
	due, err := time.Parse(DueDateLayout, strings.TrimSpace(in.DueDate))
	if err != nil {
		return nil, ErrInvalidInput
	}
	o := &entity.Obligation{
		UserID:          in.UserID,
		Title:           strings.TrimSpace(in.Title),
		AmountTotal:     total,
		AmountRemaining: remaining,
		Currency:        "USD",
		DueDate:         due,
		Frequency:       entity.FrequencyOneTime,
		State:           entity.StateOpen,
	}
	if c := strings.ToUpper(strings.TrimSpace(in.Currency)); c != "" {
		o.Currency = c
	}
	if in.Frequency != "" {
		o.Frequency = in.Frequency
	}
	if _, err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateObligation runs validation then insertion.
func (s *Service) CreateObligation(ctx context.Context, in CreateInput) (*entity.Obligation, error) {
	if err := s.Validate(ctx, in); err != nil {
		return nil, err
	}
	return s.Insert(ctx, in)
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*entity.Obligation, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Cancel moves an obligation to the cancelled state.
func (s *Service) Cancel(ctx context.Context, id, userID int64) error {
	ok, err := s.repo.SetState(ctx, id, userID, entity.StateCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
