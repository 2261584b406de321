package reminder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	obentity "github.com/ubudget/service-ledger-go/internal/obligation/entity"
	"github.com/ubudget/service-ledger-go/internal/reminder/entity"
)

var (
	ErrInvalidInput       = errors.New("invalid reminder input")
	ErrUserNotFound       = errors.New("user not found")
	ErrObligationNotFound = errors.New("obligation not found")
	ErrNotFound           = errors.New("reminder not found")
)

// Obligations is the lookup surface borrowed from the obligation module.
type Obligations interface {
	GetByTitle(ctx context.Context, userID int64, title string) (*obentity.Obligation, error)
}

// Repository is the persistence surface the service needs.
type Repository interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	Create(ctx context.Context, rem *entity.Reminder) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]*entity.Reminder, error)
	ListDue(ctx context.Context, now time.Time) ([]*entity.Reminder, error)
	MarkSent(ctx context.Context, id int64) (bool, error)
}

// Service creates reminders and advances their sent state. Delivery itself
// is external; MarkSent is what a delivery worker calls after the fact.
type Service struct {
	repo        Repository
	obligations Obligations
	Now         func() time.Time
}

func NewService(repo Repository, obligations Obligations) *Service {
	return &Service{repo: repo, obligations: obligations, Now: time.Now}
}

// CreateForObligation derives a reminder from an obligation looked up by
// title: it fires five days before the due date on the push channel.
func (s *Service) CreateForObligation(ctx context.Context, userID int64, title string) (*entity.Reminder, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidInput
	}
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	o, err := s.obligations.GetByTitle(ctx, userID, title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrObligationNotFound
		}
		return nil, err
	}
	due := o.DueDate
	rem := &entity.Reminder{
		UserID:       userID,
		ObligationID: &o.ID,
		Title:        "Reminder for Obligation: " + o.Title,
		Message:      fmt.Sprintf("Reminder: Your obligation %q is due on %s. Please ensure timely payment.", o.Title, due.Format("2006-01-02")),
		RemindAt:     due.AddDate(0, 0, -5),
		ChannelSet:   entity.DefaultChannels(),
	}
	if _, err := s.repo.Create(ctx, rem); err != nil {
		return nil, err
	}
	return rem, nil
}

// StandaloneInput carries a free-form reminder request.
type StandaloneInput struct {
	UserID     int64
	AccountID  *int64
	Title      string
	Message    string
	RemindAt   time.Time
	ChannelSet entity.ChannelSet
}

// CreateStandalone persists a reminder not tied to an obligation.
func (s *Service) CreateStandalone(ctx context.Context, in StandaloneInput) (*entity.Reminder, error) {
	if strings.TrimSpace(in.Title) == "" || in.RemindAt.IsZero() {
		return nil, ErrInvalidInput
	}
	ok, err := s.repo.UserExists(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	channels := in.ChannelSet
	if channels == (entity.ChannelSet{}) {
		channels = entity.DefaultChannels()
	}
	rem := &entity.Reminder{
		UserID:     in.UserID,
		AccountID:  in.AccountID,
		Title:      strings.TrimSpace(in.Title),
		Message:    in.Message,
		RemindAt:   in.RemindAt,
		ChannelSet: channels,
	}
	if _, err := s.repo.Create(ctx, rem); err != nil {
		return nil, err
	}
	return rem, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*entity.Reminder, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListDue returns reminders ready for delivery.
func (s *Service) ListDue(ctx context.Context) ([]*entity.Reminder, error) {
	return s.repo.ListDue(ctx, s.Now())
}

// MarkSent records a completed delivery. Sending twice is a no-op error.
func (s *Service) MarkSent(ctx context.Context, id int64) error {
	ok, err := s.repo.MarkSent(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
