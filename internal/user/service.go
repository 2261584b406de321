package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ubudget/service-ledger-go/internal/user/entity"
	"github.com/ubudget/service-ledger-go/internal/verify"
	"github.com/ubudget/service-ledger-go/pkg/utilities"
)

var (
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrWeakPassword   = errors.New("password does not meet requirements")
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrDisabled       = errors.New("user disabled")
	ErrSessionExpired = errors.New("session expired")
)

// PasswordHasher abstracts hashing so tests can drop the cost.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher is the production hasher.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Repository is the persistence surface the service needs.
type Repository interface {
	Create(ctx context.Context, u *entity.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	TouchLastLogin(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// SessionStore persists opaque refresh tokens.
type SessionStore interface {
	Save(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	Get(ctx context.Context, token string) (int64, time.Time, error)
	Delete(ctx context.Context, token string) error
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Service orchestrates registration and authentication flows.
type Service struct {
	repo     Repository
	sessions SessionStore
	hasher   PasswordHasher
	tokens   *TokenIssuer

	RefreshTTL time.Duration
	Now        func() time.Time
	// NewRefreshToken mints opaque session tokens.
	NewRefreshToken func() string
}

func NewService(repo Repository, sessions SessionStore, tokens *TokenIssuer, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{
		repo:            repo,
		sessions:        sessions,
		hasher:          hasher,
		tokens:          tokens,
		RefreshTTL:      30 * 24 * time.Hour,
		Now:             time.Now,
		NewRefreshToken: utilities.NewKSUID,
	}
}

// Register validates and creates a new user.
func (s *Service) Register(ctx context.Context, email, password string, name string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !verify.Email(email) {
		return nil, ErrInvalidEmail
	}
	if !verify.Password(password) {
		return nil, ErrWeakPassword
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:        email,
		PasswordHash: hash,
		Role:         entity.RoleUser,
		IsActive:     true,
	}
	if n := strings.TrimSpace(name); n != "" {
		u.Name = &n
	}
	if _, err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials and records the login. Lookup misses and
// hash mismatches both come back as ErrBadCredentials to avoid user
// enumeration.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrDisabled
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	if err := s.repo.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// Login authenticates and issues an access/refresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *entity.User, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return pair, u, nil
}

// Refresh rotates a refresh session and returns a fresh pair. The old token
// is invalid afterwards whether or not the rotation succeeds.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, expiresAt, err := s.sessions.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		return nil, err
	}
	if expiresAt.Before(s.Now()) {
		return nil, ErrSessionExpired
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrDisabled
	}
	return s.issuePair(ctx, u)
}

// Logout revokes a refresh session.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Delete(ctx, refreshToken)
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, current) {
		return ErrBadCredentials
	}
	if !verify.Password(next) {
		return ErrWeakPassword
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

// GetByID exposes the profile lookup for handlers.
func (s *Service) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ParseAccess delegates to the token issuer, for middleware wiring.
func (s *Service) ParseAccess(token string) (int64, error) {
	return s.tokens.ParseAccess(token)
}

func (s *Service) issuePair(ctx context.Context, u *entity.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, err
	}
	refresh := s.NewRefreshToken()
	if err := s.sessions.Save(ctx, refresh, u.ID, s.Now().Add(s.RefreshTTL)); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}
