package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ubudget/service-ledger-go/internal/user/entity"
)

type fakeRepo struct {
	byEmail map[string]*entity.User
	byID    map[int64]*entity.User
	nextID  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byEmail: map[string]*entity.User{}, byID: map[int64]*entity.User{}}
}

func (f *fakeRepo) Create(_ context.Context, u *entity.User) (int64, error) {
	f.nextID++
	u.ID = f.nextID
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return u.ID, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) TouchLastLogin(_ context.Context, id int64) error {
	now := time.Now()
	f.byID[id].LastLoginAt = &now
	return nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.byID[id].PasswordHash = hash
	return nil
}

type fakeSessions struct {
	tokens map[string]struct {
		userID    int64
		expiresAt time.Time
	}
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]struct {
		userID    int64
		expiresAt time.Time
	}{}}
}

func (f *fakeSessions) Save(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	f.tokens[token] = struct {
		userID    int64
		expiresAt time.Time
	}{userID, expiresAt}
	return nil
}

func (f *fakeSessions) Get(_ context.Context, token string) (int64, time.Time, error) {
	s, ok := f.tokens[token]
	if !ok {
		return 0, time.Time{}, sql.ErrNoRows
	}
	return s.userID, s.expiresAt, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func newTestService(repo Repository, sessions SessionStore) *Service {
	tokens := NewTokenIssuer(TokenConfig{Secret: "test-secret", Issuer: "ubudget", AccessTTL: time.Minute})
	// MinCost keeps hashing fast under test.
	return NewService(repo, sessions, tokens, BcryptHasher{Cost: 4})
}

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeSessions())
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Alice@Example.COM ", "Str0ngpass", "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.PasswordHash == "Str0ngpass" || u.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}

	got, err := svc.Authenticate(ctx, "alice@example.com", "Str0ngpass")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated wrong user: %d", got.ID)
	}
	if repo.byID[u.ID].LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}

	if _, err := svc.Authenticate(ctx, "alice@example.com", "wrongpass1A"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: err=%v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "Str0ngpass"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown email must look like bad credentials, err=%v", err)
	}
}

func TestRegisterRejections(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeSessions())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "Str0ngpass", ""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("bad email: err=%v", err)
	}
	if _, err := svc.Register(ctx, "bob@example.com", "short1A", ""); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak password: err=%v", err)
	}
	if _, err := svc.Register(ctx, "bob@example.com", "Str0ngpass", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, "BOB@example.com", "Str0ngpass", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: err=%v", err)
	}
}

func TestLoginIssuesParsableToken(t *testing.T) {
	sessions := newFakeSessions()
	svc := newTestService(newFakeRepo(), sessions)
	ctx := context.Background()

	u, err := svc.Register(ctx, "carol@example.com", "Str0ngpass", "")
	if err != nil {
		t.Fatal(err)
	}
	pair, _, err := svc.Login(ctx, "carol@example.com", "Str0ngpass")
	if err != nil {
		t.Fatal(err)
	}
	id, err := svc.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if id != u.ID {
		t.Fatalf("token subject=%d want %d", id, u.ID)
	}
	if pair.RefreshToken == "" {
		t.Fatal("refresh token missing")
	}
	if _, ok := sessions.tokens[pair.RefreshToken]; !ok {
		t.Fatal("refresh session not persisted")
	}

	if _, err := svc.ParseAccess(pair.AccessToken + "x"); err == nil {
		t.Fatal("tampered token must be rejected")
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	sessions := newFakeSessions()
	svc := newTestService(newFakeRepo(), sessions)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dave@example.com", "Str0ngpass", ""); err != nil {
		t.Fatal(err)
	}
	pair, _, err := svc.Login(ctx, "dave@example.com", "Str0ngpass")
	if err != nil {
		t.Fatal(err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh must rotate the token")
	}
	if _, ok := sessions.tokens[pair.RefreshToken]; ok {
		t.Fatal("old session must be revoked")
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("replayed token: err=%v", err)
	}
}

func TestRefreshExpiredSession(t *testing.T) {
	sessions := newFakeSessions()
	svc := newTestService(newFakeRepo(), sessions)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "erin@example.com", "Str0ngpass", ""); err != nil {
		t.Fatal(err)
	}
	pair, _, err := svc.Login(ctx, "erin@example.com", "Str0ngpass")
	if err != nil {
		t.Fatal(err)
	}

	svc.Now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expired session: err=%v", err)
	}
	// Expired tokens are purged on sight.
	if _, ok := sessions.tokens[pair.RefreshToken]; ok {
		t.Fatal("expired session must be deleted")
	}
}

func TestChangePassword(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeSessions())
	ctx := context.Background()

	u, err := svc.Register(ctx, "frank@example.com", "Str0ngpass", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "wrongpass1A", "N3wpassword"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong current password: err=%v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "Str0ngpass", strings.Repeat("a", 10)); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak new password: err=%v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "Str0ngpass", "N3wpassword"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, "frank@example.com", "N3wpassword"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "frank@example.com", "Str0ngpass"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("old password must stop working, err=%v", err)
	}
}
