package user

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ubudget/service-ledger-go/internal/user/entity"
)

// TokenConfig holds JWT signing settings.
type TokenConfig struct {
	Secret    string
	Issuer    string
	AccessTTL time.Duration
}

// TokenConfigFromEnv reads JWT_SECRET, JWT_ISSUER and JWT_ACCESS_TTL_MIN
// from the environment, applying development defaults.
func TokenConfigFromEnv() TokenConfig {
	cfg := TokenConfig{
		Secret:    os.Getenv("JWT_SECRET"),
		Issuer:    os.Getenv("JWT_ISSUER"),
		AccessTTL: 15 * time.Minute,
	}
	if cfg.Secret == "" {
		cfg.Secret = "ubudget-dev-secret"
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "ubudget"
	}
	if v := os.Getenv("JWT_ACCESS_TTL_MIN"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			cfg.AccessTTL = time.Duration(m) * time.Minute
		}
	}
	return cfg
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTTL,
		now:    time.Now,
	}
}

// AccessTTL reports the configured access token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration { return t.ttl }

// IssueAccess creates a signed access token for the user.
func (t *TokenIssuer) IssueAccess(u *entity.User) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"iss":   t.issuer,
		"sub":   strconv.FormatInt(u.ID, 10),
		"email": u.Email,
		"role":  string(u.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.secret)
}

// ParseAccess verifies a token and returns the user ID it was issued for.
func (t *TokenIssuer) ParseAccess(token string) (int64, error) {
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return 0, errors.New("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q", sub)
	}
	return id, nil
}
