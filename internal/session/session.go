package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/craftline/leadtrack/internal/user/entity"
)

var ErrInvalidToken = errors.New("invalid session token")

// Config holds token signing parameters.
type Config struct {
	SigningKey []byte
	TTL        time.Duration
	Issuer     string
}

// ConfigFromEnv reads signing config from env vars with development defaults.
func ConfigFromEnv() Config {
	key := os.Getenv("SESSION_SIGNING_KEY")
	if key == "" {
		key = "leadtrack-dev-signing-key"
	}
	ttl := 12 * time.Hour
	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			ttl = time.Duration(h) * time.Hour
		}
	}
	return Config{SigningKey: []byte(key), TTL: ttl, Issuer: "leadtrack"}
}

// Claims is the JWT claim set carried by a session token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 session tokens.
type Manager struct {
	cfg Config
}

func NewManager(cfg Config) *Manager { return &Manager{cfg: cfg} }

// Issue creates a signed token for the identity.
func (m *Manager) Issue(id *entity.Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   strconv.FormatInt(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.cfg.SigningKey)
}

// Verify parses and validates a token, returning the embedded identity.
func (m *Manager) Verify(tokenStr string) (*entity.Identity, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.cfg.SigningKey, nil
	}, jwt.WithIssuer(m.cfg.Issuer))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &entity.Identity{ID: uid, Username: claims.Username, Role: claims.Role}, nil
}

type contextKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
// The identity is explicit request-scoped state; nothing ambient survives
// between requests.
func WithIdentity(ctx context.Context, id *entity.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom extracts the authenticated identity, if any.
func IdentityFrom(ctx context.Context) (*entity.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*entity.Identity)
	return id, ok
}
