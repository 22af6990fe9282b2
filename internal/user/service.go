package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/craftline/leadtrack/internal/user/entity"
	userrepo "github.com/craftline/leadtrack/internal/user/repo"
	"github.com/craftline/leadtrack/pkg/database"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrBadCredentials    = errors.New("invalid credentials")
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrNeedsReset marks an account whose stored hash is absent. It is a
	// distinct administrator-action-required state, not a wrong password.
	ErrNeedsReset = errors.New("account needs reset")
	ErrValidation = errors.New("validation failed")
)

// DefaultAdminUsername and DefaultAdminPassword are the bootstrap credentials.
// A fixed default is an accepted trade-off for a trusted internal tool; harden
// with a forced password change if this ever faces a wider audience.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin"
)

// PasswordHasher abstracts hashing so the algorithm can be swapped later.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
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

// Service is the credential store: account creation, verification and the
// self-healing default-admin bootstrap.
type Service struct {
	repo   *userrepo.UserRepo
	hasher PasswordHasher
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, r *userrepo.UserRepo, hasher PasswordHasher, logger *zap.SugaredLogger) *Service {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, hasher: hasher, logger: logger}
}

// Create stores a new account with a bcrypt hash. Plaintext is never persisted.
func (s *Service) Create(ctx context.Context, username, password, role string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if !entity.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{Username: username, PasswordHash: &hash, Role: role}
	if err := s.repo.Create(ctx, u); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return u, nil
}

// Verify checks a username/password pair and returns the identity on match.
func (s *Service) Verify(ctx context.Context, username, password string) (*entity.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if u.PasswordHash == nil || *u.PasswordHash == "" {
		return nil, ErrNeedsReset
	}
	if !s.hasher.Verify(*u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return &entity.Identity{ID: u.ID, Username: u.Username, Role: u.Role}, nil
}

// List returns every account for the admin management screen.
func (s *Service) List(ctx context.Context) ([]entity.User, error) {
	return s.repo.List(ctx)
}

// EnsureDefaultAdmin is the explicit startup step that creates the bootstrap
// administrator, or repairs it when its stored hash is absent, so the account
// is never left unusable. Both side effects are logged.
func (s *Service) EnsureDefaultAdmin(ctx context.Context) error {
	u, err := s.repo.GetByUsername(ctx, DefaultAdminUsername)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if _, err := s.Create(ctx, DefaultAdminUsername, DefaultAdminPassword, entity.RoleAdmin); err != nil {
			// a concurrent boot may have won the race
			if errors.Is(err, ErrDuplicateUsername) {
				return nil
			}
			return err
		}
		s.logger.Warnw("created default admin account with well-known password",
			"username", DefaultAdminUsername)
		return nil
	}
	if u.PasswordHash == nil || *u.PasswordHash == "" {
		hash, err := s.hasher.Hash(DefaultAdminPassword)
		if err != nil {
			return err
		}
		if err := s.repo.UpdatePassword(ctx, u.ID, hash); err != nil {
			return err
		}
		s.logger.Warnw("repaired default admin account with well-known password",
			"username", DefaultAdminUsername)
	}
	return nil
}
