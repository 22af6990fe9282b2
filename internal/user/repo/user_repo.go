package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/craftline/leadtrack/internal/user/entity"
	"github.com/craftline/leadtrack/pkg/database"
	"github.com/craftline/leadtrack/pkg/utilities"
)

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id BIGINT PRIMARY KEY,
  username VARCHAR(50) NOT NULL UNIQUE,
  password_hash VARCHAR(128),
  role VARCHAR(20) NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const userColumns = `id, username, password_hash, role, created_at, updated_at`

// Create inserts a new user row. A unique violation on username surfaces
// unmapped; the service translates it.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, username, password_hash, role, created_at, updated_at)
		VALUES (:id, :username, :password_hash, :role, :created_at, :updated_at)`
	now := time.Now().UTC()
	u.ID = utilities.NewSnowflakeID()
	u.CreatedAt = now
	u.UpdatedAt = now
	return database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, q, u)
		return err
	})
}

// GetByUsername fetches by username or sql.ErrNoRows.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE username = ?`)
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, username); err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns every account, oldest first.
func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`
	users := []entity.User{}
	if err := r.db.SelectContext(ctx, &users, q); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdatePassword replaces the stored hash and refreshes updated_at.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	q := r.db.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`)
	return database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q, hash, time.Now().UTC(), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
