package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/craftline/leadtrack/internal/lead/entity"
	"github.com/craftline/leadtrack/pkg/database"
	"github.com/craftline/leadtrack/pkg/utilities"
)

// LeadRepo provides data access for the leads table using sqlx.
// Queries are written with `?` bindvars and rebound per driver so the same
// repository runs against Postgres in production and sqlite in tests.
type LeadRepo struct {
	db *sqlx.DB
}

func NewLeadRepo(db *sqlx.DB) *LeadRepo { return &LeadRepo{db: db} }

// EnsureTable creates the leads table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *LeadRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS leads (
  id BIGINT PRIMARY KEY,
  lead_id VARCHAR(50) NOT NULL UNIQUE,
  architect_name VARCHAR(100) NOT NULL DEFAULT '',
  firm_name VARCHAR(100) NOT NULL DEFAULT '',
  grade VARCHAR(10) NOT NULL DEFAULT '',
  client_type VARCHAR(10) NOT NULL DEFAULT '',
  bd_name VARCHAR(50) NOT NULL DEFAULT '',
  meeting_date DATE,
  meeting_time VARCHAR(5),
  remark VARCHAR(200) NOT NULL DEFAULT '',
  assigned_to VARCHAR(50),
  reschedule_date DATE,
  reschedule_time VARCHAR(5),
  reschedule_remark VARCHAR(200) NOT NULL DEFAULT '',
  not_interested BOOLEAN NOT NULL DEFAULT false,
  require_letter BOOLEAN NOT NULL DEFAULT false,
  email_catalogue BOOLEAN NOT NULL DEFAULT false,
  quotation_sent BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_updated_at ON leads (updated_at);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads (created_at);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const leadColumns = `id, lead_id, architect_name, firm_name, grade, client_type, bd_name,
	meeting_date, meeting_time, remark, assigned_to,
	reschedule_date, reschedule_time, reschedule_remark,
	not_interested, require_letter, email_catalogue, quotation_sent,
	created_at, updated_at`

// insertAttempts bounds the retry loop on lead token collisions.
const insertAttempts = 3

// Insert persists a new lead. It assigns the surrogate id and a fresh
// 8-character lead token, stamps created_at = updated_at, and retries with a
// new token if the unique constraint on lead_id trips.
func (r *LeadRepo) Insert(ctx context.Context, l *entity.Lead) (*entity.Lead, error) {
	const q = `INSERT INTO leads (id, lead_id, architect_name, firm_name, grade, client_type, bd_name,
		meeting_date, meeting_time, remark, assigned_to,
		reschedule_date, reschedule_time, reschedule_remark,
		not_interested, require_letter, email_catalogue, quotation_sent,
		created_at, updated_at)
	VALUES (:id, :lead_id, :architect_name, :firm_name, :grade, :client_type, :bd_name,
		:meeting_date, :meeting_time, :remark, :assigned_to,
		:reschedule_date, :reschedule_time, :reschedule_remark,
		:not_interested, :require_letter, :email_catalogue, :quotation_sent,
		:created_at, :updated_at)`

	now := time.Now().UTC()
	l.ID = utilities.NewSnowflakeID()
	l.CreatedAt = now
	l.UpdatedAt = now

	var lastErr error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		l.LeadID = utilities.NewLeadToken()
		err := database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
			_, err := tx.NamedExecContext(ctx, q, l)
			return err
		})
		if err == nil {
			return l, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("insert lead: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("insert lead: token collisions exhausted retries: %w", lastErr)
}

// GetByLeadID fetches a lead by its shareable token or sql.ErrNoRows.
func (r *LeadRepo) GetByLeadID(ctx context.Context, leadID string) (*entity.Lead, error) {
	q := r.db.Rebind(`SELECT ` + leadColumns + ` FROM leads WHERE lead_id = ?`)
	var l entity.Lead
	if err := r.db.GetContext(ctx, &l, q, leadID); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListRecent returns up to limit leads, most recently updated first.
func (r *LeadRepo) ListRecent(ctx context.Context, limit int) ([]entity.Lead, error) {
	q := r.db.Rebind(`SELECT ` + leadColumns + ` FROM leads ORDER BY updated_at DESC LIMIT ?`)
	leads := []entity.Lead{}
	if err := r.db.SelectContext(ctx, &leads, q, limit); err != nil {
		return nil, err
	}
	return leads, nil
}

// ListUnassigned returns all leads with no assignee.
func (r *LeadRepo) ListUnassigned(ctx context.Context) ([]entity.Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE assigned_to IS NULL ORDER BY updated_at DESC`
	leads := []entity.Lead{}
	if err := r.db.SelectContext(ctx, &leads, q); err != nil {
		return nil, err
	}
	return leads, nil
}

// ListAll returns every lead; used to populate select-menus.
func (r *LeadRepo) ListAll(ctx context.Context) ([]entity.Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC`
	leads := []entity.Lead{}
	if err := r.db.SelectContext(ctx, &leads, q); err != nil {
		return nil, err
	}
	return leads, nil
}

// FilterByMeetingDateRange returns leads whose meeting date falls within
// [start, end] inclusive, newest created first.
func (r *LeadRepo) FilterByMeetingDateRange(ctx context.Context, start, end time.Time) ([]entity.Lead, error) {
	q := r.db.Rebind(`SELECT ` + leadColumns + ` FROM leads
		WHERE meeting_date IS NOT NULL AND meeting_date BETWEEN ? AND ?
		ORDER BY created_at DESC`)
	leads := []entity.Lead{}
	if err := r.db.SelectContext(ctx, &leads, q, start, end); err != nil {
		return nil, err
	}
	return leads, nil
}

// FilterByCreatedRange returns leads created within [start, end] inclusive,
// newest first. Callers extend end to the last second of its calendar day
// since created_at carries time-of-day while the filter input is date-only.
func (r *LeadRepo) FilterByCreatedRange(ctx context.Context, start, end time.Time) ([]entity.Lead, error) {
	q := r.db.Rebind(`SELECT ` + leadColumns + ` FROM leads
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at DESC`)
	leads := []entity.Lead{}
	if err := r.db.SelectContext(ctx, &leads, q, start, end); err != nil {
		return nil, err
	}
	return leads, nil
}

// UpdateAssignment sets assigned_to and refreshes updated_at.
// Returns sql.ErrNoRows when the token matches no lead.
func (r *LeadRepo) UpdateAssignment(ctx context.Context, leadID, assignee string) error {
	q := r.db.Rebind(`UPDATE leads SET assigned_to = ?, updated_at = ? WHERE lead_id = ?`)
	return r.execOne(ctx, q, assignee, time.Now().UTC(), leadID)
}

// UpdateReschedule sets the reschedule fields and refreshes updated_at.
// A nil date or time clears the stored value; updated_at refreshes either way.
func (r *LeadRepo) UpdateReschedule(ctx context.Context, leadID string, date *time.Time, timeOfDay *string, remark string) error {
	q := r.db.Rebind(`UPDATE leads
		SET reschedule_date = ?, reschedule_time = ?, reschedule_remark = ?, updated_at = ?
		WHERE lead_id = ?`)
	return r.execOne(ctx, q, date, timeOfDay, remark, time.Now().UTC(), leadID)
}

// UpdateFollowUps overwrites all four follow-up flags and refreshes updated_at.
func (r *LeadRepo) UpdateFollowUps(ctx context.Context, leadID string, f entity.FollowUps) error {
	q := r.db.Rebind(`UPDATE leads
		SET not_interested = ?, require_letter = ?, email_catalogue = ?, quotation_sent = ?, updated_at = ?
		WHERE lead_id = ?`)
	return r.execOne(ctx, q, f.NotInterested, f.RequireLetter, f.EmailCatalogue, f.QuotationSent, time.Now().UTC(), leadID)
}

// execOne runs a single-record update inside a transaction and maps a zero
// rows-affected result to sql.ErrNoRows.
func (r *LeadRepo) execOne(ctx context.Context, q string, args ...any) error {
	return database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q, args...)
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

// Stats returns dashboard totals in one round trip per counter.
func (r *LeadRepo) Stats(ctx context.Context) (*entity.Stats, error) {
	var s entity.Stats
	if err := r.db.GetContext(ctx, &s.Total, `SELECT COUNT(*) FROM leads`); err != nil {
		return nil, err
	}
	if err := r.db.GetContext(ctx, &s.Assigned, `SELECT COUNT(*) FROM leads WHERE assigned_to IS NOT NULL`); err != nil {
		return nil, err
	}
	s.Unassigned = s.Total - s.Assigned
	return &s, nil
}

// CountCreatedSince counts leads created at or after t.
func (r *LeadRepo) CountCreatedSince(ctx context.Context, t time.Time) (int, error) {
	q := r.db.Rebind(`SELECT COUNT(*) FROM leads WHERE created_at >= ?`)
	var n int
	if err := r.db.GetContext(ctx, &n, q, t); err != nil {
		return 0, err
	}
	return n, nil
}
