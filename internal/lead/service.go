package lead

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/craftline/leadtrack/internal/lead/entity"
	leadrepo "github.com/craftline/leadtrack/internal/lead/repo"
)

var (
	ErrLeadNotFound = errors.New("lead not found")
	ErrValidation   = errors.New("validation failed")
)

const (
	dateLayout      = "2006-01-02"
	timeOfDayLayout = "15:04"
)

// ParseDate parses a YYYY-MM-DD input. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", ErrValidation, s)
	}
	return &t, nil
}

// ParseTimeOfDay validates an HH:MM (24-hour) input. Empty input yields nil.
func ParseTimeOfDay(s string) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if _, err := time.Parse(timeOfDayLayout, s); err != nil {
		return nil, fmt.Errorf("%w: invalid time %q, want HH:MM", ErrValidation, s)
	}
	return &s, nil
}

// Service orchestrates lead lifecycle operations over the repository.
type Service struct {
	repo *leadrepo.LeadRepo
}

func NewService(db *sqlx.DB, r *leadrepo.LeadRepo) *Service {
	if r == nil {
		r = leadrepo.NewLeadRepo(db)
	}
	return &Service{repo: r}
}

// CreateParams carries raw form input for a new lead. Dates and times arrive
// as strings and are parsed here; malformed input aborts the whole operation.
type CreateParams struct {
	ArchitectName string
	FirmName      string
	Grade         string
	ClientType    string
	BDName        string
	MeetingDate   string
	MeetingTime   string
	Remark        string
}

// Create validates and persists a new lead, returning the stored record with
// its generated token and timestamps.
func (s *Service) Create(ctx context.Context, p CreateParams) (*entity.Lead, error) {
	grade := strings.TrimSpace(p.Grade)
	if grade != "" && !entity.ValidGrade(grade) {
		return nil, fmt.Errorf("%w: unknown grade %q", ErrValidation, grade)
	}
	clientType := strings.TrimSpace(p.ClientType)
	if clientType != "" && !entity.ValidClientType(clientType) {
		return nil, fmt.Errorf("%w: unknown client type %q", ErrValidation, clientType)
	}
	meetingDate, err := ParseDate(p.MeetingDate)
	if err != nil {
		return nil, err
	}
	meetingTime, err := ParseTimeOfDay(p.MeetingTime)
	if err != nil {
		return nil, err
	}

	l := &entity.Lead{
		ArchitectName: strings.TrimSpace(p.ArchitectName),
		FirmName:      strings.TrimSpace(p.FirmName),
		Grade:         grade,
		ClientType:    clientType,
		BDName:        strings.TrimSpace(p.BDName),
		MeetingDate:   meetingDate,
		MeetingTime:   meetingTime,
		Remark:        strings.TrimSpace(p.Remark),
	}
	return s.repo.Insert(ctx, l)
}

// Get returns a lead by its shareable token.
func (s *Service) Get(ctx context.Context, leadID string) (*entity.Lead, error) {
	l, err := s.repo.GetByLeadID(ctx, leadID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return l, nil
}

// Assign sets the lead's assignee. Reassignment overwrites; no history kept.
func (s *Service) Assign(ctx context.Context, leadID, assignee string) error {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return fmt.Errorf("%w: assignee name is required", ErrValidation)
	}
	if err := s.repo.UpdateAssignment(ctx, leadID, assignee); err != nil {
		return mapNotFound(err)
	}
	return nil
}

// Reschedule updates the reschedule fields. Date and time are optional and
// parse to null when absent; updated_at refreshes even when every new field
// is null, matching the touch semantics of the original workflow.
func (s *Service) Reschedule(ctx context.Context, leadID, dateStr, timeStr, remark string) error {
	date, err := ParseDate(dateStr)
	if err != nil {
		return err
	}
	timeOfDay, err := ParseTimeOfDay(timeStr)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateReschedule(ctx, leadID, date, timeOfDay, strings.TrimSpace(remark)); err != nil {
		return mapNotFound(err)
	}
	return nil
}

// UpdateFollowUps overwrites all four follow-up flags. An unset flag means
// false, not "leave unchanged".
func (s *Service) UpdateFollowUps(ctx context.Context, leadID string, f entity.FollowUps) error {
	if err := s.repo.UpdateFollowUps(ctx, leadID, f); err != nil {
		return mapNotFound(err)
	}
	return nil
}

// ListRecent returns the most recently updated leads.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]entity.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListRecent(ctx, limit)
}

// ListUnassigned returns leads awaiting assignment.
func (s *Service) ListUnassigned(ctx context.Context) ([]entity.Lead, error) {
	return s.repo.ListUnassigned(ctx)
}

// ListAll returns every lead for select-menus.
func (s *Service) ListAll(ctx context.Context) ([]entity.Lead, error) {
	return s.repo.ListAll(ctx)
}

// Dashboard bundles the recent list with repository totals.
type Dashboard struct {
	Stats            entity.Stats  `json:"stats"`
	CreatedThisMonth int           `json:"created_this_month"`
	Recent           []entity.Lead `json:"recent"`
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthCount, err := s.repo.CountCreatedSince(ctx, monthStart)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.ListRecent(ctx, 50)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Stats: *stats, CreatedThisMonth: monthCount, Recent: recent}, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLeadNotFound
	}
	return err
}
