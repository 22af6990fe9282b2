package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/craftline/leadtrack/internal/lead/entity"
	"github.com/craftline/leadtrack/internal/lead/repo"
)

func newTestRepo(t *testing.T) (*repo.LeadRepo, *sqlx.DB) {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// in-memory sqlite is per-connection
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE leads (
			id INTEGER PRIMARY KEY,
			lead_id TEXT NOT NULL UNIQUE,
			architect_name TEXT NOT NULL DEFAULT '',
			firm_name TEXT NOT NULL DEFAULT '',
			grade TEXT NOT NULL DEFAULT '',
			client_type TEXT NOT NULL DEFAULT '',
			bd_name TEXT NOT NULL DEFAULT '',
			meeting_date TIMESTAMP,
			meeting_time TEXT,
			remark TEXT NOT NULL DEFAULT '',
			assigned_to TEXT,
			reschedule_date TIMESTAMP,
			reschedule_time TEXT,
			reschedule_remark TEXT NOT NULL DEFAULT '',
			not_interested BOOLEAN NOT NULL DEFAULT 0,
			require_letter BOOLEAN NOT NULL DEFAULT 0,
			email_catalogue BOOLEAN NOT NULL DEFAULT 0,
			quotation_sent BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	return repo.NewLeadRepo(db), db
}

func mustInsert(t *testing.T, r *repo.LeadRepo, l *entity.Lead) *entity.Lead {
	t.Helper()
	stored, err := r.Insert(context.Background(), l)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return stored
}

func TestLeadRepo_Insert(t *testing.T) {
	r, _ := newTestRepo(t)

	l := mustInsert(t, r, &entity.Lead{ArchitectName: "J. Doe", Grade: entity.GradeA})

	if l.ID == 0 {
		t.Fatal("expected non-zero surrogate id")
	}
	if len(l.LeadID) != 8 {
		t.Fatalf("lead token length = %d, want 8", len(l.LeadID))
	}
	for _, c := range l.LeadID {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
			t.Fatalf("lead token %q contains %q, want uppercase alphanumeric", l.LeadID, c)
		}
	}
	if !l.CreatedAt.Equal(l.UpdatedAt) {
		t.Fatalf("created_at %v != updated_at %v at creation", l.CreatedAt, l.UpdatedAt)
	}

	fetched, err := r.GetByLeadID(context.Background(), l.LeadID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.ArchitectName != "J. Doe" || fetched.Grade != entity.GradeA {
		t.Fatalf("unexpected round-trip: %+v", fetched)
	}
	if fetched.AssignedTo != nil {
		t.Fatal("assigned_to must be null until an assignment succeeds")
	}
}

func TestLeadRepo_Insert_UniqueTokens(t *testing.T) {
	r, _ := newTestRepo(t)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		l := mustInsert(t, r, &entity.Lead{})
		if seen[l.LeadID] {
			t.Fatalf("duplicate lead token %q", l.LeadID)
		}
		seen[l.LeadID] = true
	}
}

func TestLeadRepo_GetByLeadID_NotFound(t *testing.T) {
	r, _ := newTestRepo(t)

	_, err := r.GetByLeadID(context.Background(), "NOPE1234")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestLeadRepo_UpdateAssignment(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	l := mustInsert(t, r, &entity.Lead{ArchitectName: "A"})
	time.Sleep(5 * time.Millisecond)

	if err := r.UpdateAssignment(ctx, l.LeadID, "Priya"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	got, _ := r.GetByLeadID(ctx, l.LeadID)
	if got.AssignedTo == nil || *got.AssignedTo != "Priya" {
		t.Fatalf("assigned_to = %v, want Priya", got.AssignedTo)
	}
	if !got.UpdatedAt.After(l.UpdatedAt) {
		t.Fatalf("updated_at %v did not advance past %v", got.UpdatedAt, l.UpdatedAt)
	}
	if !got.CreatedAt.Equal(l.CreatedAt) {
		t.Fatal("created_at must never change")
	}

	// reassignment overwrites, no history kept
	if err := r.UpdateAssignment(ctx, l.LeadID, "Marco"); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	got, _ = r.GetByLeadID(ctx, l.LeadID)
	if *got.AssignedTo != "Marco" {
		t.Fatalf("assigned_to = %q after reassignment, want Marco", *got.AssignedTo)
	}
}

func TestLeadRepo_UpdateAssignment_UnknownLead(t *testing.T) {
	r, _ := newTestRepo(t)

	err := r.UpdateAssignment(context.Background(), "ZZZZZZZZ", "Priya")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestLeadRepo_UpdateReschedule_NullOnlyStillTouches(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tm := "14:30"
	l := mustInsert(t, r, &entity.Lead{})
	if err := r.UpdateReschedule(ctx, l.LeadID, &d, &tm, "client requested"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	got, _ := r.GetByLeadID(ctx, l.LeadID)
	if got.RescheduleDate == nil || !got.RescheduleDate.Equal(d) {
		t.Fatalf("reschedule_date = %v, want %v", got.RescheduleDate, d)
	}
	if got.RescheduleTime == nil || *got.RescheduleTime != "14:30" {
		t.Fatalf("reschedule_time = %v, want 14:30", got.RescheduleTime)
	}

	// all-null reschedule clears the fields and still refreshes updated_at
	before := got.UpdatedAt
	time.Sleep(5 * time.Millisecond)
	if err := r.UpdateReschedule(ctx, l.LeadID, nil, nil, ""); err != nil {
		t.Fatalf("null reschedule: %v", err)
	}
	got, _ = r.GetByLeadID(ctx, l.LeadID)
	if got.RescheduleDate != nil || got.RescheduleTime != nil || got.RescheduleRemark != "" {
		t.Fatalf("reschedule fields not cleared: %+v", got)
	}
	if !got.UpdatedAt.After(before) {
		t.Fatal("null-only reschedule must still refresh updated_at")
	}
}

func TestLeadRepo_UpdateFollowUps_FullOverwrite(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	l := mustInsert(t, r, &entity.Lead{})
	if err := r.UpdateFollowUps(ctx, l.LeadID, entity.FollowUps{NotInterested: true, QuotationSent: true}); err != nil {
		t.Fatalf("follow-ups: %v", err)
	}
	got, _ := r.GetByLeadID(ctx, l.LeadID)
	if !got.NotInterested || !got.QuotationSent || got.RequireLetter || got.EmailCatalogue {
		t.Fatalf("unexpected flags: %+v", got)
	}

	// an empty update overwrites prior true values
	if err := r.UpdateFollowUps(ctx, l.LeadID, entity.FollowUps{}); err != nil {
		t.Fatalf("clear follow-ups: %v", err)
	}
	got, _ = r.GetByLeadID(ctx, l.LeadID)
	if got.NotInterested || got.RequireLetter || got.EmailCatalogue || got.QuotationSent {
		t.Fatalf("flags not cleared: %+v", got)
	}
}

func TestLeadRepo_ListRecent(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	first := mustInsert(t, r, &entity.Lead{ArchitectName: "first"})
	time.Sleep(5 * time.Millisecond)
	mustInsert(t, r, &entity.Lead{ArchitectName: "second"})
	time.Sleep(5 * time.Millisecond)
	mustInsert(t, r, &entity.Lead{ArchitectName: "third"})

	// touching the oldest lead moves it to the front
	time.Sleep(5 * time.Millisecond)
	if err := r.UpdateAssignment(ctx, first.LeadID, "Priya"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	leads, err := r.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("got %d leads, want 2", len(leads))
	}
	if leads[0].ArchitectName != "first" || leads[1].ArchitectName != "third" {
		t.Fatalf("unexpected order: %q, %q", leads[0].ArchitectName, leads[1].ArchitectName)
	}
}

func TestLeadRepo_ListUnassigned(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	a := mustInsert(t, r, &entity.Lead{})
	mustInsert(t, r, &entity.Lead{})
	if err := r.UpdateAssignment(ctx, a.LeadID, "Priya"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	leads, err := r.ListUnassigned(ctx)
	if err != nil {
		t.Fatalf("list unassigned: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("got %d unassigned, want 1", len(leads))
	}
	if leads[0].AssignedTo != nil {
		t.Fatal("unassigned list returned an assigned lead")
	}
}

func TestLeadRepo_FilterByMeetingDateRange(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	day := func(d int) *time.Time {
		t := time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	mustInsert(t, r, &entity.Lead{ArchitectName: "in-start", MeetingDate: day(10)})
	mustInsert(t, r, &entity.Lead{ArchitectName: "in-end", MeetingDate: day(20)})
	mustInsert(t, r, &entity.Lead{ArchitectName: "out", MeetingDate: day(25)})
	mustInsert(t, r, &entity.Lead{ArchitectName: "no-meeting"})

	leads, err := r.FilterByMeetingDateRange(ctx, *day(10), *day(20))
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("got %d leads, want 2 (inclusive bounds)", len(leads))
	}
}

func TestLeadRepo_FilterByCreatedRange_EndOfDayBoundary(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	inside := mustInsert(t, r, &entity.Lead{ArchitectName: "inside"})
	outside := mustInsert(t, r, &entity.Lead{ArchitectName: "outside"})

	setCreated := func(leadID string, at time.Time) {
		q := db.Rebind(`UPDATE leads SET created_at = ? WHERE lead_id = ?`)
		if _, err := db.Exec(q, at, leadID); err != nil {
			t.Fatalf("fixture update: %v", err)
		}
	}
	// last second of the end day is included, one second into the next day is not
	setCreated(inside.LeadID, time.Date(2024, 2, 2, 23, 59, 59, 0, time.UTC))
	setCreated(outside.LeadID, time.Date(2024, 2, 3, 0, 0, 1, 0, time.UTC))

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 2, 23, 59, 59, 0, time.UTC)
	leads, err := r.FilterByCreatedRange(ctx, start, end)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("got %d leads, want 1", len(leads))
	}
	if leads[0].ArchitectName != "inside" {
		t.Fatalf("got %q, want the lead created at 23:59:59", leads[0].ArchitectName)
	}
}

func TestLeadRepo_Stats(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	a := mustInsert(t, r, &entity.Lead{})
	mustInsert(t, r, &entity.Lead{})
	mustInsert(t, r, &entity.Lead{})
	if err := r.UpdateAssignment(ctx, a.LeadID, "Priya"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	s, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s.Total != 3 || s.Assigned != 1 || s.Unassigned != 2 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}
