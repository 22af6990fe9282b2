package entity

import "time"

// Grade classifies lead priority/quality.
const (
	GradeAPlus = "A+"
	GradeA     = "A"
	GradeB     = "B"
	GradeC     = "C"
)

// Client types.
const (
	ClientTypeCRR = "CRR"
	ClientTypeNBD = "NBD"
)

// Lead is a prospective client record tracked through entry, assignment and
// follow-up. LeadID is the human-shareable token; ID is the surrogate key.
// Times of day are stored as validated "HH:MM" strings.
type Lead struct {
	ID               int64      `db:"id" json:"-"`
	LeadID           string     `db:"lead_id" json:"lead_id"`
	ArchitectName    string     `db:"architect_name" json:"architect_name"`
	FirmName         string     `db:"firm_name" json:"firm_name"`
	Grade            string     `db:"grade" json:"grade"`
	ClientType       string     `db:"client_type" json:"client_type"`
	BDName           string     `db:"bd_name" json:"bd_name"`
	MeetingDate      *time.Time `db:"meeting_date" json:"meeting_date,omitempty"`
	MeetingTime      *string    `db:"meeting_time" json:"meeting_time,omitempty"`
	Remark           string     `db:"remark" json:"remark"`
	AssignedTo       *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	RescheduleDate   *time.Time `db:"reschedule_date" json:"reschedule_date,omitempty"`
	RescheduleTime   *string    `db:"reschedule_time" json:"reschedule_time,omitempty"`
	RescheduleRemark string     `db:"reschedule_remark" json:"reschedule_remark"`
	NotInterested    bool       `db:"not_interested" json:"not_interested"`
	RequireLetter    bool       `db:"require_letter" json:"require_letter"`
	EmailCatalogue   bool       `db:"email_catalogue" json:"email_catalogue"`
	QuotationSent    bool       `db:"quotation_sent" json:"quotation_sent"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidGrade reports whether g is one of the known grade codes.
func ValidGrade(g string) bool {
	switch g {
	case GradeAPlus, GradeA, GradeB, GradeC:
		return true
	}
	return false
}

// ValidClientType reports whether ct is a known client type.
func ValidClientType(ct string) bool {
	return ct == ClientTypeCRR || ct == ClientTypeNBD
}

// FollowUps carries the four independent follow-up flags. Each update
// overwrites all four; an unset flag means false, not "unchanged".
type FollowUps struct {
	NotInterested  bool `json:"not_interested"`
	RequireLetter  bool `json:"require_letter"`
	EmailCatalogue bool `json:"email_catalogue"`
	QuotationSent  bool `json:"quotation_sent"`
}

// Stats summarizes the repository for the dashboard.
type Stats struct {
	Total      int `json:"total"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
}
