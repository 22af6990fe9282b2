package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/craftline/leadtrack/internal/lead"
	"github.com/craftline/leadtrack/internal/lead/entity"
	leadrepo "github.com/craftline/leadtrack/internal/lead/repo"
)

// ErrNoData signals an empty filtered set; no document is produced.
var ErrNoData = errors.New("no data found for the selected criteria")

// MIMEType is the content type of the generated workbook.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FilterMode selects which leads are exported.
type FilterMode string

const (
	ModeAll          FilterMode = "all"
	ModeMeetingRange FilterMode = "date_range"
	ModeCreatedRange FilterMode = "created_range"
)

const sheetName = "Leads Data"

// maxColWidth caps auto-sized columns so a long remark cannot blow up the
// sheet layout.
const maxColWidth = 50

var headers = []string{
	"Lead ID", "Architect Name", "Firm Name", "Grade", "Client Type", "BD Name",
	"Meeting Date", "Meeting Time", "Remark", "Assigned To",
	"Reschedule Date", "Reschedule Time", "Reschedule Remark",
	"Not Interested", "Require Letter", "Email Catalogue", "Quotation Sent",
	"Created At", "Updated At",
}

// Params carries the export request.
type Params struct {
	Mode      FilterMode
	StartDate string
	EndDate   string
}

// Document is the generated workbook plus its download metadata.
type Document struct {
	Data     []byte
	Filename string
	MIMEType string
}

// Service queries the repository and renders the workbook.
type Service struct {
	repo *leadrepo.LeadRepo
}

func NewService(r *leadrepo.LeadRepo) *Service { return &Service{repo: r} }

// Export runs the selected filter and builds the workbook. The filtered set is
// ordered newest-created first. An empty set yields ErrNoData.
func (s *Service) Export(ctx context.Context, p Params) (*Document, error) {
	leads, err := s.query(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, ErrNoData
	}

	data, err := BuildWorkbook(leads)
	if err != nil {
		return nil, err
	}
	return &Document{
		Data:     data,
		Filename: filename(p, time.Now()),
		MIMEType: MIMEType,
	}, nil
}

func (s *Service) query(ctx context.Context, p Params) ([]entity.Lead, error) {
	switch p.Mode {
	case ModeAll:
		return s.repo.ListAll(ctx)
	case ModeMeetingRange, ModeCreatedRange:
		start, err := lead.ParseDate(p.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := lead.ParseDate(p.EndDate)
		if err != nil {
			return nil, err
		}
		if start == nil || end == nil {
			return nil, fmt.Errorf("%w: start and end dates are required for range exports", lead.ErrValidation)
		}
		if p.Mode == ModeMeetingRange {
			return s.repo.FilterByMeetingDateRange(ctx, *start, *end)
		}
		// created_at carries time-of-day while the filter input is date-only;
		// the end bound extends to the last second of its calendar day so the
		// whole day is included.
		endOfDay := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
		return s.repo.FilterByCreatedRange(ctx, *start, endOfDay)
	default:
		return nil, fmt.Errorf("%w: unknown export mode %q", lead.ErrValidation, p.Mode)
	}
}

func filename(p Params, now time.Time) string {
	ts := now.Format("20060102_150405")
	switch p.Mode {
	case ModeMeetingRange:
		return fmt.Sprintf("leads_data_%s_to_%s_%s.xlsx", p.StartDate, p.EndDate, ts)
	case ModeCreatedRange:
		return fmt.Sprintf("leads_created_%s_to_%s_%s.xlsx", p.StartDate, p.EndDate, ts)
	default:
		return fmt.Sprintf("all_leads_data_%s.xlsx", ts)
	}
}

// BuildWorkbook renders one sheet: a formatted header row followed by one row
// per lead, with column widths sized to the longest rendered value.
func BuildWorkbook(leads []entity.Lead) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D7E4BC"}},
		Border: []excelize.Border{
			{Type: "left", Style: 1, Color: "000000"},
			{Type: "right", Style: 1, Color: "000000"},
			{Type: "top", Style: 1, Color: "000000"},
			{Type: "bottom", Style: 1, Color: "000000"},
		},
	})
	if err != nil {
		return nil, err
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return nil, err
	}
	lastHeaderCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeaderCell, headerStyle); err != nil {
		return nil, err
	}

	for i, l := range leads {
		values := renderRow(&l)
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
			if len(v) > widths[j] {
				widths[j] = len(v)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(w + 2)
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderRow(l *entity.Lead) []string {
	return []string{
		l.LeadID,
		l.ArchitectName,
		l.FirmName,
		l.Grade,
		l.ClientType,
		l.BDName,
		renderDate(l.MeetingDate),
		renderTimeOfDay(l.MeetingTime),
		l.Remark,
		renderOptional(l.AssignedTo),
		renderDate(l.RescheduleDate),
		renderTimeOfDay(l.RescheduleTime),
		l.RescheduleRemark,
		renderBool(l.NotInterested),
		renderBool(l.RequireLetter),
		renderBool(l.EmailCatalogue),
		renderBool(l.QuotationSent),
		l.CreatedAt.Format("2006-01-02 15:04:05"),
		l.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func renderDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func renderTimeOfDay(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func renderOptional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func renderBool(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
