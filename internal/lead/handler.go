package lead

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/craftline/leadtrack/internal/lead/entity"
)

// Handler exposes HTTP endpoints for lead lifecycle and query operations.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: NewService(db, nil), logger: logger}
}

// NewHandlerWithService wires an existing service, used by the router so the
// lead and export surfaces share one repository.
func NewHandlerWithService(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the request body for the new-lead endpoint.
type CreateRequest struct {
	ArchitectName string `json:"architect_name"`
	FirmName      string `json:"firm_name"`
	Grade         string `json:"grade"`
	ClientType    string `json:"client_type"`
	BDName        string `json:"bd_name"`
	MeetingDate   string `json:"meeting_date"`
	MeetingTime   string `json:"meeting_time"`
	Remark        string `json:"remark"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid payload"))
		return
	}
	l, err := h.svc.Create(r.Context(), CreateParams(req))
	if err != nil {
		h.writeOpError(w, err, "create lead failed")
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"lead":    l,
		"message": fmt.Sprintf("Lead %s added successfully", l.LeadID),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.Context(), r.PathValue("leadID"))
	if err != nil {
		h.writeOpError(w, err, "get lead failed")
		return
	}
	h.writeJSON(w, http.StatusOK, l)
}

// List serves the query surface consumed by the presentation layer:
// ?view=recent (default), unassigned, or all.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var (
		leads []entity.Lead
		err   error
	)
	switch view := r.URL.Query().Get("view"); view {
	case "", "recent":
		leads, err = h.svc.ListRecent(r.Context(), 50)
	case "unassigned":
		leads, err = h.svc.ListUnassigned(r.Context())
	case "all":
		leads, err = h.svc.ListAll(r.Context())
	default:
		h.writeJSON(w, http.StatusBadRequest, errBody(fmt.Sprintf("unknown view %q", view)))
		return
	}
	if err != nil {
		h.writeOpError(w, err, "list leads failed")
		return
	}
	h.writeJSON(w, http.StatusOK, leads)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.writeOpError(w, err, "dashboard failed")
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// AssignRequest is the request body for the assignment endpoint.
type AssignRequest struct {
	LeadID     string `json:"lead_id"`
	AssignedTo string `json:"assigned_to"`
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid payload"))
		return
	}
	if err := h.svc.Assign(r.Context(), req.LeadID, req.AssignedTo); err != nil {
		h.writeOpError(w, err, "assign lead failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Lead %s assigned to %s successfully", req.LeadID, req.AssignedTo),
	})
}

// RescheduleRequest is the request body for the reschedule endpoint.
// Date and time are optional; absent values clear the stored fields.
type RescheduleRequest struct {
	LeadID           string `json:"lead_id"`
	RescheduleDate   string `json:"reschedule_date"`
	RescheduleTime   string `json:"reschedule_time"`
	RescheduleRemark string `json:"reschedule_remark"`
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid payload"))
		return
	}
	if err := h.svc.Reschedule(r.Context(), req.LeadID, req.RescheduleDate, req.RescheduleTime, req.RescheduleRemark); err != nil {
		h.writeOpError(w, err, "reschedule failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Meeting for lead %s rescheduled successfully", req.LeadID),
	})
}

// FollowUpsRequest overwrites all four flags; a flag missing from the body is
// false, not "unchanged".
type FollowUpsRequest struct {
	LeadID string `json:"lead_id"`
	entity.FollowUps
}

func (h *Handler) FollowUps(w http.ResponseWriter, r *http.Request) {
	var req FollowUpsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid payload"))
		return
	}
	if err := h.svc.UpdateFollowUps(r.Context(), req.LeadID, req.FollowUps); err != nil {
		h.writeOpError(w, err, "follow-up update failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Meeting stats for lead %s updated successfully", req.LeadID),
	})
}

// writeOpError maps service errors to HTTP statuses. Storage faults surface
// as a generic 500; the operation has already rolled back.
func (h *Handler) writeOpError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, errBody(err.Error()))
	case errors.Is(err, ErrLeadNotFound):
		h.writeJSON(w, http.StatusNotFound, errBody("lead not found"))
	default:
		h.logger.Errorw(logMsg, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errBody("internal error"))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errBody(msg string) map[string]string { return map[string]string{"error": msg} }
