package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/craftline/leadtrack/internal/lead"
)

// Handler exposes the export endpoint.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Request is the export payload. Start/end dates are required only for the
// range modes.
type Request struct {
	ExportType string `json:"export_type"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// Export streams the generated workbook as a file download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	mode := FilterMode(req.ExportType)
	if req.ExportType == "" {
		mode = ModeAll
	}
	doc, err := h.svc.Export(r.Context(), Params{Mode: mode, StartDate: req.StartDate, EndDate: req.EndDate})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoData):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no data found for the selected criteria"})
		case errors.Is(err, lead.ErrValidation):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			h.logger.Errorw("export failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}
	w.Header().Set("Content-Type", doc.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
