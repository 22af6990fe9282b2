package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/craftline/leadtrack/internal/session"
)

// Handler exposes HTTP endpoints for login and user management.
type Handler struct {
	svc      *Service
	sessions *session.Manager
	logger   *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, sessions *session.Manager, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: NewService(db, nil, nil, logger), sessions: sessions, logger: logger}
}

// NewHandlerWithService wires an existing credential store service.
func NewHandlerWithService(svc *Service, sessions *session.Manager, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

// Service returns the underlying credential store service.
func (h *Handler) Service() *Service { return h.svc }

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid payload"))
		return
	}
	id, err := h.svc.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			h.writeJSON(w, http.StatusBadRequest, errBody("please enter both username and password"))
		case errors.Is(err, ErrNeedsReset):
			// distinct recovery path: the account exists but its hash is gone
			h.writeJSON(w, http.StatusForbidden, errBody("account needs to be reset, contact an administrator"))
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrBadCredentials):
			// identical message to avoid user enumeration
			h.writeJSON(w, http.StatusUnauthorized, errBody("invalid username or password"))
		default:
			h.logger.Errorw("login failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, errBody("internal error"))
		}
		return
	}
	token, err := h.sessions.Issue(id)
	if err != nil {
		h.logger.Errorw("token issue failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errBody("internal error"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"identity": id,
		"message":  "Login successful",
	})
}

// CreateRequest is the admin payload for adding a staff account.
type CreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid payload"))
		return
	}
	u, err := h.svc.Create(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			h.writeJSON(w, http.StatusBadRequest, errBody(err.Error()))
		case errors.Is(err, ErrDuplicateUsername):
			h.writeJSON(w, http.StatusConflict, errBody("username already exists"))
		default:
			h.logger.Errorw("create user failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, errBody("internal error"))
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"user":    u,
		"message": fmt.Sprintf("User %s added successfully", u.Username),
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Errorw("list users failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errBody("internal error"))
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errBody(msg string) map[string]string { return map[string]string{"error": msg} }
