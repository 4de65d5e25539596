package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/enum"
	mw "github.com/resto-order/api/internal/middleware"
	"github.com/resto-order/api/internal/service"
)

// PauseServicer defines the service methods needed by pause handlers.
// Satisfied by *service.PauseService.
type PauseServicer interface {
	CanPlaceOrder(ctx context.Context, branchID *uuid.UUID) (service.GateDecision, error)
	SetGlobalPauseStatus(ctx context.Context, req service.PauseRequest) (database.GlobalPause, error)
	SetBranchPauseStatus(ctx context.Context, actor service.Actor, branchID uuid.UUID, req service.PauseRequest) (database.Branch, error)
}

// PauseHandler exposes the ordering gate and its switches.
type PauseHandler struct {
	svc PauseServicer
}

// NewPauseHandler creates a new PauseHandler.
func NewPauseHandler(svc PauseServicer) *PauseHandler {
	return &PauseHandler{svc: svc}
}

// RegisterPublicRoutes registers the gate status query.
func (h *PauseHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/status", h.Status)
}

// RegisterRoutes registers the pause switches. Expected under /pause behind
// authentication.
func (h *PauseHandler) RegisterRoutes(r chi.Router) {
	r.With(mw.RequireRole(enum.UserRoleAdmin)).Put("/global", h.SetGlobal)
	r.With(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager)).Put("/branches/{id}", h.SetBranch)
}

// --- Request / Response types ---

type pauseRequest struct {
	IsPaused        *bool  `json:"isPaused"`
	Reason          string `json:"reason"`
	DurationMinutes int    `json:"durationMinutes"`
}

type globalPauseResponse struct {
	IsPaused    bool       `json:"isPaused"`
	Reason      *string    `json:"reason"`
	PausedUntil *time.Time `json:"pausedUntil"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// --- Handlers ---

// Status handles GET /pause/status?branchId=.
func (h *PauseHandler) Status(w http.ResponseWriter, r *http.Request) {
	branchID, ok := optionalUUIDQuery(w, r, "branchId")
	if !ok {
		return
	}

	decision, err := h.svc.CanPlaceOrder(r.Context(), branchID)
	if err != nil {
		writeServiceError(w, "check pause gate", err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// SetGlobal handles PUT /pause/global.
func (h *PauseHandler) SetGlobal(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePauseRequest(w, r)
	if !ok {
		return
	}

	gp, err := h.svc.SetGlobalPauseStatus(r.Context(), req)
	if err != nil {
		writeServiceError(w, "set global pause", err)
		return
	}

	writeJSON(w, http.StatusOK, globalPauseResponse{
		IsPaused:    gp.IsPaused,
		Reason:      textPtr(gp.Reason),
		PausedUntil: timestamptzPtr(gp.PausedUntil),
		UpdatedAt:   gp.UpdatedAt,
	})
}

// SetBranch handles PUT /pause/branches/{id}.
func (h *PauseHandler) SetBranch(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	branchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, "id", "invalid branch ID")
		return
	}

	req, ok := decodePauseRequest(w, r)
	if !ok {
		return
	}

	branch, err := h.svc.SetBranchPauseStatus(r.Context(), actorFromClaims(claims), branchID, req)
	if err != nil {
		writeServiceError(w, "set branch pause", err)
		return
	}
	writeJSON(w, http.StatusOK, toBranchResponse(branch))
}

func decodePauseRequest(w http.ResponseWriter, r *http.Request) (service.PauseRequest, bool) {
	var req pauseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return service.PauseRequest{}, false
	}
	if req.IsPaused == nil {
		writeFieldError(w, http.StatusBadRequest, "isPaused", "isPaused is required")
		return service.PauseRequest{}, false
	}
	return service.PauseRequest{
		IsPaused:        *req.IsPaused,
		Reason:          req.Reason,
		DurationMinutes: req.DurationMinutes,
	}, true
}
