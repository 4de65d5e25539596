package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/resto-order/api/internal/database"
)

// DirectoryReader defines the service methods needed by directory handlers.
// Satisfied by *service.DirectoryService.
type DirectoryReader interface {
	ListCities(ctx context.Context) ([]database.City, error)
	ListAreas(ctx context.Context, cityID uuid.UUID) ([]database.Area, error)
	ListBranches(ctx context.Context, cityID *uuid.UUID) ([]database.Branch, error)
	GetBranch(ctx context.Context, id uuid.UUID) (database.Branch, error)
	GetBranchSchedule(ctx context.Context, branchID uuid.UUID) ([]database.BranchSchedule, error)
	IsBranchOpen(ctx context.Context, branchID uuid.UUID, at time.Time) (bool, error)
}

// DirectoryHandler serves cities, areas and branches.
type DirectoryHandler struct {
	svc DirectoryReader
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(svc DirectoryReader) *DirectoryHandler {
	return &DirectoryHandler{svc: svc}
}

// RegisterRoutes registers directory endpoints on the given Chi router.
func (h *DirectoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cities", h.ListCities)
	r.Get("/cities/{id}/areas", h.ListAreas)
	r.Get("/branches", h.ListBranches)
	r.Get("/branches/{id}", h.GetBranch)
	r.Get("/branches/{id}/schedule", h.GetSchedule)
}

// --- Response types ---

type cityResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type areaResponse struct {
	ID     uuid.UUID `json:"id"`
	CityID uuid.UUID `json:"cityId"`
	Name   string    `json:"name"`
}

type branchResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	CityID      *uuid.UUID `json:"cityId"`
	AreaID      *uuid.UUID `json:"areaId"`
	Address     string     `json:"address"`
	Phone       string     `json:"phone"`
	IsPaused    bool       `json:"isPaused"`
	PauseReason *string    `json:"pauseReason"`
	PausedUntil *time.Time `json:"pausedUntil"`
}

type branchDetailResponse struct {
	branchResponse
	IsOpen bool `json:"isOpen"`
}

type scheduleResponse struct {
	DayOfWeek int16   `json:"dayOfWeek"`
	IsClosed  bool    `json:"isClosed"`
	OpenTime  *string `json:"openTime"`
	CloseTime *string `json:"closeTime"`
}

// --- Handlers ---

// ListCities handles GET /cities.
func (h *DirectoryHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.svc.ListCities(r.Context())
	if err != nil {
		writeServiceError(w, "list cities", err)
		return
	}
	resp := make([]cityResponse, len(cities))
	for i, c := range cities {
		resp[i] = cityResponse{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAreas handles GET /cities/{id}/areas.
func (h *DirectoryHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	cityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, "id", "invalid city ID")
		return
	}

	areas, err := h.svc.ListAreas(r.Context(), cityID)
	if err != nil {
		writeServiceError(w, "list areas", err)
		return
	}
	resp := make([]areaResponse, len(areas))
	for i, a := range areas {
		resp[i] = areaResponse{ID: a.ID, CityID: a.CityID, Name: a.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListBranches handles GET /branches?cityId=.
func (h *DirectoryHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	cityID, ok := optionalUUIDQuery(w, r, "cityId")
	if !ok {
		return
	}

	branches, err := h.svc.ListBranches(r.Context(), cityID)
	if err != nil {
		writeServiceError(w, "list branches", err)
		return
	}
	resp := make([]branchResponse, len(branches))
	for i, b := range branches {
		resp[i] = toBranchResponse(b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetBranch handles GET /branches/{id}. The response says whether the
// branch is inside its opening hours right now.
func (h *DirectoryHandler) GetBranch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, "id", "invalid branch ID")
		return
	}

	branch, err := h.svc.GetBranch(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get branch", err)
		return
	}
	open, err := h.svc.IsBranchOpen(r.Context(), id, time.Now())
	if err != nil {
		writeServiceError(w, "check branch hours", err)
		return
	}

	writeJSON(w, http.StatusOK, branchDetailResponse{branchResponse: toBranchResponse(branch), IsOpen: open})
}

// GetSchedule handles GET /branches/{id}/schedule.
func (h *DirectoryHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, "id", "invalid branch ID")
		return
	}

	rows, err := h.svc.GetBranchSchedule(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get branch schedule", err)
		return
	}
	resp := make([]scheduleResponse, len(rows))
	for i, s := range rows {
		resp[i] = scheduleResponse{
			DayOfWeek: s.DayOfWeek,
			IsClosed:  s.IsClosed,
			OpenTime:  textPtr(s.OpenTime),
			CloseTime: textPtr(s.CloseTime),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toBranchResponse(b database.Branch) branchResponse {
	return branchResponse{
		ID:          b.ID,
		Name:        b.Name,
		CityID:      uuidPtr(b.CityID),
		AreaID:      uuidPtr(b.AreaID),
		Address:     b.Address,
		Phone:       b.Phone,
		IsPaused:    b.IsPaused,
		PauseReason: textPtr(b.PauseReason),
		PausedUntil: timestamptzPtr(b.PausedUntil),
	}
}
