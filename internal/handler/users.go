package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/enum"
	mw "github.com/resto-order/api/internal/middleware"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	ListRiders(ctx context.Context) ([]database.User, error)
}

// UserHandler handles user lookups.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers user endpoints. Expected under /users behind
// authentication.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.With(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager)).Get("/riders", h.ListRiders)
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeMessage(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("ERROR: get user: %v", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user, claims.Permissions))
}

// ListRiders handles GET /users/riders, the active riders an order can be
// assigned to.
func (h *UserHandler) ListRiders(w http.ResponseWriter, r *http.Request) {
	riders, err := h.store.ListRiders(r.Context())
	if err != nil {
		log.Printf("ERROR: list riders: %v", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]userResponse, len(riders))
	for i, u := range riders {
		resp[i] = toUserResponse(u, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}
