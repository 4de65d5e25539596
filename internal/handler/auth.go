package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5"
	"github.com/resto-order/api/internal/auth"
	"github.com/resto-order/api/internal/database"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	ListPermissionsByRole(ctx context.Context, role string) ([]string, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
	sessions  sessions.Store
}

// NewAuthHandler creates a new AuthHandler. sessions may be nil to issue
// bearer tokens only.
func NewAuthHandler(store AuthStore, jwtSecret string, sessions sessions.Store) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, sessions: sessions}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"fullName"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeMessage(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.Printf("ERROR: login get user: %v", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !user.IsActive || !user.HashedPassword.Valid {
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword.String), []byte(req.Password)); err != nil {
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondWithTokens(w, r, user)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		writeMessage(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	userID, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeMessage(w, http.StatusUnauthorized, "user not found")
			return
		}
		log.Printf("ERROR: refresh get user: %v", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !user.IsActive {
		writeMessage(w, http.StatusUnauthorized, "user is inactive")
		return
	}

	h.respondWithTokens(w, r, user)
}

// Logout drops the session cookie. Bearer tokens simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.sessions != nil {
		if err := auth.ClearSession(h.sessions, w, r); err != nil {
			log.Printf("WARN: clear session: %v", err)
		}
	}
	writeMessage(w, http.StatusOK, "logged out")
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, user database.User) {
	perms, err := h.store.ListPermissionsByRole(r.Context(), user.Role)
	if err != nil {
		log.Printf("ERROR: list permissions for %s: %v", user.Role, err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	accessToken, err := auth.GenerateToken(h.jwtSecret, user.ID, user.Role, perms)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, user.ID)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.sessions != nil {
		claims := &auth.Claims{UserID: user.ID, Role: user.Role, Permissions: perms}
		if err := auth.SaveSession(h.sessions, w, r, claims); err != nil {
			log.Printf("WARN: save session: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResponse(user, perms),
	})
}

func toUserResponse(u database.User, perms []string) userResponse {
	resp := userResponse{
		ID:          u.ID,
		FullName:    u.FullName,
		Role:        u.Role,
		Permissions: perms,
	}
	if resp.Permissions == nil {
		resp.Permissions = []string{}
	}
	if u.Email.Valid {
		resp.Email = &u.Email.String
	}
	if u.Phone.Valid {
		resp.Phone = &u.Phone.String
	}
	return resp
}
