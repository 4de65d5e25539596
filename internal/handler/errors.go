package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/resto-order/api/internal/service"
)

type errorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type errorResponse struct {
	Message string       `json:"message"`
	Error   *errorDetail `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func writeFieldError(w http.ResponseWriter, status int, field, reason string) {
	writeJSON(w, status, errorResponse{
		Message: reason,
		Error:   &errorDetail{Field: field, Reason: reason},
	})
}

// writeServiceError maps a service failure to its HTTP status. Anything
// that is not a *service.Error is logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		log.Printf("ERROR: %s: %v", op, err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		writeFieldError(w, http.StatusBadRequest, se.Field, se.Error())
	case errors.Is(err, service.ErrNotFound):
		writeMessage(w, http.StatusNotFound, se.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrMissingProduct):
		writeMessage(w, http.StatusConflict, se.Error())
	case errors.Is(err, service.ErrForbidden):
		writeMessage(w, http.StatusForbidden, se.Error())
	case errors.Is(err, service.ErrEmptyCart):
		writeMessage(w, http.StatusUnprocessableEntity, se.Error())
	case errors.Is(err, service.ErrUnavailable):
		writeMessage(w, http.StatusServiceUnavailable, se.Error())
	default:
		log.Printf("ERROR: %s: unmapped error kind: %v", op, err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
