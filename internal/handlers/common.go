package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"greekmatch-backend/internal/repository"
	"greekmatch-backend/internal/services"

	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends body as JSON with the given status
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// respondServiceError maps service and store errors to a status code.
// Unexpected errors are logged with msg and surface their text.
func respondServiceError(w http.ResponseWriter, err error, msg string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, services.ErrUnauthorized):
		respondError(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		respondError(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, "not found", http.StatusNotFound)
	case errors.Is(err, services.ErrConflict):
		respondError(w, err.Error(), http.StatusConflict)
	default:
		log.Error().Err(err).Msg(msg)
		respondError(w, err.Error(), http.StatusInternalServerError)
	}
}

// decodeJSON reads a bounded JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
