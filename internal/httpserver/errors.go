package httpserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/yati-kasera/chat-app/internal/domain"
)

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps service sentinel errors to HTTP status codes. Unrecognized
// errors are logged and masked as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrUnauthenticated):
		status, kind = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrDependency):
		status, kind = http.StatusBadGateway, "dependency_error"
	default:
		log.Printf("httpserver: unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
			"kind":  "internal",
		})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": kind})
}
