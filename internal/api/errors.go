package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeRateLimited  = "rate_limited"
)

// Default messages for ownership failures.
const (
	msgForbidden = "Not enough permissions"
	msgInternal  = "internal server error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeValidationError writes a 400 error response for rejected input.
func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeUnauthorized writes a 401 error response with a Bearer challenge.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeAccessError maps an auth or lookup failure onto an HTTP response.
// notFound and forbidden replace the default messages for those kinds;
// empty strings keep the defaults. A bare database.ErrNotFound (a row removed
// after the ownership check) is a 404; other errors without an auth kind
// are logged and reported as 500.
func (s *Server) writeAccessError(w http.ResponseWriter, err error, notFound, forbidden string) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		if errors.Is(err, database.ErrNotFound) {
			writeNotFound(w, orDefault(notFound, auth.ErrNotFound.Message))
			return
		}
		s.logger.Error("request failed", "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	switch authErr.Kind {
	case auth.KindUnauthenticated, auth.KindInvalidCredentials,
		auth.KindMalformedHeader, auth.KindInvalidDeviceCredentials:
		writeUnauthorized(w, authErr.Message)
	case auth.KindInactiveAccount:
		writeBadRequest(w, authErr.Message)
	case auth.KindInsufficientPrivilege:
		writeForbidden(w, authErr.Message)
	case auth.KindForbidden:
		writeForbidden(w, orDefault(forbidden, authErr.Message))
	case auth.KindNotFound:
		writeNotFound(w, orDefault(notFound, authErr.Message))
	default:
		s.logger.Error("unmapped auth error", "kind", authErr.Kind, "error", err)
		writeInternalError(w, msgInternal)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
