package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the client may have gone away
	json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, shareapi.ErrorResponse{Error: shareapi.ErrorDetail{Code: code, Message: message}})
}

// notFound writes a 404 for a missing resource.
// The caller supplies the human-readable message (e.g. "share not found")
// because the handler is the layer that knows what was being looked up.
func notFound(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusNotFound, shareapi.CodeNotFound, message)
}

// badRequest writes a 422 for a request rejected before reaching the
// service layer (e.g. missing or malformed body).
func badRequest(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusUnprocessableEntity, shareapi.CodeValidation, message)
}

// writeServiceError maps a service error onto the HTTP error contract.
// notFoundMsg names the resource for 404s. Unknown errors become 500s and
// are logged, never echoed to the caller.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		notFound(w, notFoundMsg)
	case errors.Is(err, domain.ErrValidation):
		writeErrorBody(w, http.StatusUnprocessableEntity, shareapi.CodeValidation, unwrapMessage(err))
	case errors.Is(err, domain.ErrBanned):
		writeErrorBody(w, http.StatusForbidden, shareapi.CodeBanned, "you have been banned from this share")
	case errors.Is(err, domain.ErrForbidden):
		writeErrorBody(w, http.StatusForbidden, shareapi.CodeForbidden, "only the share owner can do this")
	case errors.Is(err, domain.ErrShareDisabled):
		writeErrorBody(w, http.StatusConflict, shareapi.CodeShareDisabled, "sharing is disabled for this trip")
	default:
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, shareapi.CodeInternal, "internal server error")
	}
}

// unwrapMessage extracts the human-readable part from a wrapped validation error.
// e.g. "repo.LogRepo.Create: validation error: invalid log id" → "invalid log id"
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	const marker = "validation error: "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}

// decodeBody decodes a JSON request body into dst. On failure it writes the
// error response itself and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		badRequest(w, "request body is required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorBody(w, http.StatusRequestEntityTooLarge, shareapi.CodeTooLarge, "request body is too large")
			return false
		}
		badRequest(w, "request body is not valid JSON")
		return false
	}
	return true
}
