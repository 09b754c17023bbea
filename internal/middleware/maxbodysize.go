package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// NewMaxBodySizeHandler caps request bodies at limit bytes. Trip payloads are
// the only large bodies, so limit bounds the size of a shared trip. A
// Content-Length over the limit is rejected with 413 before the handler runs;
// other bodies are wrapped in http.MaxBytesReader so decoding fails at the
// limit.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeTooLarge(w)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func writeTooLarge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusRequestEntityTooLarge)
	//nolint:errcheck // the client may have gone away
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": shareapi.CodeTooLarge, "message": "request body is too large"},
	})
}
