// Package middleware provides reusable HTTP middleware for the TravPlanner share API.
package middleware

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// NewCORSHandler returns a middleware that applies CORS headers based on allowedOrigins.
// Each entry in allowedOrigins must be a full origin (scheme + host, no trailing slash).
// Browsers must be allowed to send X-Client-ID, since every write depends on it,
// and preflights are cached for ten minutes to keep debounced pushes cheap.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", shareapi.ClientIDHeader},
		MaxAge:         int((10 * time.Minute).Seconds()),
	})
	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}
