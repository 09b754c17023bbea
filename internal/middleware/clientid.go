package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// maxClientIDLen bounds the header so it cannot bloat ban lists.
const maxClientIDLen = 128

type clientIDKey struct{}

// ClientID copies a well-formed X-Client-ID header into the request context.
// The header is the only identity the share service knows about: owner checks
// and ban checks compare against it.
// Requests without the header pass through; handlers that need an identity
// reject them.
func ClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(shareapi.ClientIDHeader))
		if id != "" && len(id) <= maxClientIDLen {
			r = r.WithContext(WithClientID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// WithClientID returns a copy of ctx carrying id.
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, id)
}

// ClientIDFrom returns the client id stored by ClientID, or "" if none.
func ClientIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}
