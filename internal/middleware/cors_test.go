package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/middleware"
)

const appOrigin = "http://localhost:5173"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSHandler_allowedOrigin(t *testing.T) {
	h := middleware.NewCORSHandler([]string{appOrigin})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/shares/abc", nil)
	req.Header.Set("Origin", appOrigin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSHandler_otherOriginGetsNoHeader(t *testing.T) {
	h := middleware.NewCORSHandler([]string{appOrigin})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/shares/abc", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// A browser pushing a payload preflights PUT with the client id header.
func TestCORSHandler_payloadPushPreflight(t *testing.T) {
	h := middleware.NewCORSHandler([]string{appOrigin})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/shares/abc/payload", nil)
	req.Header.Set("Origin", appOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	// Browsers send request header names lowercased; rs/cors compares them verbatim.
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-client-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, rec.Code)
	assert.Equal(t, appOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}
