package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/middleware"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// shareIDParam binds the {shareID} path segment. On failure it writes a 404,
// since a malformed id can never name an existing share.
func shareIDParam(w http.ResponseWriter, r *http.Request) (openapi_types.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "shareID", chi.URLParam(r, "shareID"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		notFound(w, "share not found")
		return openapi_types.UUID{}, false
	}
	return id, true
}

// paginationParams binds the optional ?page= and ?limit= query parameters.
func paginationParams(w http.ResponseWriter, r *http.Request) (domain.PaginationParams, bool) {
	var page, limit *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		badRequest(w, "page must be an integer")
		return domain.PaginationParams{}, false
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		badRequest(w, "limit must be an integer")
		return domain.PaginationParams{}, false
	}
	return domain.NewPaginationParams(page, limit), true
}

// requireClientID returns the caller's client id, writing a 401 when absent.
func requireClientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.ClientIDFrom(r.Context())
	if id == "" {
		writeErrorBody(w, http.StatusUnauthorized, shareapi.CodeMissingClientID, shareapi.ClientIDHeader+" header is required")
		return "", false
	}
	return id, true
}
