package handler

import (
	"net/http"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// GetHealth handles GET /healthz. It needs no dependencies.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, shareapi.HealthResponse{Status: "ok", PayloadVersion: domain.PayloadVersion})
}
