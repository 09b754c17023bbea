package handler

import (
	"net/http"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// RecordLog handles POST /shares/{shareID}/logs.
func (s *Server) RecordLog(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	var body shareapi.RecordLogRequest
	if !decodeBody(w, r, &body) {
		return
	}

	stored, err := s.activity.Record(r.Context(), id, clientID, domain.LogEntry{
		ID:       body.ID,
		User:     body.User,
		Action:   body.Action,
		ClientTS: body.ClientTS,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// ListLogs handles GET /shares/{shareID}/logs.
// Supports ?page= and ?limit= (see domain.NewPaginationParams).
func (s *Server) ListLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	params, ok := paginationParams(w, r)
	if !ok {
		return
	}

	entries, total, err := s.activity.List(r.Context(), id, params)
	if err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}
	writeJSON(w, http.StatusOK, shareapi.LogList{
		Data: entries,
		Pagination: shareapi.Pagination{
			Page:    params.Page,
			Limit:   params.Limit,
			Total:   int(total),
			HasMore: params.HasMore(total),
		},
	})
}
