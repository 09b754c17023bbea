package handler

import (
	"net/http"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// CreateShare handles POST /shares.
func (s *Server) CreateShare(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	var body shareapi.CreateShareRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Payload == nil {
		badRequest(w, "payload is required")
		return
	}

	created, err := s.shares.Create(r.Context(), domain.NewShare{
		Payload:      *body.Payload,
		PasswordHash: body.PasswordHash,
		OwnerID:      clientID,
		OwnerName:    body.OwnerName,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}

	writeJSON(w, http.StatusCreated, shareapi.CreateShareResponse{
		ShareID:   created.ID.String(),
		TripID:    created.TripID,
		CreatedAt: created.CreatedAt,
	})
}

// GetShare handles GET /shares/{shareID}.
// The snapshot is readable without a client id: access decisions (password,
// ban, disabled) are made by the client's gate from the snapshot itself.
func (s *Server) GetShare(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	snap, err := s.shares.Snapshot(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// UpdatePayload handles PUT /shares/{shareID}/payload: a whole-payload
// overwrite, last writer wins.
func (s *Server) UpdatePayload(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	var payload domain.Payload
	if !decodeBody(w, r, &payload) {
		return
	}

	updated, err := s.shares.UpdatePayload(r.Context(), id, clientID, payload)
	if err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}
	writeJSON(w, http.StatusOK, shareapi.UpdatePayloadResponse{UpdatedAt: updated.UpdatedAt})
}

// SetEnabled handles PUT /shares/{shareID}/enabled. Owner only.
func (s *Server) SetEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	var body shareapi.SetEnabledRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Enabled == nil {
		badRequest(w, "enabled is required")
		return
	}

	updated, err := s.shares.SetEnabled(r.Context(), id, clientID, *body.Enabled)
	if err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}
	writeJSON(w, http.StatusOK, shareapi.SetEnabledResponse{Enabled: updated.Enabled})
}

// BanMember handles POST /shares/{shareID}/bans. Owner only; idempotent.
func (s *Server) BanMember(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	var body shareapi.BanRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if _, err := s.shares.Ban(r.Context(), id, clientID, body.MemberID); err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JoinShare handles PUT /shares/{shareID}/members/me: presence registration
// and heartbeat.
func (s *Server) JoinShare(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	var body shareapi.JoinRequest
	if !decodeBody(w, r, &body) {
		return
	}

	m, err := s.shares.Join(r.Context(), id, clientID, body.Name)
	if err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// LeaveShare handles DELETE /shares/{shareID}/members/me.
func (s *Server) LeaveShare(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	if err := s.shares.Leave(r.Context(), id, clientID); err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
