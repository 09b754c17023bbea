package handler

import (
	"net/http"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// SendMessage handles POST /shares/{shareID}/messages.
func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	var body shareapi.SendMessageRequest
	if !decodeBody(w, r, &body) {
		return
	}

	m, err := s.chat.Send(r.Context(), id, clientID, body.User, body.Text)
	if err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ListMessages handles GET /shares/{shareID}/messages.
func (s *Server) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	msgs, err := s.chat.List(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}
	writeJSON(w, http.StatusOK, shareapi.MessageList{Data: msgs})
}
