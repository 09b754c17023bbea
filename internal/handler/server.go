// Package handler implements the HTTP handlers for the TravPlanner share API.
// All handlers are methods on Server. Methods are split into resource files
// (share.go, chat.go, activity.go, events.go) but all share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/notify"
)

// ShareServicer defines the share document operations the handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type ShareServicer interface {
	Create(ctx context.Context, in domain.NewShare) (domain.Share, error)
	Snapshot(ctx context.Context, id uuid.UUID) (domain.Snapshot, error)
	UpdatePayload(ctx context.Context, id uuid.UUID, clientID string, payload domain.Payload) (domain.Share, error)
	SetEnabled(ctx context.Context, id uuid.UUID, clientID string, enabled bool) (domain.Share, error)
	Ban(ctx context.Context, id uuid.UUID, clientID, memberID string) (domain.Share, error)
	Join(ctx context.Context, id uuid.UUID, clientID, name string) (domain.Member, error)
	Leave(ctx context.Context, id uuid.UUID, clientID string) error
}

// ChatServicer defines the chat operations the handlers depend on.
type ChatServicer interface {
	Send(ctx context.Context, id uuid.UUID, clientID, user, text string) (domain.Message, error)
	List(ctx context.Context, id uuid.UUID) ([]domain.Message, error)
}

// ActivityServicer defines the activity log operations the handlers depend on.
type ActivityServicer interface {
	Record(ctx context.Context, id uuid.UUID, clientID string, entry domain.LogEntry) (domain.LogEntry, error)
	List(ctx context.Context, id uuid.UUID, p domain.PaginationParams) ([]domain.LogEntry, int64, error)
}

// Server holds the dependencies of every endpoint.
// Wire it in main.go via server.Routes().
type Server struct {
	shares   ShareServicer
	chat     ChatServicer
	activity ActivityServicer
	broker   notify.Broker
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(shares ShareServicer, chat ChatServicer, activity ActivityServicer, broker notify.Broker, log *slog.Logger) *Server {
	return &Server{shares: shares, chat: chat, activity: activity, broker: broker, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil, slog.Default())
}

// Routes returns the chi router for every endpoint. Cross-cutting middleware
// (request id, logging, CORS, body limits, client id) is applied by the caller.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)

	r.Route("/shares", func(r chi.Router) {
		r.Post("/", s.CreateShare)
		r.Route("/{shareID}", func(r chi.Router) {
			r.Get("/", s.GetShare)
			r.Get("/events", s.ShareEvents)
			r.Put("/payload", s.UpdatePayload)
			r.Put("/enabled", s.SetEnabled)
			r.Post("/bans", s.BanMember)
			r.Put("/members/me", s.JoinShare)
			r.Delete("/members/me", s.LeaveShare)

			r.Get("/messages", s.ListMessages)
			r.Post("/messages", s.SendMessage)
			r.Get("/messages/events", s.MessageEvents)

			r.Get("/logs", s.ListLogs)
			r.Post("/logs", s.RecordLog)
		})
	})
	return r
}
