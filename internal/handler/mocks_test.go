package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/handler"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/middleware"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/notify"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// mockShareServicer is a test double for handler.ShareServicer.
// Set only the method fields your test needs.
type mockShareServicer struct {
	create        func(ctx context.Context, in domain.NewShare) (domain.Share, error)
	snapshot      func(ctx context.Context, id uuid.UUID) (domain.Snapshot, error)
	updatePayload func(ctx context.Context, id uuid.UUID, clientID string, p domain.Payload) (domain.Share, error)
	setEnabled    func(ctx context.Context, id uuid.UUID, clientID string, enabled bool) (domain.Share, error)
	ban           func(ctx context.Context, id uuid.UUID, clientID, memberID string) (domain.Share, error)
	join          func(ctx context.Context, id uuid.UUID, clientID, name string) (domain.Member, error)
	leave         func(ctx context.Context, id uuid.UUID, clientID string) error
}

func (m *mockShareServicer) Create(ctx context.Context, in domain.NewShare) (domain.Share, error) {
	return m.create(ctx, in)
}
func (m *mockShareServicer) Snapshot(ctx context.Context, id uuid.UUID) (domain.Snapshot, error) {
	return m.snapshot(ctx, id)
}
func (m *mockShareServicer) UpdatePayload(ctx context.Context, id uuid.UUID, clientID string, p domain.Payload) (domain.Share, error) {
	return m.updatePayload(ctx, id, clientID, p)
}
func (m *mockShareServicer) SetEnabled(ctx context.Context, id uuid.UUID, clientID string, enabled bool) (domain.Share, error) {
	return m.setEnabled(ctx, id, clientID, enabled)
}
func (m *mockShareServicer) Ban(ctx context.Context, id uuid.UUID, clientID, memberID string) (domain.Share, error) {
	return m.ban(ctx, id, clientID, memberID)
}
func (m *mockShareServicer) Join(ctx context.Context, id uuid.UUID, clientID, name string) (domain.Member, error) {
	return m.join(ctx, id, clientID, name)
}
func (m *mockShareServicer) Leave(ctx context.Context, id uuid.UUID, clientID string) error {
	return m.leave(ctx, id, clientID)
}

// compile-time check: mockShareServicer must satisfy handler.ShareServicer.
var _ handler.ShareServicer = (*mockShareServicer)(nil)

type mockChatServicer struct {
	send func(ctx context.Context, id uuid.UUID, clientID, user, text string) (domain.Message, error)
	list func(ctx context.Context, id uuid.UUID) ([]domain.Message, error)
}

func (m *mockChatServicer) Send(ctx context.Context, id uuid.UUID, clientID, user, text string) (domain.Message, error) {
	return m.send(ctx, id, clientID, user, text)
}
func (m *mockChatServicer) List(ctx context.Context, id uuid.UUID) ([]domain.Message, error) {
	return m.list(ctx, id)
}

var _ handler.ChatServicer = (*mockChatServicer)(nil)

type mockActivityServicer struct {
	record func(ctx context.Context, id uuid.UUID, clientID string, e domain.LogEntry) (domain.LogEntry, error)
	list   func(ctx context.Context, id uuid.UUID, p domain.PaginationParams) ([]domain.LogEntry, int64, error)
}

func (m *mockActivityServicer) Record(ctx context.Context, id uuid.UUID, clientID string, e domain.LogEntry) (domain.LogEntry, error) {
	return m.record(ctx, id, clientID, e)
}
func (m *mockActivityServicer) List(ctx context.Context, id uuid.UUID, p domain.PaginationParams) ([]domain.LogEntry, int64, error) {
	return m.list(ctx, id, p)
}

var _ handler.ActivityServicer = (*mockActivityServicer)(nil)

// ---- helpers ---------------------------------------------------------------

type deps struct {
	shares   *mockShareServicer
	chat     *mockChatServicer
	activity *mockActivityServicer
	broker   notify.Broker
}

// newHTTPHandler wires a Server with the given mocks behind the ClientID
// middleware. This mirrors how main.go wires it in production.
func newHTTPHandler(d deps) http.Handler {
	if d.shares == nil {
		d.shares = &mockShareServicer{}
	}
	if d.chat == nil {
		d.chat = &mockChatServicer{}
	}
	if d.activity == nil {
		d.activity = &mockActivityServicer{}
	}
	if d.broker == nil {
		d.broker = notify.NewMemoryBroker()
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := handler.NewServer(d.shares, d.chat, d.activity, d.broker, log)
	return middleware.ClientID(srv.Routes())
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, body io.Reader) shareapi.ErrorResponse {
	t.Helper()
	var resp shareapi.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func payloadFixture() domain.Payload {
	return domain.Payload{
		Version: domain.PayloadVersion,
		Trip:    domain.Trip{ID: "trip-1", Title: "Kyoto", StartDate: "2025-04-01", EndDate: "2025-04-05"},
		Schedules: []domain.Schedule{
			{ID: "s1", TripID: "trip-1", Date: "2025-04-01", Title: "Fushimi Inari"},
		},
	}
}
