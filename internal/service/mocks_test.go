package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/notify"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/repo"
)

// mockShareRepo is a hand-written test double for repo.ShareRepo.
// Each method is a function field; set only the ones your test needs.
type mockShareRepo struct {
	create        func(ctx context.Context, in domain.NewShare) (domain.Share, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.Share, error)
	updatePayload func(ctx context.Context, id uuid.UUID, p domain.Payload) (domain.Share, error)
	setEnabled    func(ctx context.Context, id uuid.UUID, enabled bool) (domain.Share, error)
	ban           func(ctx context.Context, id uuid.UUID, memberID string) (domain.Share, error)
}

func (m *mockShareRepo) Create(ctx context.Context, in domain.NewShare) (domain.Share, error) {
	return m.create(ctx, in)
}
func (m *mockShareRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Share, error) {
	return m.getByID(ctx, id)
}
func (m *mockShareRepo) UpdatePayload(ctx context.Context, id uuid.UUID, p domain.Payload) (domain.Share, error) {
	return m.updatePayload(ctx, id, p)
}
func (m *mockShareRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (domain.Share, error) {
	return m.setEnabled(ctx, id, enabled)
}
func (m *mockShareRepo) Ban(ctx context.Context, id uuid.UUID, memberID string) (domain.Share, error) {
	return m.ban(ctx, id, memberID)
}

// compile-time check: mockShareRepo must satisfy repo.ShareRepo.
var _ repo.ShareRepo = (*mockShareRepo)(nil)

// mockMemberRepo is a hand-written test double for repo.MemberRepo.
type mockMemberRepo struct {
	upsert      func(ctx context.Context, shareID uuid.UUID, m domain.Member) (domain.Member, error)
	remove      func(ctx context.Context, shareID uuid.UUID, clientID string) error
	listByShare func(ctx context.Context, shareID uuid.UUID) ([]domain.Member, error)
	pruneStale  func(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

func (m *mockMemberRepo) Upsert(ctx context.Context, shareID uuid.UUID, mem domain.Member) (domain.Member, error) {
	return m.upsert(ctx, shareID, mem)
}
func (m *mockMemberRepo) Remove(ctx context.Context, shareID uuid.UUID, clientID string) error {
	return m.remove(ctx, shareID, clientID)
}
func (m *mockMemberRepo) ListByShare(ctx context.Context, shareID uuid.UUID) ([]domain.Member, error) {
	return m.listByShare(ctx, shareID)
}
func (m *mockMemberRepo) PruneStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return m.pruneStale(ctx, cutoff)
}

var _ repo.MemberRepo = (*mockMemberRepo)(nil)

// recordingBroker counts publishes per topic.
type recordingBroker struct {
	mu     sync.Mutex
	topics map[string]int
}

func newRecordingBroker() *recordingBroker {
	return &recordingBroker{topics: make(map[string]int)}
}

func (b *recordingBroker) Publish(_ context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics[topic]++
	return nil
}

func (b *recordingBroker) Subscribe(ctx context.Context, topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{})
	return ch, func() {}
}

func (b *recordingBroker) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.topics[topic]
}

var _ notify.Broker = (*recordingBroker)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---- fixtures --------------------------------------------------------------

const (
	ownerID  = "owner-client"
	memberID = "member-client"
)

func payloadFixture(tripID string) domain.Payload {
	return domain.Payload{
		Version: domain.PayloadVersion,
		Trip:    domain.Trip{ID: tripID, Title: "Kyoto", StartDate: "2025-04-01", EndDate: "2025-04-05"},
		Schedules: []domain.Schedule{
			{ID: "s1", TripID: tripID, Date: "2025-04-01", Title: "Fushimi Inari"},
			{ID: "s2", TripID: tripID, Date: "2025-04-02", Title: "Arashiyama"},
		},
	}
}

func shareFixture() domain.Share {
	p := payloadFixture("trip-1")
	return domain.Share{
		ID:      uuid.New(),
		TripID:  "trip-1",
		Payload: &p,
		Enabled: true,
		OwnerID: ownerID,
	}
}

// shareRepoWith returns a repo whose GetByID always yields sh.
func shareRepoWith(sh domain.Share) *mockShareRepo {
	return &mockShareRepo{
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Share, error) { return sh, nil },
	}
}
