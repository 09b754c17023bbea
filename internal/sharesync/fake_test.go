package sharesync_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/notify"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/sharesync"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/tripstore"
)

// backend is an in-memory share service. It enforces the same write rules as
// the real one and signals subscribers through a notify.MemoryBroker.
type backend struct {
	broker *notify.MemoryBroker

	mu         sync.Mutex
	shares     map[string]*domain.Snapshot
	messages   map[string][]domain.Message
	logs       map[string][]domain.LogEntry
	updates    int
	pushesBy   map[string]int
	failUpdate error
}

func newBackend() *backend {
	return &backend{
		broker:   notify.NewMemoryBroker(),
		shares:   make(map[string]*domain.Snapshot),
		messages: make(map[string][]domain.Message),
		logs:     make(map[string][]domain.LogEntry),
		pushesBy: make(map[string]int),
	}
}

// As returns the backend as seen by one client.
func (b *backend) As(clientID string) *clientView {
	return &clientView{b: b, client: clientID}
}

// Updates counts successful payload pushes.
func (b *backend) Updates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updates
}

// UpdatesBy counts successful payload pushes made by one client.
func (b *backend) UpdatesBy(clientID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pushesBy[clientID]
}

func (b *backend) FailUpdates(err error) {
	b.mu.Lock()
	b.failUpdate = err
	b.mu.Unlock()
}

// Payload returns a copy of the share's stored payload.
func (b *backend) Payload(t *testing.T, shareID string) domain.Payload {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	sh, ok := b.shares[shareID]
	require.True(t, ok, "share %s exists", shareID)
	require.NotNil(t, sh.Payload)
	return copyPayload(*sh.Payload)
}

func (b *backend) Logs(shareID string) []domain.LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.LogEntry(nil), b.logs[shareID]...)
}

// Seed stores a share directly, skipping validation.
func (b *backend) Seed(ownerID string, p domain.Payload, passwordHash string) string {
	id := uuid.NewString()
	b.mu.Lock()
	b.shares[id] = &domain.Snapshot{
		ShareID:      id,
		Payload:      ptr(copyPayload(p)),
		Enabled:      true,
		OwnerID:      ownerID,
		PasswordHash: passwordHash,
		Members:      []domain.Member{},
		BannedIDs:    []string{},
		UpdatedAt:    time.Now(),
	}
	b.mu.Unlock()
	return id
}

// SetEnabled flips the enabled flag directly.
func (b *backend) SetEnabled(shareID string, enabled bool) {
	b.mu.Lock()
	b.shares[shareID].Enabled = enabled
	b.mu.Unlock()
	b.publish(shareID)
}

func (b *backend) snapshot(shareID string) (domain.Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sh, ok := b.shares[shareID]
	if !ok {
		return domain.Snapshot{}, false
	}
	out := *sh
	if sh.Payload != nil {
		out.Payload = ptr(copyPayload(*sh.Payload))
	}
	out.Members = append([]domain.Member{}, sh.Members...)
	out.BannedIDs = append([]string{}, sh.BannedIDs...)
	return out, true
}

func (b *backend) publish(shareID string) {
	_ = b.broker.Publish(context.Background(), notify.ShareTopic(shareID))
}

// clientView implements sharesync.DocumentStore for one client id.
type clientView struct {
	b      *backend
	client string
}

var _ sharesync.DocumentStore = (*clientView)(nil)

func (c *clientView) Create(_ context.Context, in domain.NewShare) (string, error) {
	if err := in.Payload.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := time.Now()
	c.b.mu.Lock()
	c.b.shares[id] = &domain.Snapshot{
		ShareID:      id,
		Payload:      ptr(copyPayload(in.Payload)),
		Enabled:      true,
		OwnerID:      in.OwnerID,
		PasswordHash: in.PasswordHash,
		Members:      []domain.Member{{ID: in.OwnerID, Name: in.OwnerName, Role: domain.RoleAdmin, JoinedAt: now, LastSeenAt: now}},
		BannedIDs:    []string{},
		UpdatedAt:    now,
	}
	c.b.mu.Unlock()
	return id, nil
}

func (c *clientView) Subscribe(ctx context.Context, shareID string, onChange func(domain.Snapshot)) (func(), error) {
	if _, ok := c.b.snapshot(shareID); !ok {
		return nil, fmt.Errorf("subscribe: %w", domain.ErrNotFound)
	}
	return c.watch(ctx, notify.ShareTopic(shareID), func() {
		if snap, ok := c.b.snapshot(shareID); ok {
			onChange(snap)
		}
	}), nil
}

func (c *clientView) SubscribeMessages(ctx context.Context, shareID string, onChange func([]domain.Message)) (func(), error) {
	if _, ok := c.b.snapshot(shareID); !ok {
		return nil, fmt.Errorf("subscribe messages: %w", domain.ErrNotFound)
	}
	return c.watch(ctx, notify.MessagesTopic(shareID), func() {
		c.b.mu.Lock()
		msgs := append([]domain.Message{}, c.b.messages[shareID]...)
		c.b.mu.Unlock()
		onChange(msgs)
	}), nil
}

// watch delivers once, then again after every signal on topic.
func (c *clientView) watch(ctx context.Context, topic string, deliver func()) func() {
	ctx, cancel := context.WithCancel(ctx)
	signals, _ := c.b.broker.Subscribe(ctx, topic)
	go func() {
		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok || ctx.Err() != nil {
					return
				}
				deliver()
			}
		}
	}()
	return cancel
}

func (c *clientView) Update(_ context.Context, shareID string, payload domain.Payload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	c.b.mu.Lock()
	sh, ok := c.b.shares[shareID]
	switch {
	case !ok:
		c.b.mu.Unlock()
		return domain.ErrNotFound
	case sh.IsBanned(c.client):
		c.b.mu.Unlock()
		return domain.ErrBanned
	case !sh.Enabled:
		c.b.mu.Unlock()
		return domain.ErrShareDisabled
	case c.b.failUpdate != nil:
		err := c.b.failUpdate
		c.b.mu.Unlock()
		return err
	case sh.Payload != nil && sh.Payload.Trip.ID != payload.Trip.ID:
		c.b.mu.Unlock()
		return domain.ErrValidation
	}
	sh.Payload = ptr(copyPayload(payload))
	sh.UpdatedAt = time.Now()
	c.b.updates++
	c.b.pushesBy[c.client]++
	c.b.mu.Unlock()
	c.b.publish(shareID)
	return nil
}

func (c *clientView) SetEnabled(_ context.Context, shareID string, enabled bool) error {
	c.b.mu.Lock()
	sh, ok := c.b.shares[shareID]
	if !ok {
		c.b.mu.Unlock()
		return domain.ErrNotFound
	}
	if sh.OwnerID != c.client {
		c.b.mu.Unlock()
		return domain.ErrForbidden
	}
	sh.Enabled = enabled
	c.b.mu.Unlock()
	c.b.publish(shareID)
	return nil
}

func (c *clientView) BanMember(_ context.Context, shareID, memberID string) error {
	c.b.mu.Lock()
	sh, ok := c.b.shares[shareID]
	if !ok {
		c.b.mu.Unlock()
		return domain.ErrNotFound
	}
	if sh.OwnerID != c.client {
		c.b.mu.Unlock()
		return domain.ErrForbidden
	}
	if !sh.IsBanned(memberID) {
		sh.BannedIDs = append(sh.BannedIDs, memberID)
	}
	sh.Members = removeMember(sh.Members, memberID)
	c.b.mu.Unlock()
	c.b.publish(shareID)
	return nil
}

func (c *clientView) Join(_ context.Context, shareID, name string) (domain.Member, error) {
	c.b.mu.Lock()
	sh, ok := c.b.shares[shareID]
	if !ok {
		c.b.mu.Unlock()
		return domain.Member{}, domain.ErrNotFound
	}
	role := domain.RoleFor(c.client, sh.OwnerID)
	if role != domain.RoleAdmin {
		if sh.IsBanned(c.client) {
			c.b.mu.Unlock()
			return domain.Member{}, domain.ErrBanned
		}
		if !sh.Enabled {
			c.b.mu.Unlock()
			return domain.Member{}, domain.ErrShareDisabled
		}
	}
	now := time.Now()
	m := domain.Member{ID: c.client, Name: name, Role: role, JoinedAt: now, LastSeenAt: now}
	for i, existing := range sh.Members {
		if existing.ID == c.client {
			m.JoinedAt = existing.JoinedAt
			sh.Members[i] = m
			c.b.mu.Unlock()
			c.b.publish(shareID)
			return m, nil
		}
	}
	sh.Members = append(sh.Members, m)
	c.b.mu.Unlock()
	c.b.publish(shareID)
	return m, nil
}

func (c *clientView) Leave(_ context.Context, shareID string) error {
	c.b.mu.Lock()
	if sh, ok := c.b.shares[shareID]; ok {
		sh.Members = removeMember(sh.Members, c.client)
	}
	c.b.mu.Unlock()
	c.b.publish(shareID)
	return nil
}

func (c *clientView) SendMessage(_ context.Context, shareID, user, text string) (domain.Message, error) {
	c.b.mu.Lock()
	if _, ok := c.b.shares[shareID]; !ok {
		c.b.mu.Unlock()
		return domain.Message{}, domain.ErrNotFound
	}
	m := domain.Message{
		ID:        uuid.NewString(),
		Seq:       int64(len(c.b.messages[shareID]) + 1),
		User:      user,
		Text:      text,
		CreatedAt: time.Now(),
	}
	c.b.messages[shareID] = append(c.b.messages[shareID], m)
	c.b.mu.Unlock()
	_ = c.b.broker.Publish(context.Background(), notify.MessagesTopic(shareID))
	return m, nil
}

func (c *clientView) RecordLog(_ context.Context, shareID string, entry domain.LogEntry) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if _, ok := c.b.shares[shareID]; !ok {
		return domain.ErrNotFound
	}
	c.b.logs[shareID] = append(c.b.logs[shareID], entry)
	return nil
}

func removeMember(members []domain.Member, id string) []domain.Member {
	out := members[:0]
	for _, m := range members {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

func copyPayload(p domain.Payload) domain.Payload {
	raw, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	var out domain.Payload
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

// recorder captures every callback for assertions.
type recorder struct {
	mu       sync.Mutex
	statuses []bool
	dirs     []sharesync.Direction
	errs     []string
	auth     []string // message per OnAuthRequired; "" when cleared
	names    int
	members  []domain.Member
	denied   int
	disabled []string
}

func (r *recorder) callbacks() sharesync.Callbacks {
	return sharesync.Callbacks{
		OnStatus: func(enabled bool) {
			r.mu.Lock()
			r.statuses = append(r.statuses, enabled)
			r.mu.Unlock()
		},
		OnSyncDirection: func(dir sharesync.Direction, _ time.Time) {
			r.mu.Lock()
			r.dirs = append(r.dirs, dir)
			r.mu.Unlock()
		},
		OnSyncError: func(msg string) {
			r.mu.Lock()
			r.errs = append(r.errs, msg)
			r.mu.Unlock()
		},
		OnAuthRequired: func(required bool, msg string) {
			r.mu.Lock()
			if !required {
				msg = ""
			}
			r.auth = append(r.auth, msg)
			r.mu.Unlock()
		},
		OnNameRequired: func() {
			r.mu.Lock()
			r.names++
			r.mu.Unlock()
		},
		OnMembersChanged: func(members []domain.Member) {
			r.mu.Lock()
			r.members = members
			r.mu.Unlock()
		},
		OnAccessDenied: func() {
			r.mu.Lock()
			r.denied++
			r.mu.Unlock()
		},
		OnShareDisabled: func(ownerID string) {
			r.mu.Lock()
			r.disabled = append(r.disabled, ownerID)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) Statuses() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.statuses...)
}

func (r *recorder) Directions() []sharesync.Direction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sharesync.Direction(nil), r.dirs...)
}

func (r *recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errs...)
}

func (r *recorder) Auth() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.auth...)
}

func (r *recorder) NameRequests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names
}

func (r *recorder) MemberNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.Name)
	}
	return names
}

func (r *recorder) Denied() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.denied
}

func (r *recorder) Disabled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.disabled...)
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func tripPayload(tripID, title string) domain.Payload {
	return domain.Payload{
		Version: domain.PayloadVersion,
		Trip:    domain.Trip{ID: tripID, Title: title, StartDate: "2025-04-01", EndDate: "2025-04-05"},
		Schedules: []domain.Schedule{
			{ID: "s1", TripID: tripID, Date: "2025-04-01", Title: "Fushimi Inari"},
			{ID: "s2", TripID: tripID, Date: "2025-04-02", Title: "Arashiyama"},
		},
		ExchangeRates: map[string]float64{"JPY": 0.0067},
	}
}

// localTrip returns a trip store holding one trip.
func localTrip(t *testing.T, p domain.Payload) *tripstore.Store {
	t.Helper()
	s := tripstore.New()
	require.NoError(t, s.Replace(p))
	return s
}

func scheduleTitles(s *tripstore.Store, tripID string) []string {
	p, err := s.Export(tripID)
	if err != nil {
		return nil
	}
	titles := make([]string, 0, len(p.Schedules))
	for _, sc := range p.Schedules {
		titles = append(titles, sc.Title)
	}
	return titles
}

func tripTitle(s *tripstore.Store, tripID string) string {
	p, err := s.Export(tripID)
	if err != nil {
		return ""
	}
	return p.Trip.Title
}
