package sharesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// ShareCreateTimeout bounds share creation. On timeout nothing is cached.
const ShareCreateTimeout = 10 * time.Second

// SessionConfig is everything a Session needs for one (client, share) pair.
type SessionConfig struct {
	Store    DocumentStore
	Trips    TripStore
	Keys     Keystore
	Identity ClientIdentity
	ShareID  string
	TripID   string

	Callbacks Callbacks
	Logger    *slog.Logger

	// Zero values use DefaultDebounce and DefaultHeartbeat.
	Debounce  time.Duration
	Heartbeat time.Duration
}

func (c SessionConfig) validate() error {
	switch {
	case c.Store == nil || c.Trips == nil || c.Keys == nil:
		return fmt.Errorf("%w: store, trips and keys are required", domain.ErrValidation)
	case c.Identity.ID == "":
		return fmt.Errorf("%w: client identity is required", domain.ErrValidation)
	case c.ShareID == "" || c.TripID == "":
		return fmt.Errorf("%w: share id and trip id are required", domain.ErrValidation)
	}
	return nil
}

// Session runs the sync engine, access gate, presence tracker and chat for one
// client viewing one share. Every failure after Open is reported through the
// callbacks; none of them end the subscription.
type Session struct {
	cfg      SessionConfig
	log      *slog.Logger
	gate     *Gate
	presence *Presence
	engine   *Engine
	chat     *Chat

	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes gate evaluation with the reaction to its result.
	mu     sync.Mutex
	owner  string
	closed bool

	closeOnce sync.Once
	stopSync  func()
}

// Open starts a session: it subscribes to the share and begins gating,
// presence and sync. The session runs until Close or until ctx is done.
func Open(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("sharesync.Open: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("share_id", cfg.ShareID, "trip_id", cfg.TripID)

	s := &Session{
		cfg:      cfg,
		log:      log,
		gate:     NewGate(cfg.Identity, cfg.Keys, cfg.ShareID),
		presence: NewPresence(cfg.Store, cfg.ShareID, cfg.Callbacks, log, cfg.Heartbeat),
		chat:     NewChat(cfg.Store, cfg.ShareID),
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	opts := []EngineOption{WithEngineLogger(log), WithAccessCheck(s.onSnapshot)}
	if cfg.Debounce > 0 {
		opts = append(opts, WithDebounce(cfg.Debounce))
	}
	s.engine = NewEngine(cfg.Store, cfg.Trips, cfg.Callbacks, opts...)

	stop, err := s.engine.StartSync(s.ctx, cfg.ShareID, cfg.TripID)
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("sharesync.Open: %w", err)
	}
	s.stopSync = stop
	return s, nil
}

// State returns the access gate state.
func (s *Session) State() GateState { return s.gate.State() }

// Chat returns the share's chat channel.
func (s *Session) Chat() *Chat { return s.chat }

// SubmitName caches the display name and re-evaluates access.
func (s *Session) SubmitName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotSyncing
	}
	prev, next, err := s.gate.SubmitName(name)
	if err != nil {
		return fmt.Errorf("sharesync.Session.SubmitName: %w", err)
	}
	s.react(prev, next, false)
	s.engine.refresh()
	return nil
}

// SubmitPassword caches the password hash and re-evaluates access. A wrong
// password is reported through OnAuthRequired, not as an error.
func (s *Session) SubmitPassword(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotSyncing
	}
	prev, next, err := s.gate.SubmitPassword(password)
	if err != nil {
		return fmt.Errorf("sharesync.Session.SubmitPassword: %w", err)
	}
	s.react(prev, next, true)
	s.engine.refresh()
	return nil
}

// SyncNow pushes the local trip immediately.
func (s *Session) SyncNow(ctx context.Context) error {
	if err := s.engine.SyncNow(ctx); err != nil {
		return fmt.Errorf("sharesync.Session.SyncNow: %w", err)
	}
	return nil
}

// Ban removes memberID from the share. Admin only.
func (s *Session) Ban(ctx context.Context, memberID string) error {
	return s.presence.Ban(ctx, memberID)
}

// SetEnabled turns sharing on or off. Owner only. Re-enabling pushes the
// owner's local trip once the enabled snapshot arrives.
func (s *Session) SetEnabled(ctx context.Context, enabled bool) error {
	st := s.gate.State()
	if st.Kind != GateGranted || st.Role != domain.RoleAdmin {
		return fmt.Errorf("sharesync.Session.SetEnabled: %w", domain.ErrForbidden)
	}
	if enabled {
		s.engine.pushWhenEnabled()
	}
	if err := s.cfg.Store.SetEnabled(ctx, s.cfg.ShareID, enabled); err != nil {
		return fmt.Errorf("sharesync.Session.SetEnabled: %w", err)
	}
	return nil
}

// Log records an activity entry under this client's display name.
func (s *Session) Log(ctx context.Context, action string) error {
	st := s.gate.State()
	if st.Kind != GateGranted {
		return fmt.Errorf("sharesync.Session.Log: %w", domain.ErrForbidden)
	}
	entry := domain.LogEntry{
		ID:       uuid.NewString(),
		ShareID:  s.cfg.ShareID,
		User:     st.Name,
		Action:   action,
		ClientTS: time.Now().UTC(),
	}
	if err := s.cfg.Store.RecordLog(ctx, s.cfg.ShareID, entry); err != nil {
		return fmt.Errorf("sharesync.Session.Log: %w", err)
	}
	return nil
}

// Close stops syncing and leaves the share. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.stopSync()
		s.cancel()
		s.presence.Close()
	})
}

// onSnapshot is the engine's access check. It runs before every snapshot is
// applied and reports whether this client may sync it.
func (s *Session) onSnapshot(snap domain.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.owner = snap.OwnerID

	prev, next, err := s.gate.Observe(snap)
	if err != nil {
		s.log.Warn("evaluate share access failed", "error", err)
		s.cfg.Callbacks.syncError(err.Error())
		return false
	}
	if next.Kind != GateDenied && next.Kind != GateEvicted {
		s.presence.Observe(snap)
	}
	s.react(prev, next, false)
	return next.Kind == GateGranted
}

// react fires callbacks and side effects for a gate transition. Callers hold
// s.mu. force re-reports a password prompt that did not change.
func (s *Session) react(prev, next GateState, force bool) {
	if prev == next && !force {
		return
	}

	switch next.Kind {
	case GateNameRequired:
		s.presence.Revoked()
		s.cfg.Callbacks.nameRequired()

	case GatePasswordRequired:
		s.presence.Revoked()
		s.cfg.Callbacks.authRequired(true, next.Message)

	case GateGranted:
		if prev.Kind == GatePasswordRequired {
			s.cfg.Callbacks.authRequired(false, "")
		}
		if prev.Kind != GateGranted || prev.Name != next.Name || prev.Role != next.Role {
			s.presence.Granted(s.ctx, next.Name, next.Role)
		}

	case GateDenied:
		s.presence.Revoked()
		s.cfg.Callbacks.accessDenied()

	case GateEvicted:
		s.evict()
	}
}

// evict handles a share disabled under a non-owner: syncing stops, the local
// copy of the trip is removed and the UI is told to leave.
func (s *Session) evict() {
	s.presence.Revoked()
	// Stop first so the delete below is not pushed.
	s.engine.Stop()
	if err := s.cfg.Trips.Delete(s.cfg.TripID); err != nil {
		s.log.Warn("delete evicted trip failed", "error", err)
	}
	s.cfg.Callbacks.shareDisabled(s.owner)
}

// CreateShareRequest describes a new share of a local trip.
type CreateShareRequest struct {
	TripID    string
	Password  string // empty for no password
	OwnerName string // defaults to OwnerName
	BaseURL   string // when set, the returned link is built from it
}

// CreateShare publishes a local trip as a new share owned by identity. On
// success it caches the owner marker, the password hash and the owner's name,
// and returns the share id and link. On failure or timeout nothing is cached.
func CreateShare(ctx context.Context, store DocumentStore, trips TripStore, keys Keystore, identity ClientIdentity, req CreateShareRequest) (shareID, link string, err error) {
	if identity.ID == "" {
		return "", "", fmt.Errorf("sharesync.CreateShare: %w: client identity is required", domain.ErrValidation)
	}
	payload, err := trips.Export(req.TripID)
	if err != nil {
		return "", "", fmt.Errorf("sharesync.CreateShare: %w", err)
	}

	var hash string
	if req.Password != "" {
		hash = HashPassword(req.Password)
	}
	name := req.OwnerName
	if name == "" {
		name = OwnerName
	}

	ctx, cancel := context.WithTimeout(ctx, ShareCreateTimeout)
	defer cancel()
	shareID, err = store.Create(ctx, domain.NewShare{
		Payload:      payload,
		PasswordHash: hash,
		OwnerID:      identity.ID,
		OwnerName:    name,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", "", fmt.Errorf("sharesync.CreateShare: timed out after %s: %w", ShareCreateTimeout, err)
		}
		return "", "", fmt.Errorf("sharesync.CreateShare: %w", err)
	}

	if err := cacheOwner(keys, identity, shareID, hash, name); err != nil {
		return "", "", fmt.Errorf("sharesync.CreateShare: %w", err)
	}

	if req.BaseURL != "" {
		if link, err = BuildShareLink(req.BaseURL, req.TripID, shareID); err != nil {
			return "", "", fmt.Errorf("sharesync.CreateShare: %w", err)
		}
	}
	return shareID, link, nil
}

func cacheOwner(keys Keystore, identity ClientIdentity, shareID, hash, name string) error {
	if err := keys.Set(ownerKey(shareID), identity.ID); err != nil {
		return err
	}
	if hash != "" {
		if err := keys.Set(passwordKey(shareID), hash); err != nil {
			return err
		}
	}
	return keys.Set(nameKey(shareID), name)
}
