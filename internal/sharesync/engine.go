package sharesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// DefaultDebounce is how long the engine waits after the last local change
// before pushing.
const DefaultDebounce = 100 * time.Millisecond

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDebounce sets the push coalescing window.
func WithDebounce(d time.Duration) EngineOption {
	return func(e *Engine) { e.debounce = d }
}

// WithEngineLogger sets the logger for background failures.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithAccessCheck installs a hook that sees every snapshot before the engine
// does. When it returns false the snapshot is not applied and local changes
// are not pushed until a later snapshot is allowed.
func WithAccessCheck(fn func(domain.Snapshot) bool) EngineOption {
	return func(e *Engine) { e.allow = fn }
}

// Engine keeps one local trip and one share document eventually consistent.
// Local changes are pushed as whole payloads after a debounce window; remote
// snapshots are written into the local store. Concurrent edits from different
// clients resolve as last writer wins on the whole payload.
type Engine struct {
	store    DocumentStore
	trips    TripStore
	cb       Callbacks
	log      *slog.Logger
	debounce time.Duration
	allow    func(domain.Snapshot) bool

	// applying is set while a remote payload is written to the local store,
	// so the store's change notifications for that write are not pushed back.
	applying atomic.Bool

	// pushMu serializes pushes.
	pushMu sync.Mutex

	mu  sync.Mutex
	run *syncRun
}

// syncRun is one StartSync subscription. Fields below the marker are guarded
// by Engine.mu.
type syncRun struct {
	shareID string
	tripID  string
	ctx     context.Context
	cancel  context.CancelFunc
	unwatch func()

	// deliver serializes snapshot handling.
	deliver sync.Mutex

	// guarded by Engine.mu
	unsubscribe func()
	stopped     bool
	haveStatus  bool
	enabled     bool
	allowed     bool
	timer       *time.Timer
	armed       bool
	pushing     bool
	missed      bool // a snapshot arrived mid-push and was not applied
	resume      bool // push local state once the share is enabled again
	last        *domain.Snapshot
	synced      []byte // encoded payload last pushed or applied
}

// NewEngine builds an engine. It does nothing until StartSync.
func NewEngine(store DocumentStore, trips TripStore, cb Callbacks, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		trips:    trips,
		cb:       cb,
		log:      slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSync subscribes to shareID and mirrors it into tripID. An engine syncs
// one share at a time: a running sync is stopped first. The returned func
// stops this sync; calling it after a later StartSync is a no-op.
func (e *Engine) StartSync(ctx context.Context, shareID, tripID string) (func(), error) {
	e.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	run := &syncRun{shareID: shareID, tripID: tripID, ctx: runCtx, cancel: cancel}

	e.mu.Lock()
	e.run = run
	e.mu.Unlock()

	run.unwatch = e.trips.OnLocalChange(func(id string) { e.onLocalChange(run, id) })

	unsubscribe, err := e.store.Subscribe(runCtx, shareID, func(s domain.Snapshot) { e.onSnapshot(run, s) })
	if err != nil {
		e.stopRun(run)
		return nil, fmt.Errorf("sharesync.Engine.StartSync: %w", err)
	}

	e.mu.Lock()
	run.unsubscribe = unsubscribe
	stopped := run.stopped
	e.mu.Unlock()
	if stopped {
		unsubscribe()
	}

	return func() { e.stopRun(run) }, nil
}

// Stop ends the current sync, cancelling any pending push.
func (e *Engine) Stop() {
	e.mu.Lock()
	run := e.run
	e.mu.Unlock()
	if run != nil {
		e.stopRun(run)
	}
}

// SyncNow pushes the current local state immediately, skipping the debounce
// window. It is the recovery path after a reported push failure.
func (e *Engine) SyncNow(ctx context.Context) error {
	e.mu.Lock()
	run := e.run
	if run == nil {
		e.mu.Unlock()
		return ErrNotSyncing
	}
	if run.timer != nil {
		run.timer.Stop()
	}
	run.armed = false
	e.mu.Unlock()

	return e.push(ctx, run)
}

func (e *Engine) stopRun(run *syncRun) {
	e.mu.Lock()
	if e.run == run {
		e.run = nil
	}
	if run.stopped {
		e.mu.Unlock()
		return
	}
	run.stopped = true
	run.armed = false
	if run.timer != nil {
		run.timer.Stop()
	}
	unsubscribe := run.unsubscribe
	e.mu.Unlock()

	run.cancel()
	if run.unwatch != nil {
		run.unwatch()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
}

// refresh re-evaluates the last snapshot, e.g. after access was granted.
// It runs on its own goroutine so it may be triggered from a callback.
func (e *Engine) refresh() {
	e.mu.Lock()
	run := e.run
	var last *domain.Snapshot
	if run != nil {
		last = run.last
	}
	e.mu.Unlock()
	if last == nil {
		return
	}
	go e.onSnapshot(run, *last)
}

func (e *Engine) onSnapshot(run *syncRun, snap domain.Snapshot) {
	run.deliver.Lock()
	defer run.deliver.Unlock()

	allowed := true
	if e.allow != nil {
		allowed = e.allow(snap)
	}

	e.mu.Lock()
	if run.stopped {
		e.mu.Unlock()
		return
	}
	statusChanged := !run.haveStatus || run.enabled != snap.Enabled
	run.haveStatus = true
	run.enabled = snap.Enabled
	run.allowed = allowed
	run.last = &snap
	if !snap.Enabled || !allowed {
		// No pushes while disabled or locked out.
		run.armed = false
		if run.timer != nil {
			run.timer.Stop()
		}
	} else if run.resume {
		run.resume = false
		e.armLocked(run)
	}
	e.mu.Unlock()

	if statusChanged {
		e.cb.status(snap.Enabled)
	}
	if snap.Enabled && allowed {
		e.apply(run, snap)
	}
}

// apply writes a remote payload into the local store.
func (e *Engine) apply(run *syncRun, snap domain.Snapshot) {
	if snap.Payload == nil {
		return
	}
	p := *snap.Payload
	if p.Trip.ID != run.tripID {
		e.cb.syncError(fmt.Sprintf("share holds trip %q, not %q", p.Trip.ID, run.tripID))
		return
	}
	if !p.Supported() {
		e.cb.syncError(fmt.Sprintf("share data version %d is newer than this app supports", p.Version))
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		e.cb.syncError("download failed: " + err.Error())
		return
	}

	e.mu.Lock()
	// Pending local edits will overwrite the document anyway. A snapshot seen
	// mid-push may be newer than the push, so it is revisited afterwards.
	if run.pushing {
		run.missed = true
	}
	skip := run.stopped || run.armed || run.pushing || bytes.Equal(raw, run.synced)
	e.mu.Unlock()
	if skip {
		return
	}

	e.applying.Store(true)
	err = e.trips.Replace(p)
	e.applying.Store(false)
	if err != nil {
		e.log.Warn("apply remote payload failed", "share_id", run.shareID, "error", err)
		e.cb.syncError("download failed: " + err.Error())
		return
	}

	e.mu.Lock()
	run.synced = raw
	e.mu.Unlock()
	e.cb.direction(DirectionPull, time.Now())
}

func (e *Engine) onLocalChange(run *syncRun, tripID string) {
	if tripID != run.tripID || e.applying.Load() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if run.stopped || !run.haveStatus || !run.enabled || !run.allowed {
		return
	}
	e.armLocked(run)
}

// armLocked (re)starts the debounce window. Callers hold e.mu.
func (e *Engine) armLocked(run *syncRun) {
	run.armed = true
	if run.timer == nil {
		run.timer = time.AfterFunc(e.debounce, func() { e.flush(run) })
		return
	}
	run.timer.Reset(e.debounce)
}

// pushWhenEnabled makes the next enabled snapshot trigger a push of the local
// trip instead of overwriting it. Used when the owner re-enables a share.
func (e *Engine) pushWhenEnabled() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != nil && !e.run.stopped {
		e.run.resume = true
	}
}

// flush is the debounce timer's callback.
func (e *Engine) flush(run *syncRun) {
	e.mu.Lock()
	if run.stopped || !run.armed {
		e.mu.Unlock()
		return
	}
	run.armed = false
	e.mu.Unlock()

	if err := e.push(run.ctx, run); err != nil {
		e.log.Debug("debounced push failed", "share_id", run.shareID, "error", err)
	}
}

// push exports the trip and overwrites the share payload. Failures are
// reported through OnSyncError and not retried.
func (e *Engine) push(ctx context.Context, run *syncRun) error {
	e.pushMu.Lock()
	defer e.pushMu.Unlock()

	e.mu.Lock()
	switch {
	case run.stopped:
		e.mu.Unlock()
		return ErrNotSyncing
	case !run.haveStatus || !run.enabled:
		e.mu.Unlock()
		return fmt.Errorf("sharesync.Engine.push: %w", domain.ErrShareDisabled)
	case !run.allowed:
		e.mu.Unlock()
		return fmt.Errorf("sharesync.Engine.push: %w", domain.ErrForbidden)
	}
	run.pushing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		run.pushing = false
		e.mu.Unlock()
	}()

	payload, err := e.trips.Export(run.tripID)
	if err != nil {
		e.cb.syncError("upload failed: " + err.Error())
		return fmt.Errorf("sharesync.Engine.push: export: %w", err)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		e.cb.syncError("upload failed: " + err.Error())
		return fmt.Errorf("sharesync.Engine.push: encode: %w", err)
	}

	if err := e.store.Update(ctx, run.shareID, payload); err != nil {
		// A push cancelled by teardown is not a user-facing failure.
		if run.ctx.Err() == nil {
			e.log.Warn("push failed", "share_id", run.shareID, "error", err)
			e.cb.syncError("upload failed: " + err.Error())
		}
		return fmt.Errorf("sharesync.Engine.push: %w", err)
	}

	e.mu.Lock()
	run.synced = raw
	missed := run.missed
	run.missed = false
	e.mu.Unlock()
	e.cb.direction(DirectionPush, time.Now())

	if missed {
		e.refresh()
	}
	return nil
}
