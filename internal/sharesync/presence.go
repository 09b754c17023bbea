package sharesync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// DefaultHeartbeat is how often a granted client refreshes its member entry.
// The server drops entries not refreshed within its presence TTL.
const DefaultHeartbeat = 30 * time.Second

// leaveTimeout bounds the best-effort Leave sent on Close.
const leaveTimeout = 5 * time.Second

// Presence keeps this client's entry in a share's member list while access is
// granted, and reports the member list from every snapshot.
type Presence struct {
	store     DocumentStore
	shareID   string
	cb        Callbacks
	log       *slog.Logger
	heartbeat time.Duration

	mu     sync.Mutex
	role   domain.Role
	joined bool
	stop   context.CancelFunc
	done   chan struct{}
}

// NewPresence builds a Presence for shareID. A zero heartbeat uses
// DefaultHeartbeat.
func NewPresence(store DocumentStore, shareID string, cb Callbacks, log *slog.Logger, heartbeat time.Duration) *Presence {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	if log == nil {
		log = slog.Default()
	}
	return &Presence{store: store, shareID: shareID, cb: cb, log: log, heartbeat: heartbeat}
}

// Observe reports the snapshot's member list.
func (p *Presence) Observe(snap domain.Snapshot) {
	members := snap.Members
	if members == nil {
		members = []domain.Member{}
	}
	p.cb.membersChanged(members)
}

// Granted joins the member list under name and keeps the entry fresh until
// Revoked or Close. Calling it again with a new name re-joins immediately.
func (p *Presence) Granted(ctx context.Context, name string, role domain.Role) {
	p.Revoked()

	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.role = role
	p.joined = true
	p.stop = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.heartbeat)
		defer ticker.Stop()
		for {
			p.join(hbCtx, name)
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Revoked stops the heartbeat without leaving. The server expires the entry,
// or has already removed it on a ban.
func (p *Presence) Revoked() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}
}

// Ban removes memberID from the share and adds it to the ban list. Only an
// admin may ban.
func (p *Presence) Ban(ctx context.Context, memberID string) error {
	p.mu.Lock()
	role := p.role
	p.mu.Unlock()
	if role != domain.RoleAdmin {
		return fmt.Errorf("sharesync.Presence.Ban: %w", domain.ErrForbidden)
	}
	if err := p.store.BanMember(ctx, p.shareID, memberID); err != nil {
		return fmt.Errorf("sharesync.Presence.Ban: %w", err)
	}
	return nil
}

// Close stops the heartbeat and, if this client joined, leaves the share.
func (p *Presence) Close() {
	p.Revoked()

	p.mu.Lock()
	joined := p.joined
	p.joined = false
	p.mu.Unlock()
	if !joined {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if err := p.store.Leave(ctx, p.shareID); err != nil {
		p.log.Warn("leave share failed", "share_id", p.shareID, "error", err)
	}
}

func (p *Presence) join(ctx context.Context, name string) {
	if _, err := p.store.Join(ctx, p.shareID, name); err != nil && ctx.Err() == nil {
		p.log.Warn("presence heartbeat failed", "share_id", p.shareID, "error", err)
	}
}
