package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/metrics"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/notify"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/repo"
)

// PresenceSweeper expires member entries whose clients stopped sending
// heartbeats. A member is stale once its last heartbeat is older than TTL.
type PresenceSweeper struct {
	members  repo.MemberRepo
	broker   notify.Broker
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewPresenceSweeper constructs a sweeper that runs every interval and
// removes members not seen within ttl.
func NewPresenceSweeper(members repo.MemberRepo, broker notify.Broker, log *slog.Logger, ttl, interval time.Duration) *PresenceSweeper {
	return &PresenceSweeper{
		members:  members,
		broker:   broker,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Sweep removes stale members once and signals every affected share.
// It returns the number of affected shares.
func (s *PresenceSweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.members.PruneStale(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("service.PresenceSweeper.Sweep: %w", err)
	}
	for _, id := range ids {
		if err := s.broker.Publish(ctx, notify.ShareTopic(id.String())); err != nil {
			s.log.WarnContext(ctx, "publish presence expiry failed", "share_id", id, "error", err)
		}
	}
	metrics.MembersPruned.Add(float64(len(ids)))
	return len(ids), nil
}

// Run sweeps on every tick until ctx is cancelled. Sweep errors are logged
// and the loop continues.
func (s *PresenceSweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.log.ErrorContext(ctx, "presence sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.DebugContext(ctx, "presence sweep", "shares", n)
			}
		}
	}
}
