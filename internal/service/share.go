// Package service contains the business logic for the TravPlanner share service.
// Services validate inputs, enforce access rules, orchestrate repo calls, and
// publish change signals. No SQL lives here; services depend on repo
// interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/metrics"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/notify"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/repo"
)

// OwnerName is the display name given to the share owner when none is supplied.
const OwnerName = "admin"

// ShareService implements the share document operations: create, read,
// full-payload overwrite, enable/disable, ban, and presence join/leave.
// Every successful write publishes a signal on notify.ShareTopic.
type ShareService struct {
	shares  repo.ShareRepo
	members repo.MemberRepo
	broker  notify.Broker
	log     *slog.Logger

	// reads coalesces concurrent snapshot loads of the same share; one signal
	// wakes every open event stream of that share at once.
	reads singleflight.Group
}

// NewShareService constructs a ShareService.
func NewShareService(shares repo.ShareRepo, members repo.MemberRepo, broker notify.Broker, log *slog.Logger) *ShareService {
	return &ShareService{shares: shares, members: members, broker: broker, log: log}
}

// Create validates the initial payload and persists a new share owned by
// in.OwnerID. The owner is registered as the admin member.
func (s *ShareService) Create(ctx context.Context, in domain.NewShare) (domain.Share, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return domain.Share{}, fmt.Errorf("%w: owner id is required", domain.ErrValidation)
	}
	if err := in.Payload.Validate(); err != nil {
		return domain.Share{}, err
	}
	in.OwnerName = strings.TrimSpace(in.OwnerName)
	if in.OwnerName == "" {
		in.OwnerName = OwnerName
	}

	created, err := s.shares.Create(ctx, in)
	if err != nil {
		return domain.Share{}, fmt.Errorf("service.ShareService.Create: %w", err)
	}
	metrics.SharesCreated.Inc()
	s.log.InfoContext(ctx, "share created", "share_id", created.ID, "trip_id", created.TripID)
	return created, nil
}

// SnapshotLoadTimeout bounds one coalesced snapshot load.
const SnapshotLoadTimeout = 5 * time.Second

// Snapshot loads the subscriber view of a share: document fields plus members.
// Returns domain.ErrNotFound if the share does not exist.
//
// Concurrent calls for one share share a single load. The load is detached
// from the caller's cancellation, so a stream that disconnects mid-load does
// not fail the other streams waiting on it; each caller still stops waiting
// when its own ctx ends.
func (s *ShareService) Snapshot(ctx context.Context, id uuid.UUID) (domain.Snapshot, error) {
	ch := s.reads.DoChan(id.String(), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SnapshotLoadTimeout)
		defer cancel()
		sh, err := s.shares.GetByID(loadCtx, id)
		if err != nil {
			return nil, err
		}
		members, err := s.members.ListByShare(loadCtx, id)
		if err != nil {
			return nil, err
		}
		return domain.NewSnapshot(sh, members), nil
	})

	select {
	case <-ctx.Done():
		return domain.Snapshot{}, fmt.Errorf("service.ShareService.Snapshot: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.Snapshot{}, fmt.Errorf("service.ShareService.Snapshot: %w", res.Err)
		}
		return res.Val.(domain.Snapshot), nil
	}
}

// UpdatePayload overwrites the whole payload of a share. Last writer wins;
// there is no merge with concurrent pushes from other clients.
// Returns domain.ErrBanned, domain.ErrShareDisabled, or domain.ErrValidation
// (bad payload, or a payload for a different trip).
func (s *ShareService) UpdatePayload(ctx context.Context, id uuid.UUID, clientID string, payload domain.Payload) (domain.Share, error) {
	if err := payload.Validate(); err != nil {
		metrics.PayloadPushes.WithLabelValues("rejected").Inc()
		return domain.Share{}, err
	}

	sh, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return domain.Share{}, fmt.Errorf("service.ShareService.UpdatePayload: %w", err)
	}
	if err := checkWritable(sh, clientID); err != nil {
		metrics.PayloadPushes.WithLabelValues("rejected").Inc()
		return domain.Share{}, fmt.Errorf("service.ShareService.UpdatePayload: %w", err)
	}
	if payload.Trip.ID != sh.TripID {
		metrics.PayloadPushes.WithLabelValues("rejected").Inc()
		return domain.Share{}, fmt.Errorf("%w: payload is for trip %s, share is for trip %s", domain.ErrValidation, payload.Trip.ID, sh.TripID)
	}

	updated, err := s.shares.UpdatePayload(ctx, id, payload)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The row existed a moment ago, so it was disabled in between.
			err = domain.ErrShareDisabled
		}
		metrics.PayloadPushes.WithLabelValues("error").Inc()
		return domain.Share{}, fmt.Errorf("service.ShareService.UpdatePayload: %w", err)
	}
	metrics.PayloadPushes.WithLabelValues("ok").Inc()
	s.publish(ctx, id)
	return updated, nil
}

// SetEnabled enables or disables a share. Only the owner may do this.
// Disabling does not touch the payload; clients evict themselves.
func (s *ShareService) SetEnabled(ctx context.Context, id uuid.UUID, clientID string, enabled bool) (domain.Share, error) {
	sh, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return domain.Share{}, fmt.Errorf("service.ShareService.SetEnabled: %w", err)
	}
	if sh.OwnerID != clientID {
		return domain.Share{}, fmt.Errorf("service.ShareService.SetEnabled: %w: only the owner can change sharing", domain.ErrForbidden)
	}

	updated, err := s.shares.SetEnabled(ctx, id, enabled)
	if err != nil {
		return domain.Share{}, fmt.Errorf("service.ShareService.SetEnabled: %w", err)
	}
	s.log.InfoContext(ctx, "share enabled changed", "share_id", id, "enabled", enabled)
	s.publish(ctx, id)
	return updated, nil
}

// Ban adds memberID to the ban list and removes it from the member list.
// Only the owner may ban; the owner cannot ban themselves. Banning an
// already-banned id succeeds without duplicating the entry.
func (s *ShareService) Ban(ctx context.Context, id uuid.UUID, clientID, memberID string) (domain.Share, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return domain.Share{}, fmt.Errorf("%w: member id is required", domain.ErrValidation)
	}

	sh, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return domain.Share{}, fmt.Errorf("service.ShareService.Ban: %w", err)
	}
	if sh.OwnerID != clientID {
		return domain.Share{}, fmt.Errorf("service.ShareService.Ban: %w: only the owner can ban members", domain.ErrForbidden)
	}
	if memberID == sh.OwnerID {
		return domain.Share{}, fmt.Errorf("%w: the owner cannot be banned", domain.ErrValidation)
	}

	updated, err := s.shares.Ban(ctx, id, memberID)
	if err != nil {
		return domain.Share{}, fmt.Errorf("service.ShareService.Ban: %w", err)
	}
	metrics.Bans.Inc()
	s.log.InfoContext(ctx, "member banned", "share_id", id, "member_id", memberID)
	s.publish(ctx, id)
	return updated, nil
}

// Join registers or refreshes the caller's presence entry. Clients call it
// when their access gate grants access, then periodically as a heartbeat.
// The role is derived from the owner id, never taken from the caller.
func (s *ShareService) Join(ctx context.Context, id uuid.UUID, clientID, name string) (domain.Member, error) {
	if strings.TrimSpace(clientID) == "" {
		return domain.Member{}, fmt.Errorf("%w: client id is required", domain.ErrValidation)
	}

	sh, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return domain.Member{}, fmt.Errorf("service.ShareService.Join: %w", err)
	}

	role := domain.RoleFor(clientID, sh.OwnerID)
	name = strings.TrimSpace(name)
	if role == domain.RoleAdmin {
		if name == "" {
			name = OwnerName
		}
	} else {
		if err := checkWritable(sh, clientID); err != nil {
			return domain.Member{}, fmt.Errorf("service.ShareService.Join: %w", err)
		}
		if name == "" {
			return domain.Member{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
		}
	}

	m, err := s.members.Upsert(ctx, id, domain.Member{ID: clientID, Name: name, Role: role})
	if err != nil {
		return domain.Member{}, fmt.Errorf("service.ShareService.Join: %w", err)
	}
	s.publish(ctx, id)
	return m, nil
}

// Leave removes the caller's presence entry. Leaving twice is not an error.
func (s *ShareService) Leave(ctx context.Context, id uuid.UUID, clientID string) error {
	if err := s.members.Remove(ctx, id, clientID); err != nil {
		return fmt.Errorf("service.ShareService.Leave: %w", err)
	}
	s.publish(ctx, id)
	return nil
}

// publish signals subscribers of the share. A failed publish only delays
// delivery until the next write, so it is logged rather than returned.
func (s *ShareService) publish(ctx context.Context, id uuid.UUID) {
	if err := s.broker.Publish(ctx, notify.ShareTopic(id.String())); err != nil {
		s.log.WarnContext(ctx, "publish share change failed", "share_id", id, "error", err)
	}
}

// checkWritable applies the rules every non-owner write shares: banned
// clients are refused, and disabled shares accept no writes.
func checkWritable(sh domain.Share, clientID string) error {
	if sh.IsBanned(clientID) {
		return domain.ErrBanned
	}
	if !sh.Enabled {
		return domain.ErrShareDisabled
	}
	return nil
}
