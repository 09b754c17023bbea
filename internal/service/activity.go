package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/activity"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/repo"
)

// ActivityService records and lists share activity log entries.
type ActivityService struct {
	shares    repo.ShareRepo
	logs      repo.LogRepo
	publisher activity.Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewActivityService constructs an ActivityService.
func NewActivityService(shares repo.ShareRepo, logs repo.LogRepo, publisher activity.Publisher, log *slog.Logger) *ActivityService {
	return &ActivityService{shares: shares, logs: logs, publisher: publisher, log: log, now: time.Now}
}

// Record stores an entry for the share and forwards it to the activity stream.
// A zero ClientTS is replaced by the server clock.
func (s *ActivityService) Record(ctx context.Context, id uuid.UUID, clientID string, entry domain.LogEntry) (domain.LogEntry, error) {
	entry.User = strings.TrimSpace(entry.User)
	entry.Action = strings.TrimSpace(entry.Action)
	if entry.User == "" {
		return domain.LogEntry{}, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}
	if entry.Action == "" {
		return domain.LogEntry{}, fmt.Errorf("%w: action is required", domain.ErrValidation)
	}
	if entry.ClientTS.IsZero() {
		entry.ClientTS = s.now()
	}
	entry.ShareID = id.String()

	sh, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("service.ActivityService.Record: %w", err)
	}
	if sh.IsBanned(clientID) {
		return domain.LogEntry{}, fmt.Errorf("service.ActivityService.Record: %w", domain.ErrBanned)
	}

	stored, err := s.logs.Create(ctx, entry)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("service.ActivityService.Record: %w", err)
	}
	if err := s.publisher.Publish(ctx, stored); err != nil {
		s.log.WarnContext(ctx, "publish activity failed", "share_id", id, "error", err)
	}
	return stored, nil
}

// List returns one page of the share's activity, most recent first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *ActivityService) List(ctx context.Context, id uuid.UUID, p domain.PaginationParams) ([]domain.LogEntry, int64, error) {
	entries, total, err := s.logs.ListByShare(ctx, id, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ActivityService.List: %w", err)
	}
	if entries == nil {
		return []domain.LogEntry{}, total, nil
	}
	return entries, total, nil
}
