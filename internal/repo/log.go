package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// LogRepo defines the persistence operations for share activity logs.
type LogRepo interface {
	// Create stores an entry. When entry.ID is empty the database generates one.
	// Returns domain.ErrNotFound if the share does not exist.
	Create(ctx context.Context, entry domain.LogEntry) (domain.LogEntry, error)

	// ListByShare returns one page of entries, most recent client_ts first,
	// together with the total number of entries for the share.
	ListByShare(ctx context.Context, shareID uuid.UUID, p domain.PaginationParams) ([]domain.LogEntry, int64, error)
}

type pgLogRepo struct {
	db db
}

// NewLogRepo constructs a LogRepo backed by the provided db connection.
func NewLogRepo(db db) LogRepo {
	return &pgLogRepo{db: db}
}

func (r *pgLogRepo) Create(ctx context.Context, entry domain.LogEntry) (domain.LogEntry, error) {
	const q = `
		INSERT INTO share_logs (id, share_id, user_name, action, client_ts)
		VALUES (COALESCE(@id, gen_random_uuid()), @share_id, @user_name, @action, @client_ts)
		ON CONFLICT (id) DO UPDATE
		SET user_name = EXCLUDED.user_name,
		    action    = EXCLUDED.action,
		    client_ts = EXCLUDED.client_ts
		RETURNING id, share_id, user_name, action, client_ts`

	shareID, err := uuid.Parse(entry.ShareID)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("repo.LogRepo.Create: %w: invalid share id", domain.ErrValidation)
	}

	var id *uuid.UUID
	if entry.ID != "" {
		parsed, err := uuid.Parse(entry.ID)
		if err != nil {
			return domain.LogEntry{}, fmt.Errorf("repo.LogRepo.Create: %w: invalid log id", domain.ErrValidation)
		}
		id = &parsed
	}

	args := pgx.NamedArgs{
		"id":        id,
		"share_id":  shareID,
		"user_name": entry.User,
		"action":    entry.Action,
		"client_ts": entry.ClientTS,
	}
	got, err := scanLogEntry(r.db.QueryRow(ctx, q, args))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return domain.LogEntry{}, fmt.Errorf("repo.LogRepo.Create: %w", domain.ErrNotFound)
		}
		return domain.LogEntry{}, fmt.Errorf("repo.LogRepo.Create: %w", err)
	}
	return got, nil
}

func (r *pgLogRepo) ListByShare(ctx context.Context, shareID uuid.UUID, p domain.PaginationParams) ([]domain.LogEntry, int64, error) {
	const q = `
		SELECT id, share_id, user_name, action, client_ts, count(*) OVER () AS total
		FROM share_logs
		WHERE share_id = @share_id
		ORDER BY client_ts DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"share_id": shareID,
		"limit":    p.Limit,
		"offset":   p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.LogRepo.ListByShare: %w", err)
	}
	defer rows.Close()

	var (
		entries []domain.LogEntry
		total   int64
	)
	for rows.Next() {
		var (
			e       domain.LogEntry
			id, sid uuid.UUID
		)
		if err := rows.Scan(&id, &sid, &e.User, &e.Action, &e.ClientTS, &total); err != nil {
			return nil, 0, fmt.Errorf("repo.LogRepo.ListByShare: scan: %w", err)
		}
		e.ID, e.ShareID = id.String(), sid.String()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.LogRepo.ListByShare: rows: %w", err)
	}
	return entries, total, nil
}

func scanLogEntry(s scanner) (domain.LogEntry, error) {
	var (
		e       domain.LogEntry
		id, sid uuid.UUID
	)
	if err := s.Scan(&id, &sid, &e.User, &e.Action, &e.ClientTS); err != nil {
		return domain.LogEntry{}, err
	}
	e.ID, e.ShareID = id.String(), sid.String()
	return e, nil
}
