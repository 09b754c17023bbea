package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// MemberRepo defines the persistence operations for share presence entries.
type MemberRepo interface {
	// Upsert registers a member or refreshes its name, role and last_seen_at.
	Upsert(ctx context.Context, shareID uuid.UUID, m domain.Member) (domain.Member, error)

	// Remove deletes a member row. Removing an absent member is not an error.
	Remove(ctx context.Context, shareID uuid.UUID, clientID string) error

	// ListByShare returns the members of a share ordered by joined_at.
	ListByShare(ctx context.Context, shareID uuid.UUID) ([]domain.Member, error)

	// PruneStale deletes every member last seen before cutoff and returns the
	// distinct share ids that lost at least one member.
	PruneStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

type pgMemberRepo struct {
	db db
}

// NewMemberRepo constructs a MemberRepo backed by the provided db connection.
func NewMemberRepo(db db) MemberRepo {
	return &pgMemberRepo{db: db}
}

func (r *pgMemberRepo) Upsert(ctx context.Context, shareID uuid.UUID, m domain.Member) (domain.Member, error) {
	const q = `
		INSERT INTO share_members (share_id, client_id, name, role)
		VALUES (@share_id, @client_id, @name, @role)
		ON CONFLICT (share_id, client_id) DO UPDATE
		SET name         = EXCLUDED.name,
		    role         = EXCLUDED.role,
		    last_seen_at = now()
		RETURNING client_id, name, role, joined_at, last_seen_at`

	args := pgx.NamedArgs{
		"share_id":  shareID,
		"client_id": m.ID,
		"name":      m.Name,
		"role":      string(m.Role),
	}
	got, err := scanMember(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Member{}, fmt.Errorf("repo.MemberRepo.Upsert: %w", err)
	}
	return got, nil
}

func (r *pgMemberRepo) Remove(ctx context.Context, shareID uuid.UUID, clientID string) error {
	const q = `DELETE FROM share_members WHERE share_id = @share_id AND client_id = @client_id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"share_id": shareID, "client_id": clientID}); err != nil {
		return fmt.Errorf("repo.MemberRepo.Remove: %w", err)
	}
	return nil
}

func (r *pgMemberRepo) ListByShare(ctx context.Context, shareID uuid.UUID) ([]domain.Member, error) {
	const q = `
		SELECT client_id, name, role, joined_at, last_seen_at
		FROM share_members
		WHERE share_id = @share_id
		ORDER BY joined_at, client_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"share_id": shareID})
	if err != nil {
		return nil, fmt.Errorf("repo.MemberRepo.ListByShare: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.MemberRepo.ListByShare: scan: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.MemberRepo.ListByShare: rows: %w", err)
	}
	return members, nil
}

func (r *pgMemberRepo) PruneStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	const q = `
		WITH pruned AS (
			DELETE FROM share_members
			WHERE last_seen_at < @cutoff
			RETURNING share_id
		)
		SELECT DISTINCT share_id FROM pruned`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"cutoff": cutoff})
	if err != nil {
		return nil, fmt.Errorf("repo.MemberRepo.PruneStale: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repo.MemberRepo.PruneStale: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.MemberRepo.PruneStale: rows: %w", err)
	}
	return ids, nil
}

func scanMember(s scanner) (domain.Member, error) {
	var (
		m    domain.Member
		role string
	)
	if err := s.Scan(&m.ID, &m.Name, &role, &m.JoinedAt, &m.LastSeenAt); err != nil {
		return domain.Member{}, err
	}
	m.Role = domain.Role(role)
	return m, nil
}
