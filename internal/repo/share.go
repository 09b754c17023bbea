// Package repo contains all database access logic for the TravPlanner share service.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
// Begin on a pgx.Tx opens a savepoint, so multi-statement writes nest cleanly.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ShareRepo defines the persistence operations for share documents.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type ShareRepo interface {
	// Create inserts a share and registers its owner as the admin member, in
	// one transaction. Returns the persisted share with id and timestamps.
	Create(ctx context.Context, in domain.NewShare) (domain.Share, error)

	// GetByID retrieves a share by id.
	// Returns domain.ErrNotFound if no share with that id exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Share, error)

	// UpdatePayload overwrites the whole payload of an enabled share.
	// Returns domain.ErrNotFound if the share does not exist or is disabled.
	UpdatePayload(ctx context.Context, id uuid.UUID, payload domain.Payload) (domain.Share, error)

	// SetEnabled flips the enabled flag.
	// Returns domain.ErrNotFound if the share does not exist.
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (domain.Share, error)

	// Ban adds memberID to the ban list (at most once) and drops its member
	// row, in one transaction. Banning an already-banned id is not an error.
	Ban(ctx context.Context, id uuid.UUID, memberID string) (domain.Share, error)
}

// pgShareRepo is the Postgres implementation of ShareRepo.
type pgShareRepo struct {
	db db
}

// NewShareRepo constructs a ShareRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewShareRepo(db db) ShareRepo {
	return &pgShareRepo{db: db}
}

const shareColumns = `id, trip_id, payload, enabled, password_hash, owner_id, banned_ids, created_at, updated_at`

// Create inserts the share row and the owner's member row.
func (r *pgShareRepo) Create(ctx context.Context, in domain.NewShare) (domain.Share, error) {
	raw, err := json.Marshal(in.Payload)
	if err != nil {
		return domain.Share{}, fmt.Errorf("repo.ShareRepo.Create: encode payload: %w", err)
	}

	var result domain.Share
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
			INSERT INTO shares (trip_id, payload, password_hash, owner_id)
			VALUES (@trip_id, @payload, @password_hash, @owner_id)
			RETURNING ` + shareColumns

		args := pgx.NamedArgs{
			"trip_id":       in.Payload.Trip.ID,
			"payload":       raw,
			"password_hash": nullableText(in.PasswordHash),
			"owner_id":      in.OwnerID,
		}
		s, err := scanShare(tx.QueryRow(ctx, q, args))
		if err != nil {
			return err
		}

		const qm = `
			INSERT INTO share_members (share_id, client_id, name, role)
			VALUES (@share_id, @client_id, @name, @role)`
		if _, err := tx.Exec(ctx, qm, pgx.NamedArgs{
			"share_id":  s.ID,
			"client_id": in.OwnerID,
			"name":      in.OwnerName,
			"role":      string(domain.RoleAdmin),
		}); err != nil {
			return fmt.Errorf("insert owner member: %w", err)
		}
		result = s
		return nil
	})
	if err != nil {
		return domain.Share{}, fmt.Errorf("repo.ShareRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a share by primary key.
func (r *pgShareRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Share, error) {
	const q = `SELECT ` + shareColumns + ` FROM shares WHERE id = @id`

	s, err := scanShare(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Share{}, fmt.Errorf("repo.ShareRepo.GetByID: %w", err)
	}
	return s, nil
}

// UpdatePayload replaces the payload of an enabled share. The enabled check is
// part of the WHERE clause so a concurrent disable always wins.
func (r *pgShareRepo) UpdatePayload(ctx context.Context, id uuid.UUID, payload domain.Payload) (domain.Share, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.Share{}, fmt.Errorf("repo.ShareRepo.UpdatePayload: encode payload: %w", err)
	}

	const q = `
		UPDATE shares
		SET payload    = @payload,
		    updated_at = now()
		WHERE id = @id AND enabled
		RETURNING ` + shareColumns

	s, err := scanShare(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "payload": raw}))
	if err != nil {
		return domain.Share{}, fmt.Errorf("repo.ShareRepo.UpdatePayload: %w", err)
	}
	return s, nil
}

// SetEnabled updates the enabled flag and returns the updated share.
func (r *pgShareRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (domain.Share, error) {
	const q = `
		UPDATE shares
		SET enabled    = @enabled,
		    updated_at = now()
		WHERE id = @id
		RETURNING ` + shareColumns

	s, err := scanShare(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "enabled": enabled}))
	if err != nil {
		return domain.Share{}, fmt.Errorf("repo.ShareRepo.SetEnabled: %w", err)
	}
	return s, nil
}

// Ban appends memberID to banned_ids unless already present, then removes the
// member's presence row.
func (r *pgShareRepo) Ban(ctx context.Context, id uuid.UUID, memberID string) (domain.Share, error) {
	var result domain.Share
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
			UPDATE shares
			SET banned_ids = CASE
			        WHEN @member_id = ANY (banned_ids) THEN banned_ids
			        ELSE array_append(banned_ids, @member_id)
			    END,
			    updated_at = now()
			WHERE id = @id
			RETURNING ` + shareColumns

		s, err := scanShare(tx.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "member_id": memberID}))
		if err != nil {
			return err
		}

		const qd = `DELETE FROM share_members WHERE share_id = @id AND client_id = @member_id`
		if _, err := tx.Exec(ctx, qd, pgx.NamedArgs{"id": id, "member_id": memberID}); err != nil {
			return fmt.Errorf("delete member: %w", err)
		}
		result = s
		return nil
	})
	if err != nil {
		return domain.Share{}, fmt.Errorf("repo.ShareRepo.Ban: %w", err)
	}
	return result, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scan helpers to
// be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanShare maps a single database row into a domain.Share.
// It handles the UUID, nullable password hash, and JSONB payload conversions.
func scanShare(s scanner) (domain.Share, error) {
	var (
		sh       domain.Share
		id       pgtype.UUID
		payload  []byte
		password pgtype.Text
	)

	err := s.Scan(&id, &sh.TripID, &payload, &sh.Enabled, &password, &sh.OwnerID, &sh.BannedIDs, &sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Share{}, domain.ErrNotFound
		}
		return domain.Share{}, err
	}

	sh.ID = uuid.UUID(id.Bytes)
	if password.Valid {
		sh.PasswordHash = password.String
	}
	if payload != nil {
		var p domain.Payload
		if err := json.Unmarshal(payload, &p); err != nil {
			return domain.Share{}, fmt.Errorf("decode payload: %w", err)
		}
		sh.Payload = &p
	}
	return sh, nil
}

// nullableText maps an empty string to SQL NULL.
func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
