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

// foreignKeyViolation is the Postgres SQLSTATE for a missing parent row.
const foreignKeyViolation = "23503"

// MessageRepo defines the persistence operations for share chat messages.
type MessageRepo interface {
	// Append stores a message and returns it with the store-assigned id, seq
	// and created_at. Returns domain.ErrNotFound if the share does not exist.
	Append(ctx context.Context, shareID uuid.UUID, user, text string) (domain.Message, error)

	// ListByShare returns every message of a share in seq order.
	ListByShare(ctx context.Context, shareID uuid.UUID) ([]domain.Message, error)
}

type pgMessageRepo struct {
	db db
}

// NewMessageRepo constructs a MessageRepo backed by the provided db connection.
func NewMessageRepo(db db) MessageRepo {
	return &pgMessageRepo{db: db}
}

func (r *pgMessageRepo) Append(ctx context.Context, shareID uuid.UUID, user, text string) (domain.Message, error) {
	const q = `
		INSERT INTO share_messages (share_id, user_name, text)
		VALUES (@share_id, @user_name, @text)
		RETURNING id, seq, user_name, text, created_at`

	args := pgx.NamedArgs{"share_id": shareID, "user_name": user, "text": text}
	m, err := scanMessage(r.db.QueryRow(ctx, q, args))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return domain.Message{}, fmt.Errorf("repo.MessageRepo.Append: %w", domain.ErrNotFound)
		}
		return domain.Message{}, fmt.Errorf("repo.MessageRepo.Append: %w", err)
	}
	return m, nil
}

func (r *pgMessageRepo) ListByShare(ctx context.Context, shareID uuid.UUID) ([]domain.Message, error) {
	const q = `
		SELECT id, seq, user_name, text, created_at
		FROM share_messages
		WHERE share_id = @share_id
		ORDER BY seq`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"share_id": shareID})
	if err != nil {
		return nil, fmt.Errorf("repo.MessageRepo.ListByShare: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.MessageRepo.ListByShare: scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.MessageRepo.ListByShare: rows: %w", err)
	}
	return msgs, nil
}

func scanMessage(s scanner) (domain.Message, error) {
	var (
		m  domain.Message
		id uuid.UUID
	)
	if err := s.Scan(&id, &m.Seq, &m.User, &m.Text, &m.CreatedAt); err != nil {
		return domain.Message{}, err
	}
	m.ID = id.String()
	return m, nil
}
