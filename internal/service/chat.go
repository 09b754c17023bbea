package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/metrics"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/notify"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/repo"
)

// maxMessageLen bounds a single chat message, in bytes.
const maxMessageLen = 2000

// ChatService implements the per-share append-only chat feed.
// It publishes only on notify.MessagesTopic so chat never wakes trip sync.
type ChatService struct {
	shares   repo.ShareRepo
	messages repo.MessageRepo
	broker   notify.Broker
	log      *slog.Logger
}

// NewChatService constructs a ChatService.
func NewChatService(shares repo.ShareRepo, messages repo.MessageRepo, broker notify.Broker, log *slog.Logger) *ChatService {
	return &ChatService{shares: shares, messages: messages, broker: broker, log: log}
}

// Send appends a message to the share's feed.
// Returns domain.ErrValidation for blank text or user, domain.ErrBanned for
// banned callers, and domain.ErrNotFound for unknown shares.
func (s *ChatService) Send(ctx context.Context, id uuid.UUID, clientID, user, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	user = strings.TrimSpace(user)
	if text == "" {
		return domain.Message{}, fmt.Errorf("%w: message text is required", domain.ErrValidation)
	}
	if len(text) > maxMessageLen {
		return domain.Message{}, fmt.Errorf("%w: message is longer than %d bytes", domain.ErrValidation, maxMessageLen)
	}
	if user == "" {
		return domain.Message{}, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}

	sh, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return domain.Message{}, fmt.Errorf("service.ChatService.Send: %w", err)
	}
	if sh.IsBanned(clientID) {
		return domain.Message{}, fmt.Errorf("service.ChatService.Send: %w", domain.ErrBanned)
	}

	m, err := s.messages.Append(ctx, id, user, text)
	if err != nil {
		return domain.Message{}, fmt.Errorf("service.ChatService.Send: %w", err)
	}
	metrics.ChatMessages.Inc()
	if err := s.broker.Publish(ctx, notify.MessagesTopic(id.String())); err != nil {
		s.log.WarnContext(ctx, "publish chat message failed", "share_id", id, "error", err)
	}
	return m, nil
}

// List returns the share's full feed in store order.
// Always returns a non-nil slice so callers can safely range over it.
func (s *ChatService) List(ctx context.Context, id uuid.UUID) ([]domain.Message, error) {
	msgs, err := s.messages.ListByShare(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.ChatService.List: %w", err)
	}
	if msgs == nil {
		return []domain.Message{}, nil
	}
	return msgs, nil
}
