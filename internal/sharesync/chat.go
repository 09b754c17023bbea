package sharesync

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// Chat is the message feed of one share. It never touches the trip payload,
// so sending a message does not trigger a sync push.
type Chat struct {
	store   DocumentStore
	shareID string
}

// NewChat returns the chat of shareID.
func NewChat(store DocumentStore, shareID string) *Chat {
	return &Chat{store: store, shareID: shareID}
}

// Send appends text as user. Surrounding whitespace is trimmed and an empty
// message returns ErrEmptyMessage without a network call. On failure the
// untrimmed draft is returned so the caller can restore its input field.
func (c *Chat) Send(ctx context.Context, user, draft string) (domain.Message, string, error) {
	text := strings.TrimSpace(draft)
	if text == "" {
		return domain.Message{}, draft, ErrEmptyMessage
	}
	m, err := c.store.SendMessage(ctx, c.shareID, user, text)
	if err != nil {
		return domain.Message{}, draft, fmt.Errorf("sharesync.Chat.Send: %w", err)
	}
	return m, "", nil
}

// Subscribe delivers the full ordered message list now and after every send.
func (c *Chat) Subscribe(ctx context.Context, onChange func([]domain.Message)) (func(), error) {
	unsubscribe, err := c.store.SubscribeMessages(ctx, c.shareID, onChange)
	if err != nil {
		return nil, fmt.Errorf("sharesync.Chat.Subscribe: %w", err)
	}
	return unsubscribe, nil
}
