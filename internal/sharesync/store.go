// Package sharesync is the client side of trip sharing: it keeps a local trip
// mirrored with its share document, decides whether this client may see the
// share, tracks who else is viewing it, and carries the share's chat.
//
// Every component talks to the share service through DocumentStore and to the
// local trips through TripStore, so it runs the same against the HTTP client
// and against in-memory fakes.
package sharesync

import (
	"context"
	"errors"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// DocumentStore is the share service as seen by one client. Implementations
// send the client's identity with every call.
type DocumentStore interface {
	// Create stores a new share document and returns its id.
	Create(ctx context.Context, in domain.NewShare) (string, error)

	// Subscribe delivers the current snapshot and then a fresh one after every
	// change, until the returned func is called or ctx is done. Callbacks for
	// one subscription never run concurrently. The returned func must not
	// block waiting for an in-progress callback.
	Subscribe(ctx context.Context, shareID string, onChange func(domain.Snapshot)) (func(), error)

	// Update overwrites the share's whole payload.
	Update(ctx context.Context, shareID string, payload domain.Payload) error

	// SetEnabled turns sharing on or off. Owner only.
	SetEnabled(ctx context.Context, shareID string, enabled bool) error

	// BanMember adds memberID to the ban list. Owner only; idempotent.
	BanMember(ctx context.Context, shareID, memberID string) error

	// Join registers or refreshes this client in the member list.
	Join(ctx context.Context, shareID, name string) (domain.Member, error)

	// Leave removes this client from the member list.
	Leave(ctx context.Context, shareID string) error

	// SendMessage appends a chat message.
	SendMessage(ctx context.Context, shareID, user, text string) (domain.Message, error)

	// SubscribeMessages delivers the full ordered message list on subscribe
	// and after every send, with the same guarantees as Subscribe.
	SubscribeMessages(ctx context.Context, shareID string, onChange func([]domain.Message)) (func(), error)

	// RecordLog appends an activity entry.
	RecordLog(ctx context.Context, shareID string, entry domain.LogEntry) error
}

// TripStore is the local trip store the engine mirrors.
type TripStore interface {
	Export(tripID string) (domain.Payload, error)

	// Replace overwrites one trip with payload. Change observers must have run
	// by the time it returns.
	Replace(payload domain.Payload) error

	Delete(tripID string) error

	// OnLocalChange registers fn for every mutation and returns a func that
	// removes it.
	OnLocalChange(fn func(tripID string)) func()
}

var (
	// ErrNotSyncing is returned by operations that need an active sync.
	ErrNotSyncing = errors.New("sharesync: not syncing")

	// ErrEmptyMessage is returned when a chat message has no visible text.
	ErrEmptyMessage = errors.New("sharesync: empty message")

	// ErrEmptyName is returned when a display name has no visible text.
	ErrEmptyName = errors.New("sharesync: empty name")
)
