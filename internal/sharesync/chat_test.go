package sharesync_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/sharesync"
)

type failingSend struct {
	*clientView
	calls int
}

func (f *failingSend) SendMessage(context.Context, string, string, string) (domain.Message, error) {
	f.calls++
	return domain.Message{}, errors.New("offline")
}

func TestChat_SendTrimsAndOrders(t *testing.T) {
	b := newBackend()
	shareID := b.Seed("owner", tripPayload("t1", "Kyoto"), "")
	chat := sharesync.NewChat(b.As("bob"), shareID)

	var mu sync.Mutex
	var got []domain.Message
	unsubscribe, err := chat.Subscribe(context.Background(), func(msgs []domain.Message) {
		mu.Lock()
		got = msgs
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	m, draft, err := chat.Send(context.Background(), "Bob", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Text)
	assert.Empty(t, draft)
	_, _, err = chat.Send(context.Background(), "Bob", "second")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, waitFor, tick)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.Less(t, got[0].Seq, got[1].Seq)
}

func TestChat_EmptyMessageIsNotSent(t *testing.T) {
	store := &failingSend{clientView: newBackend().As("bob")}
	chat := sharesync.NewChat(store, "sh")

	_, draft, err := chat.Send(context.Background(), "Bob", " \n\t ")

	assert.ErrorIs(t, err, sharesync.ErrEmptyMessage)
	assert.Equal(t, " \n\t ", draft)
	assert.Zero(t, store.calls)
}

func TestChat_FailedSendReturnsDraft(t *testing.T) {
	store := &failingSend{clientView: newBackend().As("bob")}
	chat := sharesync.NewChat(store, "sh")

	_, draft, err := chat.Send(context.Background(), "Bob", " see you at 9 ")

	require.Error(t, err)
	assert.Equal(t, " see you at 9 ", draft)
	assert.Equal(t, 1, store.calls)
}

func TestChat_MessagesDoNotTriggerSync(t *testing.T) {
	b := newBackend()
	shareID := b.Seed("owner", tripPayload("t1", "Kyoto"), "")
	local := localTrip(t, tripPayload("t1", "Kyoto"))
	rec := &recorder{}
	startEngine(t, b.As("owner"), local, rec, shareID, "t1")
	waitForPull(t, rec)

	chat := sharesync.NewChat(b.As("owner"), shareID)
	for i := 0; i < 50; i++ {
		_, _, err := chat.Send(context.Background(), "admin", fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}
	time.Sleep(5 * debounce)

	assert.Zero(t, b.Updates())
	assert.Equal(t, []sharesync.Direction{sharesync.DirectionPull}, rec.Directions())
}
