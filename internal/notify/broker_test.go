package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/notify"
)

func receiveWithin(t *testing.T, ch <-chan struct{}, d time.Duration) bool {
	t.Helper()
	select {
	case _, ok := <-ch:
		return ok
	case <-time.After(d):
		return false
	}
}

func TestMemoryBroker_PublishReachesSubscribers(t *testing.T) {
	b := notify.NewMemoryBroker()
	ctx := context.Background()

	a, cancelA := b.Subscribe(ctx, notify.ShareTopic("s1"))
	defer cancelA()
	c, cancelC := b.Subscribe(ctx, notify.ShareTopic("s1"))
	defer cancelC()

	require.NoError(t, b.Publish(ctx, notify.ShareTopic("s1")))

	assert.True(t, receiveWithin(t, a, time.Second))
	assert.True(t, receiveWithin(t, c, time.Second))
}

func TestMemoryBroker_TopicsAreIsolated(t *testing.T) {
	b := notify.NewMemoryBroker()
	ctx := context.Background()

	share, cancel := b.Subscribe(ctx, notify.ShareTopic("s1"))
	defer cancel()

	require.NoError(t, b.Publish(ctx, notify.MessagesTopic("s1")))

	assert.False(t, receiveWithin(t, share, 50*time.Millisecond), "chat signal must not reach share subscribers")
}

func TestMemoryBroker_SignalsCoalesce(t *testing.T) {
	b := notify.NewMemoryBroker()
	ctx := context.Background()

	ch, cancel := b.Subscribe(ctx, "t")
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Publish(ctx, "t"))
	}

	assert.True(t, receiveWithin(t, ch, time.Second))
	assert.False(t, receiveWithin(t, ch, 50*time.Millisecond), "pending signals should have coalesced into one")
}

func TestMemoryBroker_CancelClosesChannel(t *testing.T) {
	b := notify.NewMemoryBroker()
	ctx, stop := context.WithCancel(context.Background())

	ch, cancel := b.Subscribe(ctx, "t")
	stop()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}
	cancel() // idempotent
	require.NoError(t, b.Publish(context.Background(), "t"))
}
