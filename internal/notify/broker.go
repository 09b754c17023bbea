// Package notify fans out "something changed" signals for share documents and
// chat feeds to every subscriber, within one process or across instances.
//
// Notifications carry no data. Subscribers re-read the current state after each
// signal, so signals may be coalesced: a slow subscriber can miss intermediate
// states but always observes the latest one.
package notify

import (
	"context"
	"sync"
)

// Broker publishes and delivers change signals per topic.
type Broker interface {
	// Publish signals every current subscriber of topic.
	Publish(ctx context.Context, topic string) error

	// Subscribe returns a channel that receives a value after each Publish on
	// topic, and a cancel func that releases the subscription and closes the
	// channel. The subscription also ends when ctx is done.
	Subscribe(ctx context.Context, topic string) (<-chan struct{}, func())
}

// ShareTopic is the topic signalled on every write to a share document.
func ShareTopic(shareID string) string {
	return "share:" + shareID
}

// MessagesTopic is the topic signalled on every chat message of a share.
// It is deliberately separate from ShareTopic so chat never wakes trip sync.
func MessagesTopic(shareID string) string {
	return "share:" + shareID + ":messages"
}

// MemoryBroker is an in-process Broker. It is used when no Redis is
// configured and in tests.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewMemoryBroker returns an empty in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[chan struct{}]struct{})}
}

// Publish performs a non-blocking send to every subscriber of topic.
func (b *MemoryBroker) Publish(_ context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[topic] {
		signal(ch)
	}
	return nil
}

// Subscribe registers a new subscriber on topic.
func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan struct{}]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], ch)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			close(ch)
			b.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel
}

// signal performs a non-blocking send on a 1-buffered channel. A pending
// signal already covers any new one.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
