package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	name  string
	err   error
	block chan struct{}

	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) Name() string { return o.name }

func (o *recordingObserver) Update(ctx context.Context, event Event) error {
	if o.block != nil {
		<-o.block
	}
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()
	return o.err
}

func (o *recordingObserver) seen() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}

func TestDispatcher_PreservesPerConversationOrder(t *testing.T) {
	d := NewDispatcher(4, 100)
	obs := &recordingObserver{name: "rec"}
	d.Subscribe(obs)

	for i := uint64(1); i <= 50; i++ {
		require.True(t, d.NotifyAsync(Event{Kind: KindTyping, ConversationID: "conv-a", UpToSeq: i}))
		require.True(t, d.NotifyAsync(Event{Kind: KindTyping, ConversationID: "conv-b", UpToSeq: i}))
	}
	d.Shutdown()

	last := map[string]uint64{}
	for _, ev := range obs.seen() {
		assert.Greater(t, ev.UpToSeq, last[ev.ConversationID], "out of order for %s", ev.ConversationID)
		last[ev.ConversationID] = ev.UpToSeq
	}
	assert.Len(t, obs.seen(), 100)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(1, 1)
	obs := &recordingObserver{name: "slow", block: make(chan struct{})}
	d.Subscribe(obs)

	assert.True(t, d.NotifyAsync(Event{ConversationID: "c"}))
	// the worker may or may not have picked up the first event yet
	accepted := 0
	for i := 0; i < 5; i++ {
		if d.NotifyAsync(Event{ConversationID: "c"}) {
			accepted++
		}
	}
	assert.LessOrEqual(t, accepted, 1)

	close(obs.block)
	d.Shutdown()
	assert.False(t, d.NotifyAsync(Event{ConversationID: "c"}), "closed dispatcher rejects events")
}

func TestDispatcher_ObserverErrorsDoNotStopOthers(t *testing.T) {
	d := NewDispatcher(1, 10)
	failing := &recordingObserver{name: "failing", err: errors.New("boom")}
	ok := &recordingObserver{name: "ok"}
	d.Subscribe(failing)
	d.Subscribe(ok)

	err := d.Notify(context.Background(), Event{Kind: KindChatMessage, ConversationID: "c"})
	assert.ErrorContains(t, err, "boom")
	assert.Len(t, ok.seen(), 1)

	d.Unsubscribe(failing)
	assert.NoError(t, d.Notify(context.Background(), Event{ConversationID: "c"}))
	d.Shutdown()
	d.Shutdown()
}

func TestDispatcher_ShutdownDrainsQueue(t *testing.T) {
	d := NewDispatcher(2, 10)
	obs := &recordingObserver{name: "rec"}
	d.Subscribe(obs)

	for i := 0; i < 10; i++ {
		d.NotifyAsync(Event{ConversationID: "c"})
	}

	done := make(chan struct{})
	go func() {
		d.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return")
	}
	assert.Len(t, obs.seen(), 10)
}
