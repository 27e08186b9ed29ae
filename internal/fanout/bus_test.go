package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startupconnect/internal/common"
)

type recordingSubscriber struct {
	id   string
	fail error

	mu       sync.Mutex
	payloads []string
}

func newRecorder(id string) *recordingSubscriber {
	return &recordingSubscriber{id: id}
}

func (r *recordingSubscriber) ID() string { return r.id }

func (r *recordingSubscriber) Deliver(payload []byte) error {
	if r.fail != nil {
		return r.fail
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, string(payload))
	return nil
}

func (r *recordingSubscriber) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.payloads...)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "user:42", UserTopic(42))
}

func TestLocalBus_PublishSubscribe(t *testing.T) {
	bus := NewLocalBus()
	ctx := context.Background()

	tab1, tab2, other := newRecorder("s1"), newRecorder("s2"), newRecorder("s3")
	bus.Subscribe(UserTopic(1), tab1)
	bus.Subscribe(UserTopic(1), tab2)
	bus.Subscribe(UserTopic(2), other)

	require.NoError(t, bus.Publish(ctx, UserTopic(1), []byte("hello")))

	assert.Equal(t, []string{"hello"}, tab1.received())
	assert.Equal(t, []string{"hello"}, tab2.received())
	assert.Empty(t, other.received())

	bus.Unsubscribe(UserTopic(1), tab1)
	require.NoError(t, bus.Publish(ctx, UserTopic(1), []byte("again")))
	assert.Equal(t, []string{"hello"}, tab1.received())
	assert.Equal(t, []string{"hello", "again"}, tab2.received())

	bus.Unsubscribe(UserTopic(1), tab2)
	assert.Zero(t, bus.SubscriberCount(UserTopic(1)))
	assert.NoError(t, bus.Publish(ctx, UserTopic(1), []byte("nobody home")))
}

func TestLocalBus_DeliveryFailure(t *testing.T) {
	bus := NewLocalBus()
	broken := newRecorder("broken")
	broken.fail = errors.New("buffer full")
	healthy := newRecorder("healthy")

	bus.Subscribe(UserTopic(3), broken)
	bus.Subscribe(UserTopic(3), healthy)

	err := bus.Publish(context.Background(), UserTopic(3), []byte("x"))
	assert.ErrorIs(t, err, common.ErrDeliveryFailure)
	assert.Equal(t, []string{"x"}, healthy.received(), "one failing session does not block the others")
}

func TestRedisBus_CrossNodeDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	newNode := func() *RedisBus {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		bus, err := NewRedisBus(ctx, client, "test:")
		require.NoError(t, err)
		t.Cleanup(func() { bus.Close() })
		return bus
	}
	nodeA, nodeB := newNode(), newNode()

	onB := newRecorder("session-on-b")
	nodeB.Subscribe(UserTopic(9), onB)

	require.NoError(t, nodeA.Publish(ctx, UserTopic(9), []byte(`{"type":"typing"}`)))

	assert.Eventually(t, func() bool {
		return len(onB.received()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, `{"type":"typing"}`, onB.received()[0])

	nodeB.Unsubscribe(UserTopic(9), onB)
	require.NoError(t, nodeA.Publish(ctx, UserTopic(9), []byte("late")))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, onB.received(), 1)
}
