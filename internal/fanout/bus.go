// Package fanout moves chat events from the ingestion path to live sessions.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"startupconnect/internal/common"
)

// Subscriber is a live session attached to one or more topics.
type Subscriber interface {
	ID() string
	Deliver(payload []byte) error
}

// Bus is a topic based publish/subscribe channel between sessions.
type Bus interface {
	Subscribe(topic string, sub Subscriber)
	Unsubscribe(topic string, sub Subscriber)
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

func UserTopic(userID uint64) string {
	return fmt.Sprintf("user:%d", userID)
}

// LocalBus delivers within the current process.
type LocalBus struct {
	mu     sync.RWMutex
	topics map[string]map[string]Subscriber
}

func NewLocalBus() *LocalBus {
	return &LocalBus{topics: make(map[string]map[string]Subscriber)}
}

func (b *LocalBus) Subscribe(topic string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]Subscriber)
		b.topics[topic] = subs
	}
	subs[sub.ID()] = sub
}

func (b *LocalBus) Unsubscribe(topic string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	delete(subs, sub.ID())
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// Publish hands payload to every subscriber of topic. A topic with no
// subscribers is not an error: the recipient simply has no live session.
func (b *LocalBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.topics[topic]))
	for _, s := range b.topics[topic] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Deliver(payload); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrDeliveryFailure, errors.Join(errs...))
	}
	return nil
}

func (b *LocalBus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = make(map[string]map[string]Subscriber)
	return nil
}
