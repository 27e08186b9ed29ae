package fanout

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"
)

const observerTimeout = 5 * time.Second

type Observer interface {
	Update(ctx context.Context, event Event) error
	Name() string
}

// Dispatcher runs observers on a pool of workers. Events are sharded by
// conversation so that one conversation is always handled by the same worker
// and its events keep their commit order.
type Dispatcher struct {
	observers map[string]Observer
	shards    []chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
}

func NewDispatcher(workers, bufferSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if bufferSize <= 0 {
		bufferSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		observers: make(map[string]Observer),
		shards:    make([]chan Event, workers),
		ctx:       ctx,
		cancel:    cancel,
	}
	for i := range d.shards {
		d.shards[i] = make(chan Event, bufferSize)
		d.wg.Add(1)
		go d.processEvents(d.shards[i])
	}
	return d
}

func (d *Dispatcher) Subscribe(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers[observer.Name()] = observer
	log.Printf("Observer %s subscribed", observer.Name())
}

func (d *Dispatcher) Unsubscribe(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.observers, observer.Name())
	log.Printf("Observer %s unsubscribed", observer.Name())
}

// Notify runs every observer for event on the calling goroutine.
func (d *Dispatcher) Notify(ctx context.Context, event Event) error {
	d.mu.RLock()
	observers := make([]Observer, 0, len(d.observers))
	for _, obs := range d.observers {
		observers = append(observers, obs)
	}
	d.mu.RUnlock()

	var errs []error
	for _, observer := range observers {
		if err := observer.Update(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("observer %s: %w", observer.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NotifyAsync queues event and reports whether it was accepted. A full shard
// drops the event: delivery is best effort and never blocks the caller.
func (d *Dispatcher) NotifyAsync(event Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.shardFor(event.ConversationID) <- event:
		return true
	default:
		log.Printf("Dispatch queue full, dropping %s event for conversation %s", event.Kind, event.ConversationID)
		return false
	}
}

func (d *Dispatcher) shardFor(conversationID string) chan Event {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return d.shards[h.Sum32()%uint32(len(d.shards))]
}

func (d *Dispatcher) processEvents(ch <-chan Event) {
	defer d.wg.Done()

	for event := range ch {
		ctx, cancel := context.WithTimeout(d.ctx, observerTimeout)
		if err := d.Notify(ctx, event); err != nil {
			log.Printf("Dispatch %s for conversation %s: %v", event.Kind, event.ConversationID, err)
		}
		cancel()
	}
}

// Shutdown stops accepting events, drains what is queued and waits for the workers.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
	log.Println("Dispatcher shutdown complete")
}
