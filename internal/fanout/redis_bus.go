package fanout

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"startupconnect/internal/common"
)

// RedisBus spreads events across nodes. Every node pattern-subscribes to the
// channel prefix and re-publishes what it receives on its own LocalBus, so a
// session only ever talks to the node it is connected to.
type RedisBus struct {
	client *redis.Client
	prefix string
	local  *LocalBus
	pubsub *redis.PubSub
	wg     sync.WaitGroup
	logger *log.Logger
}

// NewRedisClient connects using a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return c, nil
}

func NewRedisBus(ctx context.Context, client *redis.Client, prefix string) (*RedisBus, error) {
	ps := client.PSubscribe(ctx, prefix+"*")
	// wait for the subscription to be confirmed so early publishes are not lost
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: psubscribe: %w", err)
	}

	b := &RedisBus{
		client: client,
		prefix: prefix,
		local:  NewLocalBus(),
		pubsub: ps,
		logger: common.NewLogger("[BUS] "),
	}

	b.wg.Add(1)
	go b.receive(ps.Channel())
	return b, nil
}

func (b *RedisBus) receive(ch <-chan *redis.Message) {
	defer b.wg.Done()

	for msg := range ch {
		topic := strings.TrimPrefix(msg.Channel, b.prefix)
		if err := b.local.Publish(context.Background(), topic, []byte(msg.Payload)); err != nil {
			b.logger.Printf("deliver %s: %v", topic, err)
		}
	}
}

func (b *RedisBus) Subscribe(topic string, sub Subscriber) {
	b.local.Subscribe(topic, sub)
}

func (b *RedisBus) Unsubscribe(topic string, sub Subscriber) {
	b.local.Unsubscribe(topic, sub)
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, b.prefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBus) Close() error {
	err := b.pubsub.Close()
	b.wg.Wait()
	_ = b.local.Close()
	return err
}
