package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultTopic is the Redis pub/sub channel shared by every shop process.
const DefaultTopic = "gmshop:events"

// RedisBus carries events over Redis pub/sub so requesters and the
// authority can run in separate processes.
type RedisBus struct {
	client *redis.Client
	topic  string
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[*redisSubscription]struct{}
	closed bool
}

// NewRedisBus builds a bus on the given topic; an empty topic uses DefaultTopic.
func NewRedisBus(client *redis.Client, topic string, logger *slog.Logger) *RedisBus {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{client: client, topic: topic, logger: logger, subs: make(map[*redisSubscription]struct{})}
}

// Publish encodes evt as JSON and publishes it.
func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.topic, raw).Err()
}

// Subscribe opens a dedicated pub/sub connection for handler. It returns
// once Redis has confirmed the subscription.
func (b *RedisBus) Subscribe(handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	ps := b.client.Subscribe(ctx, b.topic)
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSubscription{bus: b, pubsub: ps, cancel: cancel, done: make(chan struct{})}
	b.subs[sub] = struct{}{}
	go sub.loop(ctx, handler, b.logger)
	return sub, nil
}

// Close ends every subscription.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := make([]*redisSubscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	return nil
}

type redisSubscription struct {
	bus    *RedisBus
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) loop(ctx context.Context, handler Handler, logger *slog.Logger) {
	defer close(s.done)
	for msg := range s.pubsub.Channel() {
		var evt Event
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			logger.Warn("dropping malformed event", slog.Any("error", err))
			continue
		}
		handler(ctx, evt)
	}
}

func (s *redisSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
		<-s.done
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
	})
	return err
}
