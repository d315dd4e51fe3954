package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisPrefix = "retrohub:"

// RedisBroker relays envelopes through Redis PUBLISH/SUBSCRIBE so that every
// instance behind a load balancer sees every event.
type RedisBroker struct {
	client    *redis.Client
	ownClient bool
	prefix    string
	log       *zap.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewRedisBroker connects to redisURL and verifies the connection.
func NewRedisBroker(redisURL string, logger *zap.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	b := NewRedisBrokerWithClient(client, logger)
	b.ownClient = true
	return b, nil
}

// NewRedisBrokerWithClient wraps an existing client. Close leaves the client open.
func NewRedisBrokerWithClient(client *redis.Client, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		prefix: redisPrefix,
		log:    logger,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Client exposes the underlying client for health checks.
func (b *RedisBroker) Client() *redis.Client { return b.client }

func (b *RedisBroker) key(channel string) string { return b.prefix + channel }

func (b *RedisBroker) Publish(ctx context.Context, channel string, env Envelope) error {
	if channel == "" {
		return ErrNoChannelID
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	env.Channel = channel
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.key(channel), data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns once Redis has acknowledged the subscription, so events
// published afterwards are guaranteed to reach it.
func (b *RedisBroker) Subscribe(ctx context.Context, channels []string, filter Filter) (*Subscription, error) {
	if err := checkSubscribe(channels, filter); err != nil {
		return nil, err
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	keys := make([]string, len(channels))
	for i, ch := range channels {
		keys[i] = b.key(ch)
	}
	ps := b.client.Subscribe(ctx, keys...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	s := newSubscription(filter)
	s.onClose = func() {
		_ = ps.Close()
		b.mu.Lock()
		delete(b.subs, s)
		b.mu.Unlock()
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	msgs := ps.Channel()
	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					s.Close()
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.log.Warn("dropping malformed envelope",
						zap.String("channel", msg.Channel),
						zap.Error(err))
					continue
				}
				s.deliver(env)
			case <-ctx.Done():
				s.Close()
				return
			case <-s.done:
				return
			}
		}
	}()
	return s, nil
}

// Close ends every subscription opened through b.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	if b.ownClient {
		return b.client.Close()
	}
	return nil
}
