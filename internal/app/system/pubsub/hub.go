package pubsub

import (
	"context"
	"sync"
)

// Hub is the in-process Broker. It serves a single instance; use RedisBroker
// when several instances share subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Publish delivers env to every subscriber of channel. Deliveries for one
// channel happen under the hub lock, so subscribers see publish order.
func (h *Hub) Publish(_ context.Context, channel string, env Envelope) error {
	if channel == "" {
		return ErrNoChannelID
	}
	env.Channel = channel

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for s := range h.subs[channel] {
		s.deliver(env)
	}
	return nil
}

// Subscribe registers a subscription on channels. It ends when ctx is done or
// Close is called.
func (h *Hub) Subscribe(ctx context.Context, channels []string, filter Filter) (*Subscription, error) {
	if err := checkSubscribe(channels, filter); err != nil {
		return nil, err
	}

	s := newSubscription(filter)
	s.onClose = func() { h.remove(s, channels) }

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.Close()
		return nil, ErrClosed
	}
	for _, ch := range channels {
		set, ok := h.subs[ch]
		if !ok {
			set = make(map[*Subscription]struct{})
			h.subs[ch] = set
		}
		set[s] = struct{}{}
	}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

func (h *Hub) remove(s *Subscription, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		if set, ok := h.subs[ch]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, ch)
			}
		}
	}
}

// Close ends every subscription and rejects further use.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var all []*Subscription
	seen := make(map[*Subscription]struct{})
	for _, set := range h.subs {
		for s := range set {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				all = append(all, s)
			}
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	return nil
}

// SubscriberCount reports how many subscriptions listen on channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[channel])
}
