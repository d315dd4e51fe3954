package pubsub

import "sync"

// Subscription is a live, filtered stream of envelopes. Delivery never blocks
// the publisher: envelopes queue per subscriber and drain into C in order.
type Subscription struct {
	out    chan Envelope
	filter Filter

	mu      sync.Mutex
	queue   []Envelope
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
	onClose func()
}

func newSubscription(filter Filter) *Subscription {
	s := &Subscription{
		out:    make(chan Envelope),
		filter: filter,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

// C returns the stream. It is closed after Close.
func (s *Subscription) C() <-chan Envelope { return s.out }

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// deliver queues env if the filter accepts it.
func (s *Subscription) deliver(env Envelope) {
	if !s.filter(env) {
		return
	}
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return
	default:
	}
	s.queue = append(s.queue, env)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, env := range batch {
			select {
			case s.out <- env:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
