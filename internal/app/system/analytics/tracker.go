package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	analyticsstore "github.com/dalemusser/retrohub/internal/app/store/analytics"
	"go.uber.org/zap"
)

// Modes accepted by New.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// ValidMode reports whether mode is one New accepts.
func ValidMode(mode string) bool {
	switch mode {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Sink receives flattened events.
type Sink interface {
	Send(ctx context.Context, r Record) error
}

// DefaultQueueSize bounds the records New holds for its background worker.
const DefaultQueueSize = 1024

// sendTimeout bounds one sink call made by the background worker.
const sendTimeout = 5 * time.Second

// Tracker dispatches events to its sinks. A nil *Tracker is a no-op.
//
// A tracker built with NewAsyncTracker queues records and delivers them from
// a single worker, so Track never waits on a sink. Records are dropped when
// the queue is full.
type Tracker struct {
	sinks []Sink
	log   *zap.Logger

	mu     sync.RWMutex
	queue  chan Record
	closed bool
	done   chan struct{}
}

// NewTracker builds a tracker that calls its sinks inline.
func NewTracker(logger *zap.Logger, sinks ...Sink) *Tracker {
	return &Tracker{sinks: sinks, log: logger}
}

// NewAsyncTracker builds a tracker that delivers through a queue of size
// records. Call Close to flush it.
func NewAsyncTracker(logger *zap.Logger, size int, sinks ...Sink) *Tracker {
	t := &Tracker{sinks: sinks, log: logger}
	if len(sinks) == 0 {
		return t
	}
	t.queue = make(chan Record, size)
	t.done = make(chan struct{})
	go t.drain()
	return t
}

// New builds an async tracker for a configured mode. store may be nil when
// mode does not need it.
func New(mode string, store *analyticsstore.Store, logger *zap.Logger) (*Tracker, error) {
	var sinks []Sink
	switch mode {
	case ModeAll:
		sinks = []Sink{ZapSink{Log: logger}, StoreSink{Store: store}}
	case ModeDB:
		sinks = []Sink{StoreSink{Store: store}}
	case ModeLog:
		sinks = []Sink{ZapSink{Log: logger}}
	case ModeOff:
	default:
		return nil, fmt.Errorf("unknown analytics mode %q", mode)
	}
	for _, s := range sinks {
		if ss, ok := s.(StoreSink); ok && ss.Store == nil {
			return nil, fmt.Errorf("analytics mode %q needs a store", mode)
		}
	}
	return NewAsyncTracker(logger, DefaultQueueSize, sinks...), nil
}

// Track sends ev to every sink. Sink failures are logged, never returned:
// analytics must not fail a mutation.
func (t *Tracker) Track(ctx context.Context, ev Event) {
	if t == nil || len(t.sinks) == 0 {
		return
	}
	r := Describe(ev)
	if t.queue == nil {
		t.send(ctx, r)
		return
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.queue <- r:
	default:
		t.log.Warn("analytics queue full; event dropped", zap.String("event", r.Name))
	}
}

// Close stops accepting events and waits until queued ones are delivered.
// It is safe to call more than once and on a nil or inline tracker.
func (t *Tracker) Close() {
	if t == nil || t.queue == nil {
		return
	}
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()
	<-t.done
}

func (t *Tracker) drain() {
	defer close(t.done)
	for r := range t.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		t.send(ctx, r)
		cancel()
	}
}

func (t *Tracker) send(ctx context.Context, r Record) {
	for _, s := range t.sinks {
		if err := s.Send(ctx, r); err != nil {
			t.log.Warn("analytics sink failed",
				zap.String("event", r.Name),
				zap.Error(err))
		}
	}
}

// ZapSink writes events as structured log lines.
type ZapSink struct {
	Log *zap.Logger
}

func (s ZapSink) Send(_ context.Context, r Record) error {
	fields := []zap.Field{
		zap.Bool("analytics", true),
		zap.String("event", r.Name),
	}
	if r.UserID != "" {
		fields = append(fields, zap.String("user_id", r.UserID))
	}
	if r.TeamID != "" {
		fields = append(fields, zap.String("team_id", r.TeamID))
	}
	if r.MeetingID != "" {
		fields = append(fields, zap.String("meeting_id", r.MeetingID))
	}
	for k, v := range r.Properties {
		fields = append(fields, zap.String("prop_"+k, v))
	}
	s.Log.Info("analytics event", fields...)
	return nil
}

// StoreSink persists events to the analytics_events collection.
type StoreSink struct {
	Store *analyticsstore.Store
}

func (s StoreSink) Send(ctx context.Context, r Record) error {
	return s.Store.Log(ctx, analyticsstore.Event{
		Name:       r.Name,
		UserID:     r.UserID,
		TeamID:     r.TeamID,
		MeetingID:  r.MeetingID,
		Properties: r.Properties,
	})
}

// MemorySink keeps records in memory. Used by tests.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

func (s *MemorySink) Send(_ context.Context, r Record) error {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
	return nil
}

// Records returns a copy of what has been sent so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// Names returns the event names sent so far, in order.
func (s *MemorySink) Names() []string {
	rs := s.Records()
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}
