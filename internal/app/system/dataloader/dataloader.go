// Package dataloader caches record reads for the lifetime of one request.
//
// A Loader is created per mutation or per subscription resolve, passed down
// explicitly, and dropped when the request ends. Entries are cloned on the
// way out so callers may edit what they get back.
package dataloader

import (
	"context"
	"sync"

	"github.com/dalemusser/retrohub/internal/domain/models"
	"github.com/google/uuid"
)

// MeetingGetter loads one meeting.
type MeetingGetter interface {
	GetByID(ctx context.Context, id string) (models.Meeting, error)
}

// ReflectionLister lists the active reflections of a meeting.
type ReflectionLister interface {
	ListActiveByMeeting(ctx context.Context, meetingID string) ([]models.Reflection, error)
}

// Loader is a request-scoped read cache.
type Loader struct {
	meetings    MeetingGetter
	reflections ReflectionLister

	mu          sync.Mutex
	meetingByID map[string]models.Meeting
	activeByMtg map[string][]models.Reflection
	operationID string
}

func New(meetings MeetingGetter, reflections ReflectionLister) *Loader {
	return &Loader{
		meetings:    meetings,
		reflections: reflections,
		meetingByID: make(map[string]models.Meeting),
		activeByMtg: make(map[string][]models.Reflection),
	}
}

// Share returns the operation ID for this request, generating it on first use.
// Every event published while handling the request carries it.
func (l *Loader) Share() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.operationID == "" {
		l.operationID = uuid.NewString()
	}
	return l.operationID
}

// Meeting returns the meeting with id, reading the store at most once.
// Errors are not cached.
func (l *Loader) Meeting(ctx context.Context, id string) (models.Meeting, error) {
	l.mu.Lock()
	m, ok := l.meetingByID[id]
	l.mu.Unlock()
	if ok {
		return m.Clone(), nil
	}

	m, err := l.meetings.GetByID(ctx, id)
	if err != nil {
		return models.Meeting{}, err
	}
	l.mu.Lock()
	l.meetingByID[id] = m
	l.mu.Unlock()
	return m.Clone(), nil
}

// ActiveReflectionsByMeeting returns the meeting's active reflections.
func (l *Loader) ActiveReflectionsByMeeting(ctx context.Context, meetingID string) ([]models.Reflection, error) {
	l.mu.Lock()
	rs, ok := l.activeByMtg[meetingID]
	l.mu.Unlock()
	if ok {
		return append([]models.Reflection(nil), rs...), nil
	}

	rs, err := l.reflections.ListActiveByMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.activeByMtg[meetingID] = rs
	l.mu.Unlock()
	return append([]models.Reflection(nil), rs...), nil
}

// ClearMeeting drops the cached meeting so the next read hits the store.
func (l *Loader) ClearMeeting(id string) {
	l.mu.Lock()
	delete(l.meetingByID, id)
	l.mu.Unlock()
}

// ClearReflectionsByMeeting drops the cached reflection list for a meeting.
func (l *Loader) ClearReflectionsByMeeting(meetingID string) {
	l.mu.Lock()
	delete(l.activeByMtg, meetingID)
	l.mu.Unlock()
}
