package dataloader

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/retrohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

type countingStore struct {
	meetings    map[string]models.Meeting
	reflections map[string][]models.Reflection
	meetingHits int
	listHits    int
}

func (s *countingStore) GetByID(_ context.Context, id string) (models.Meeting, error) {
	s.meetingHits++
	m, ok := s.meetings[id]
	if !ok {
		return models.Meeting{}, mongo.ErrNoDocuments
	}
	return m, nil
}

func (s *countingStore) ListActiveByMeeting(_ context.Context, meetingID string) ([]models.Reflection, error) {
	s.listHits++
	return s.reflections[meetingID], nil
}

func newStore() *countingStore {
	return &countingStore{
		meetings: map[string]models.Meeting{
			"m1": {ID: "m1", TeamID: "t1", Phases: []models.Phase{
				{PhaseType: models.PhaseGroup, Stages: []models.Stage{{ID: "g1"}}},
			}},
		},
		reflections: map[string][]models.Reflection{
			"m1": {{ID: "r1", MeetingID: "m1", IsActive: true}},
		},
	}
}

func TestMeeting_CachedPerLoader(t *testing.T) {
	s := newStore()
	l := New(s, s)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Meeting(ctx, "m1"); err != nil {
			t.Fatalf("Meeting failed: %v", err)
		}
	}
	if s.meetingHits != 1 {
		t.Errorf("store hits = %d, want 1", s.meetingHits)
	}

	l.ClearMeeting("m1")
	if _, err := l.Meeting(ctx, "m1"); err != nil {
		t.Fatalf("Meeting failed: %v", err)
	}
	if s.meetingHits != 2 {
		t.Errorf("store hits after clear = %d, want 2", s.meetingHits)
	}

	// A fresh loader never sees another request's cache.
	if _, err := New(s, s).Meeting(ctx, "m1"); err != nil {
		t.Fatalf("Meeting failed: %v", err)
	}
	if s.meetingHits != 3 {
		t.Errorf("store hits for new loader = %d, want 3", s.meetingHits)
	}
}

func TestMeeting_ReturnsIndependentCopies(t *testing.T) {
	s := newStore()
	l := New(s, s)
	ctx := context.Background()

	m, _ := l.Meeting(ctx, "m1")
	m.Phases[0].Stages[0].IsNavigable = true

	again, _ := l.Meeting(ctx, "m1")
	if again.Phases[0].Stages[0].IsNavigable {
		t.Error("edit to a returned meeting leaked into the cache")
	}
}

func TestMeeting_ErrorsNotCached(t *testing.T) {
	s := newStore()
	l := New(s, s)
	ctx := context.Background()

	if _, err := l.Meeting(ctx, "missing"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("err = %v, want ErrNoDocuments", err)
	}
	s.meetings["missing"] = models.Meeting{ID: "missing"}
	if _, err := l.Meeting(ctx, "missing"); err != nil {
		t.Errorf("second read err = %v", err)
	}
}

func TestActiveReflectionsByMeeting(t *testing.T) {
	s := newStore()
	l := New(s, s)
	ctx := context.Background()

	rs, err := l.ActiveReflectionsByMeeting(ctx, "m1")
	if err != nil || len(rs) != 1 {
		t.Fatalf("got %v, %v", rs, err)
	}
	_, _ = l.ActiveReflectionsByMeeting(ctx, "m1")
	if s.listHits != 1 {
		t.Errorf("list hits = %d, want 1", s.listHits)
	}

	s.reflections["m1"] = nil
	l.ClearReflectionsByMeeting("m1")
	rs, _ = l.ActiveReflectionsByMeeting(ctx, "m1")
	if len(rs) != 0 {
		t.Errorf("after clear got %d reflections, want 0", len(rs))
	}
}

func TestShare_StablePerLoader(t *testing.T) {
	s := newStore()
	a, b := New(s, s), New(s, s)

	if a.Share() == "" {
		t.Fatal("empty operation id")
	}
	if a.Share() != a.Share() {
		t.Error("operation id changed within one loader")
	}
	if a.Share() == b.Share() {
		t.Error("two loaders share an operation id")
	}
}
