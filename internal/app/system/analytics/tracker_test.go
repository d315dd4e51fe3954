package analytics

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	analyticsstore "github.com/dalemusser/retrohub/internal/app/store/analytics"
	"github.com/dalemusser/retrohub/internal/domain/models"
	"github.com/dalemusser/retrohub/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingSink struct{}

func (failingSink) Send(context.Context, Record) error { return errors.New("sink down") }

func TestDescribe(t *testing.T) {
	tests := []struct {
		ev    Event
		name  string
		props map[string]string
	}{
		{
			ReflectionRemoved{UserID: "u1", TeamID: "t1", MeetingID: "m1", ReflectionID: "r1", UnlockedStages: 2},
			"Reflection Removed",
			map[string]string{"reflectionId": "r1", "unlockedStages": "2"},
		},
		{
			TeamLeadPromoted{UserID: "u1", TeamID: "t1", OldLeaderID: "u1::t1", NewLeaderID: "u2::t1"},
			"Team Lead Promoted",
			map[string]string{"oldLeaderId": "u1::t1", "newLeaderId": "u2::t1"},
		},
		{
			PhaseCompleted{UserID: "u1", PhaseType: models.PhaseReflect, CompletedStages: 1},
			"Phase Completed",
			map[string]string{"phaseType": "REFLECT", "completedStages": "1"},
		},
		{
			StageTimerSet{UserID: "u1", StageID: "reflect-1", RunAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
			"Stage Timer Set",
			map[string]string{"stageId": "reflect-1", "runAt": "2026-05-01T12:00:00Z"},
		},
		{
			WebSocketDisconnected{UserID: "u1", SocketID: "s1", Subscription: "team", Duration: 2 * time.Second},
			"WebSocket Disconnected",
			map[string]string{"socketId": "s1", "subscription": "team", "duration": "2s"},
		},
	}
	for _, tt := range tests {
		r := Describe(tt.ev)
		if r.Name != tt.name {
			t.Errorf("Name = %q, want %q", r.Name, tt.name)
		}
		if !reflect.DeepEqual(r.Properties, tt.props) {
			t.Errorf("%s properties = %v, want %v", tt.name, r.Properties, tt.props)
		}
	}
}

func TestTracker_FansOutAndSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mem := &MemorySink{}
	tr := NewTracker(zap.New(core), failingSink{}, mem)

	tr.Track(context.Background(), MeetingEnded{UserID: "u1", MeetingID: "m1"})

	if got := mem.Names(); !reflect.DeepEqual(got, []string{"Meeting Ended"}) {
		t.Errorf("memory sink got %v", got)
	}
	if logs.FilterMessage("analytics sink failed").Len() != 1 {
		t.Error("expected sink failure to be logged")
	}
}

func TestTracker_NilIsNoop(t *testing.T) {
	var tr *Tracker
	tr.Track(context.Background(), ReflectionAdded{})
}

func TestNew_Modes(t *testing.T) {
	if _, err := New("sometimes", nil, zap.NewNop()); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := New(ModeDB, nil, zap.NewNop()); err == nil {
		t.Error("expected error for db mode without store")
	}
	tr, err := New(ModeOff, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("New(off) failed: %v", err)
	}
	tr.Track(context.Background(), ReflectionAdded{})
	tr.Close()
}

// blockingSink holds every Send until release is closed.
type blockingSink struct {
	release chan struct{}
	mem     MemorySink
}

func (s *blockingSink) Send(ctx context.Context, r Record) error {
	<-s.release
	return s.mem.Send(ctx, r)
}

func TestAsyncTracker_TrackDoesNotWaitOnSinks(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	tr := NewAsyncTracker(zap.NewNop(), 4, sink)

	returned := make(chan struct{})
	go func() {
		tr.Track(context.Background(), ReflectionAdded{UserID: "u1"})
		tr.Track(context.Background(), MeetingEnded{UserID: "u1"})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Track blocked on a slow sink")
	}

	close(sink.release)
	tr.Close()
	if got := sink.mem.Names(); !reflect.DeepEqual(got, []string{"Reflection Added", "Meeting Ended"}) {
		t.Errorf("delivered %v", got)
	}
}

func TestAsyncTracker_DropsWhenFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &blockingSink{release: make(chan struct{})}
	tr := NewAsyncTracker(zap.New(core), 1, sink)

	// The worker holds at most one record in Send and one sits in the queue,
	// so the fifth Track has nowhere to go.
	for i := 0; i < 5; i++ {
		tr.Track(context.Background(), ReflectionAdded{})
	}
	close(sink.release)
	tr.Close()

	if n := len(sink.mem.Records()); n < 1 || n > 2 {
		t.Errorf("delivered %d records, want 1 or 2", n)
	}
	if logs.FilterMessage("analytics queue full; event dropped").Len() == 0 {
		t.Error("expected dropped events to be logged")
	}
}

func TestAsyncTracker_TrackAfterClose(t *testing.T) {
	mem := &MemorySink{}
	tr := NewAsyncTracker(zap.NewNop(), 4, mem)
	tr.Close()
	tr.Close()

	tr.Track(context.Background(), ReflectionAdded{})
	if n := len(mem.Records()); n != 0 {
		t.Errorf("delivered %d records after Close, want 0", n)
	}
}

func TestStoreSink_Persists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := analyticsstore.New(db)
	tr, err := New(ModeDB, store, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	tr.Track(ctx, ReflectionAdded{UserID: "u1", TeamID: "t1", MeetingID: "m1", ReflectionID: "r1"})
	tr.Close()

	got, err := store.Query(ctx, analyticsstore.QueryFilter{MeetingID: "m1"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Reflection Added" || got[0].Properties["reflectionId"] != "r1" {
		t.Errorf("stored = %+v", got)
	}
}
