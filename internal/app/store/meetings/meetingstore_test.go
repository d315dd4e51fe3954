package meetingstore_test

import (
	"testing"
	"time"

	meetingstore "github.com/dalemusser/retrohub/internal/app/store/meetings"
	"github.com/dalemusser/retrohub/internal/app/system/phases"
	"github.com/dalemusser/retrohub/internal/domain/models"
	"github.com/dalemusser/retrohub/internal/testutil"
)

func TestStore_UpdatePhases(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := meetingstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m := fixtures.CreateMeeting(ctx, "t1", "u1")
	changed := phases.UnlockAllStagesForPhase(m.Phases, models.PhaseGroup, true, false)
	if len(changed) == 0 {
		t.Fatal("fixture GROUP phase should start locked")
	}

	ok, err := store.UpdatePhases(ctx, m.ID, m.Phases, time.Now().UTC())
	if err != nil || !ok {
		t.Fatalf("UpdatePhases = (%v, %v)", ok, err)
	}

	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	p, _ := phases.FindPhase(got.Phases, models.PhaseGroup)
	for _, s := range p.Stages {
		if !s.IsNavigable {
			t.Errorf("stage %s not persisted as unlocked", s.ID)
		}
	}
}

func TestStore_End(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := meetingstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m := fixtures.CreateMeeting(ctx, "t1", "u1")
	now := time.Now().UTC()

	ok, err := store.End(ctx, m.ID, now)
	if err != nil || !ok {
		t.Fatalf("first End = (%v, %v)", ok, err)
	}
	ok, err = store.End(ctx, m.ID, now)
	if err != nil || ok {
		t.Fatalf("second End = (%v, %v), want (false, nil)", ok, err)
	}

	got, _ := store.GetByID(ctx, m.ID)
	if !got.IsEnded() {
		t.Error("meeting not ended")
	}

	// Ended meetings are read-only.
	ok, err = store.UpdatePhases(ctx, m.ID, got.Phases, now)
	if err != nil || ok {
		t.Errorf("UpdatePhases on ended meeting = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestStore_Touch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := meetingstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m := fixtures.CreateMeeting(ctx, "t1", "u1")
	at := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)

	ok, err := store.Touch(ctx, m.ID, at)
	if err != nil || !ok {
		t.Fatalf("Touch = (%v, %v)", ok, err)
	}
	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Errorf("updated_at = %v, want %v", got.UpdatedAt, at)
	}

	if _, err := store.End(ctx, m.ID, at); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if ok, err := store.Touch(ctx, m.ID, at); err != nil || ok {
		t.Errorf("Touch on ended meeting = (%v, %v), want (false, nil)", ok, err)
	}
	if ok, err := store.Touch(ctx, "missing", at); err != nil || ok {
		t.Errorf("Touch on missing meeting = (%v, %v), want (false, nil)", ok, err)
	}
}
