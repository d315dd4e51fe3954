package reflectionstore_test

import (
	"errors"
	"testing"
	"time"

	reflectionstore "github.com/dalemusser/retrohub/internal/app/store/reflections"
	"github.com/dalemusser/retrohub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Deactivate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reflectionstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	r := fixtures.CreateReflection(ctx, "m1", "u1", "went well")

	ok, err := store.Deactivate(ctx, r.ID, time.Now().UTC())
	if err != nil || !ok {
		t.Fatalf("first Deactivate = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = store.Deactivate(ctx, r.ID, time.Now().UTC())
	if err != nil || ok {
		t.Fatalf("second Deactivate = (%v, %v), want (false, nil)", ok, err)
	}

	got, err := store.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.IsActive {
		t.Error("reflection still active")
	}
}

func TestStore_ListActiveByMeeting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reflectionstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	r1 := fixtures.CreateReflection(ctx, "m1", "u1", "one")
	r2 := fixtures.CreateReflection(ctx, "m1", "u1", "two")
	fixtures.CreateReflection(ctx, "m2", "u1", "elsewhere")
	if _, err := store.Deactivate(ctx, r1.ID, time.Now().UTC()); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	got, err := store.ListActiveByMeeting(ctx, "m1")
	if err != nil {
		t.Fatalf("ListActiveByMeeting failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != r2.ID {
		t.Errorf("got %+v, want only %s", got, r2.ID)
	}

	n, err := store.CountActiveByGroup(ctx, r1.ReflectionGroupID)
	if err != nil {
		t.Fatalf("CountActiveByGroup failed: %v", err)
	}
	if n != 0 {
		t.Errorf("active in group = %d, want 0", n)
	}
}

func TestStore_GetByID_Missing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reflectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByID(ctx, "nope"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("err = %v, want ErrNoDocuments", err)
	}
}
