package phases

import (
	"reflect"
	"testing"

	"github.com/dalemusser/retrohub/internal/domain/models"
)

func retroPhases() []models.Phase {
	return []models.Phase{
		{PhaseType: models.PhaseReflect, Stages: []models.Stage{
			{ID: "r1", IsNavigable: true, IsNavigableByFacilitator: true},
		}},
		{PhaseType: models.PhaseGroup, Stages: []models.Stage{
			{ID: "g1"}, {ID: "g2", IsNavigable: true}, {ID: "g3"},
		}},
		{PhaseType: models.PhaseVote, Stages: []models.Stage{
			{ID: "v1"},
		}},
	}
}

func TestIsPhaseComplete(t *testing.T) {
	tests := []struct {
		name   string
		phases []models.Phase
		pt     models.PhaseType
		want   bool
	}{
		{"missing phase", retroPhases(), models.PhaseDiscuss, false},
		{"incomplete", retroPhases(), models.PhaseReflect, false},
		{"no stages", []models.Phase{{PhaseType: models.PhaseReflect}}, models.PhaseReflect, false},
		{"all complete", []models.Phase{{PhaseType: models.PhaseReflect, Stages: []models.Stage{
			{ID: "a", IsComplete: true}, {ID: "b", IsComplete: true},
		}}}, models.PhaseReflect, true},
		{"first match wins", []models.Phase{
			{PhaseType: models.PhaseReflect, Stages: []models.Stage{{ID: "a"}}},
			{PhaseType: models.PhaseReflect, Stages: []models.Stage{{ID: "b", IsComplete: true}}},
		}, models.PhaseReflect, false},
		{"nil phases", nil, models.PhaseReflect, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPhaseComplete(tt.pt, tt.phases); got != tt.want {
				t.Errorf("IsPhaseComplete = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnlockAllStagesForPhase_ReturnsChangedOnly(t *testing.T) {
	ps := retroPhases()

	got := UnlockAllStagesForPhase(ps, models.PhaseGroup, true, false)
	// g2 is navigable but not by facilitator, so it still changes.
	want := []string{"g1", "g2", "g3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("changed = %v, want %v", got, want)
	}
	for _, s := range ps[1].Stages {
		if !s.IsNavigable || !s.IsNavigableByFacilitator {
			t.Errorf("stage %s not unlocked", s.ID)
		}
	}
	if ps[2].Stages[0].IsNavigable {
		t.Error("VOTE stage unlocked without cascade")
	}
}

func TestUnlockAllStagesForPhase_Idempotent(t *testing.T) {
	ps := retroPhases()
	if first := UnlockAllStagesForPhase(ps, models.PhaseGroup, true, false); len(first) == 0 {
		t.Fatal("first call changed nothing")
	}
	if second := UnlockAllStagesForPhase(ps, models.PhaseGroup, true, false); len(second) != 0 {
		t.Errorf("second call changed %v, want none", second)
	}
}

func TestUnlockAllStagesForPhase_Cascade(t *testing.T) {
	ps := retroPhases()
	got := UnlockAllStagesForPhase(ps, models.PhaseGroup, true, true)
	want := []string{"g1", "g2", "g3", "v1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("changed = %v, want %v", got, want)
	}
	if !ps[0].Stages[0].IsNavigable {
		t.Error("cascade must not touch earlier phases")
	}
}

func TestUnlockAllStagesForPhase_Lock(t *testing.T) {
	ps := retroPhases()
	got := UnlockAllStagesForPhase(ps, models.PhaseReflect, false, false)
	if !reflect.DeepEqual(got, []string{"r1"}) {
		t.Errorf("changed = %v, want [r1]", got)
	}
}

func TestUnlockAllStagesForPhase_MissingPhase(t *testing.T) {
	if got := UnlockAllStagesForPhase(retroPhases(), models.PhaseTeamHealth, true, true); got != nil {
		t.Errorf("changed = %v, want nil", got)
	}
}

func TestCompleteAllStagesForPhase(t *testing.T) {
	ps := retroPhases()
	ps[1].Stages[0].IsComplete = true

	got := CompleteAllStagesForPhase(ps, models.PhaseGroup)
	if !reflect.DeepEqual(got, []string{"g2", "g3"}) {
		t.Errorf("completed = %v, want [g2 g3]", got)
	}
	if !IsPhaseComplete(models.PhaseGroup, ps) {
		t.Error("GROUP should be complete")
	}
}

func TestNextPhaseType(t *testing.T) {
	ps := retroPhases()
	if next, ok := NextPhaseType(ps, models.PhaseReflect); !ok || next != models.PhaseGroup {
		t.Errorf("NextPhaseType(REFLECT) = %q, %v", next, ok)
	}
	if _, ok := NextPhaseType(ps, models.PhaseVote); ok {
		t.Error("last phase should have no next")
	}
}

func TestFindStage(t *testing.T) {
	ps := retroPhases()

	s, pt, ok := FindStage(ps, "g2")
	if !ok || s.ID != "g2" || !s.IsNavigable || pt != models.PhaseGroup {
		t.Errorf("FindStage(g2) = %+v, %q, %v", s, pt, ok)
	}
	if _, _, ok := FindStage(ps, "x9"); ok {
		t.Error("FindStage found a stage that does not exist")
	}
}
