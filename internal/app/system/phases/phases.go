// Package phases evaluates and edits the stage state of meeting phases.
//
// All functions operate on the phase slice stored on a meeting. Functions that
// change state mutate the slice in place; callers persist it afterwards.
package phases

import "github.com/dalemusser/retrohub/internal/domain/models"

// FindPhase returns the first phase of the given type.
func FindPhase(phases []models.Phase, phaseType models.PhaseType) (*models.Phase, bool) {
	i := indexOf(phases, phaseType)
	if i < 0 {
		return nil, false
	}
	return &phases[i], true
}

// IsPhaseComplete reports whether the first phase of phaseType has at least one
// stage and every stage is complete. A missing phase is not complete.
func IsPhaseComplete(phaseType models.PhaseType, phases []models.Phase) bool {
	p, ok := FindPhase(phases, phaseType)
	if !ok || len(p.Stages) == 0 {
		return false
	}
	for _, s := range p.Stages {
		if !s.IsComplete {
			return false
		}
	}
	return true
}

// UnlockAllStagesForPhase sets the navigability of every stage in the target
// phase to unlock, and with cascade also every phase stored after it. It returns
// the IDs of the stages whose state actually changed, in stored order, or nil.
func UnlockAllStagesForPhase(phases []models.Phase, phaseType models.PhaseType, unlock, cascade bool) []string {
	start := indexOf(phases, phaseType)
	if start < 0 {
		return nil
	}
	end := start + 1
	if cascade {
		end = len(phases)
	}

	var changed []string
	for i := start; i < end; i++ {
		stages := phases[i].Stages
		for j := range stages {
			s := &stages[j]
			if s.IsNavigable == unlock && s.IsNavigableByFacilitator == unlock {
				continue
			}
			s.IsNavigable = unlock
			s.IsNavigableByFacilitator = unlock
			changed = append(changed, s.ID)
		}
	}
	return changed
}

// CompleteAllStagesForPhase marks every stage of the phase complete and returns
// the IDs that were not complete before.
func CompleteAllStagesForPhase(phases []models.Phase, phaseType models.PhaseType) []string {
	p, ok := FindPhase(phases, phaseType)
	if !ok {
		return nil
	}
	var changed []string
	for j := range p.Stages {
		if p.Stages[j].IsComplete {
			continue
		}
		p.Stages[j].IsComplete = true
		changed = append(changed, p.Stages[j].ID)
	}
	return changed
}

// NextPhaseType returns the type of the phase stored right after phaseType.
func NextPhaseType(phases []models.Phase, phaseType models.PhaseType) (models.PhaseType, bool) {
	i := indexOf(phases, phaseType)
	if i < 0 || i+1 >= len(phases) {
		return "", false
	}
	return phases[i+1].PhaseType, true
}

// FindStage returns the stage with stageID and the type of its phase.
func FindStage(phases []models.Phase, stageID string) (models.Stage, models.PhaseType, bool) {
	for _, p := range phases {
		for _, s := range p.Stages {
			if s.ID == stageID {
				return s, p.PhaseType, true
			}
		}
	}
	return models.Stage{}, "", false
}

func indexOf(phases []models.Phase, phaseType models.PhaseType) int {
	for i := range phases {
		if phases[i].PhaseType == phaseType {
			return i
		}
	}
	return -1
}
