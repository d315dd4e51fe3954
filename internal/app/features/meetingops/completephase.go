package meetingops

import (
	"context"
	"fmt"

	"github.com/dalemusser/retrohub/internal/app/system/analytics"
	"github.com/dalemusser/retrohub/internal/app/system/apperr"
	"github.com/dalemusser/retrohub/internal/app/system/phases"
	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
	"github.com/dalemusser/retrohub/internal/domain/models"
)

// CompletePhase marks every stage of a phase complete and unlocks the phase
// that follows it. Facilitator only.
func (s *Service) CompletePhase(ctx context.Context, req Request, meetingID string, phaseType models.PhaseType) (CompletePhasePayload, error) {
	userID, err := authenticate(req)
	if err != nil {
		return CompletePhasePayload{}, err
	}
	meeting, err := s.loadTeamMeeting(ctx, req, userID, meetingID)
	if err != nil {
		return CompletePhasePayload{}, err
	}
	if meeting.FacilitatorUserID != userID {
		return CompletePhasePayload{}, apperr.Forbidden(userID, "Only the facilitator can complete a phase")
	}
	if !phaseType.Valid() {
		return CompletePhasePayload{}, apperr.NotFound(userID, "Phase not found")
	}

	var completed, unlocked []string
	err = s.Tx.Run(ctx, func(ctx context.Context) error {
		completed, unlocked = nil, nil

		m, err := s.reloadOpenMeeting(ctx, req, userID, meeting.ID)
		if err != nil {
			return err
		}
		if _, ok := phases.FindPhase(m.Phases, phaseType); !ok {
			return apperr.NotFound(userID, "Phase not found")
		}
		if phases.IsPhaseComplete(phaseType, m.Phases) {
			return apperr.InvalidState(userID, "Meeting phase already completed")
		}

		completed = phases.CompleteAllStagesForPhase(m.Phases, phaseType)
		if next, ok := phases.NextPhaseType(m.Phases, phaseType); ok {
			unlocked = phases.UnlockAllStagesForPhase(m.Phases, next, true, false)
		}

		ok, err := s.Meetings.UpdatePhases(ctx, m.ID, m.Phases, s.now())
		if err != nil {
			return fmt.Errorf("update phases: %w", err)
		}
		if !ok {
			return apperr.InvalidState(userID, "Meeting already ended")
		}
		req.Loader.ClearMeeting(m.ID)
		return nil
	})
	if err != nil {
		return CompletePhasePayload{}, err
	}

	payload := CompletePhasePayload{
		MeetingID:         meeting.ID,
		PhaseType:         phaseType,
		CompletedStageIDs: completed,
		UnlockedStageIDs:  unlocked,
	}
	publish(ctx, s, req, pubsub.Team, meeting.TeamID, TypeCompletePhase, payload)
	s.Analytics.Track(ctx, analytics.PhaseCompleted{
		UserID:          userID,
		TeamID:          meeting.TeamID,
		MeetingID:       meeting.ID,
		PhaseType:       phaseType,
		CompletedStages: len(completed),
	})
	return payload, nil
}
