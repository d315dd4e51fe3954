package meetingops

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/retrohub/internal/app/system/analytics"
	"github.com/dalemusser/retrohub/internal/app/system/apperr"
	"github.com/dalemusser/retrohub/internal/app/system/phases"
	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
	"github.com/dalemusser/retrohub/internal/domain/models"
)

// RemoveReflection soft-deletes one of the caller's reflections. When it was
// the meeting's last active reflection, the GROUP phase is unlocked.
func (s *Service) RemoveReflection(ctx context.Context, req Request, reflectionID string) (RemoveReflectionPayload, error) {
	userID, err := authenticate(req)
	if err != nil {
		return RemoveReflectionPayload{}, err
	}

	refl, err := s.Reflections.GetByID(ctx, reflectionID)
	if err != nil {
		if isNotFound(err) {
			return RemoveReflectionPayload{}, apperr.NotFound(userID, "Reflection not found")
		}
		return RemoveReflectionPayload{}, fmt.Errorf("load reflection %s: %w", reflectionID, err)
	}
	if !refl.IsActive {
		return RemoveReflectionPayload{}, apperr.NotFound(userID, "Reflection not found")
	}
	if refl.CreatorID != userID {
		return RemoveReflectionPayload{}, apperr.Forbidden(userID, "Only the author can remove a reflection")
	}

	meeting, err := s.loadTeamMeeting(ctx, req, userID, refl.MeetingID)
	if err != nil {
		return RemoveReflectionPayload{}, err
	}

	var unlocked []string
	err = s.Tx.Run(ctx, func(ctx context.Context) error {
		unlocked = nil

		m, err := s.reloadOpenMeeting(ctx, req, userID, meeting.ID)
		if err != nil {
			return err
		}
		if phases.IsPhaseComplete(models.PhaseReflect, m.Phases) {
			return apperr.InvalidState(userID, "Meeting phase already completed")
		}

		// Every removal writes the meeting, so two removals racing for the
		// last reflections conflict instead of each seeing the other's
		// reflection as still active.
		now := s.now()
		ok, err := s.Meetings.Touch(ctx, m.ID, now)
		if err != nil {
			return fmt.Errorf("touch meeting: %w", err)
		}
		if !ok {
			return apperr.InvalidState(userID, "Meeting already ended")
		}
		ok, err = s.Reflections.Deactivate(ctx, refl.ID, now)
		if err != nil {
			return fmt.Errorf("deactivate reflection: %w", err)
		}
		if !ok {
			return apperr.NotFound(userID, "Reflection not found")
		}
		if err := s.retireEmptyGroup(ctx, refl.ReflectionGroupID, now); err != nil {
			return err
		}

		req.Loader.ClearReflectionsByMeeting(m.ID)
		remaining, err := req.Loader.ActiveReflectionsByMeeting(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("list reflections: %w", err)
		}
		if len(remaining) > 0 {
			return nil
		}

		unlocked = phases.UnlockAllStagesForPhase(m.Phases, models.PhaseGroup, true, false)
		if len(unlocked) == 0 {
			return nil
		}
		ok, err = s.Meetings.UpdatePhases(ctx, m.ID, m.Phases, now)
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
		return RemoveReflectionPayload{}, err
	}

	payload := RemoveReflectionPayload{
		MeetingID:        meeting.ID,
		ReflectionID:     refl.ID,
		UnlockedStageIDs: unlocked,
	}
	publish(ctx, s, req, pubsub.Team, meeting.TeamID, TypeRemoveReflection, payload)
	s.Analytics.Track(ctx, analytics.ReflectionRemoved{
		UserID:         userID,
		TeamID:         meeting.TeamID,
		MeetingID:      meeting.ID,
		ReflectionID:   refl.ID,
		UnlockedStages: len(unlocked),
	})
	return payload, nil
}

// retireEmptyGroup deactivates a reflection group once nothing active is left in it.
func (s *Service) retireEmptyGroup(ctx context.Context, groupID string, at time.Time) error {
	if groupID == "" {
		return nil
	}
	n, err := s.Reflections.CountActiveByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("count group reflections: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Groups.Deactivate(ctx, groupID, at); err != nil {
		return fmt.Errorf("deactivate group: %w", err)
	}
	return nil
}
