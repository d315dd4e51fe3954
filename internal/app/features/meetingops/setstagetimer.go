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
	"github.com/google/uuid"
)

// SetStageTimer schedules the end of a stage's time limit, replacing any
// timer already set on that stage. When it fires, the stage timer worker
// notifies the facilitator. Facilitator only.
func (s *Service) SetStageTimer(ctx context.Context, req Request, meetingID, stageID string, runAt time.Time) (SetStageTimerPayload, error) {
	userID, err := authenticate(req)
	if err != nil {
		return SetStageTimerPayload{}, err
	}
	meeting, err := s.loadTeamMeeting(ctx, req, userID, meetingID)
	if err != nil {
		return SetStageTimerPayload{}, err
	}
	if meeting.FacilitatorUserID != userID {
		return SetStageTimerPayload{}, apperr.Forbidden(userID, "Only the facilitator can set a stage timer")
	}
	now := s.now()
	runAt = runAt.UTC()
	if !runAt.After(now) {
		return SetStageTimerPayload{}, apperr.InvalidState(userID, "Time limit must be in the future")
	}

	job := models.ScheduledJob{
		ID:        uuid.NewString(),
		Type:      models.JobStageTimeLimitEnd,
		MeetingID: meeting.ID,
		StageID:   stageID,
		RunAt:     runAt,
	}
	var replaced int64
	err = s.Tx.Run(ctx, func(ctx context.Context) error {
		m, err := s.reloadOpenMeeting(ctx, req, userID, meeting.ID)
		if err != nil {
			return err
		}
		stage, _, ok := phases.FindStage(m.Phases, stageID)
		if !ok {
			return apperr.NotFound(userID, "Stage not found")
		}
		if stage.IsComplete {
			return apperr.InvalidState(userID, "Stage already completed")
		}

		// Writing the meeting makes this conflict with a concurrent EndMeeting.
		ok, err = s.Meetings.Touch(ctx, m.ID, now)
		if err != nil {
			return fmt.Errorf("touch meeting: %w", err)
		}
		if !ok {
			return apperr.InvalidState(userID, "Meeting already ended")
		}
		replaced, err = s.Jobs.DeleteByStage(ctx, m.ID, stageID)
		if err != nil {
			return fmt.Errorf("cancel stage timer: %w", err)
		}
		if _, err := s.Jobs.Create(ctx, job); err != nil {
			return fmt.Errorf("schedule stage timer: %w", err)
		}
		return nil
	})
	if err != nil {
		return SetStageTimerPayload{}, err
	}

	payload := SetStageTimerPayload{
		MeetingID: meeting.ID,
		StageID:   stageID,
		JobID:     job.ID,
		RunAt:     runAt,
		Replaced:  replaced > 0,
	}
	publish(ctx, s, req, pubsub.Team, meeting.TeamID, TypeSetStageTimer, payload)
	s.Analytics.Track(ctx, analytics.StageTimerSet{
		UserID:    userID,
		TeamID:    meeting.TeamID,
		MeetingID: meeting.ID,
		StageID:   stageID,
		RunAt:     runAt,
	})
	return payload, nil
}
