package meetingops

import (
	"context"
	"fmt"

	"github.com/dalemusser/retrohub/internal/app/system/analytics"
	"github.com/dalemusser/retrohub/internal/app/system/apperr"
	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
)

// EndMeeting closes a meeting for good and cancels its pending stage timers.
// Facilitator only.
func (s *Service) EndMeeting(ctx context.Context, req Request, meetingID string) (EndMeetingPayload, error) {
	userID, err := authenticate(req)
	if err != nil {
		return EndMeetingPayload{}, err
	}
	meeting, err := s.loadTeamMeeting(ctx, req, userID, meetingID)
	if err != nil {
		return EndMeetingPayload{}, err
	}
	if meeting.FacilitatorUserID != userID {
		return EndMeetingPayload{}, apperr.Forbidden(userID, "Only the facilitator can end the meeting")
	}

	endedAt := s.now()
	var cancelled int64
	err = s.Tx.Run(ctx, func(ctx context.Context) error {
		if _, err := s.reloadOpenMeeting(ctx, req, userID, meeting.ID); err != nil {
			return err
		}
		ok, err := s.Meetings.End(ctx, meeting.ID, endedAt)
		if err != nil {
			return fmt.Errorf("end meeting: %w", err)
		}
		if !ok {
			return apperr.InvalidState(userID, "Meeting already ended")
		}
		cancelled, err = s.Jobs.DeleteByMeeting(ctx, meeting.ID)
		if err != nil {
			return fmt.Errorf("cancel scheduled jobs: %w", err)
		}
		req.Loader.ClearMeeting(meeting.ID)
		return nil
	})
	if err != nil {
		return EndMeetingPayload{}, err
	}

	payload := EndMeetingPayload{
		MeetingID: meeting.ID,
		TeamID:    meeting.TeamID,
		EndedAt:   endedAt,
	}
	publish(ctx, s, req, pubsub.Team, meeting.TeamID, TypeEndMeeting, payload)
	s.Analytics.Track(ctx, analytics.MeetingEnded{
		UserID:        userID,
		TeamID:        meeting.TeamID,
		MeetingID:     meeting.ID,
		JobsCancelled: cancelled,
	})
	return payload, nil
}
