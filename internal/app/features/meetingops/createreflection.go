package meetingops

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/retrohub/internal/app/system/analytics"
	"github.com/dalemusser/retrohub/internal/app/system/apperr"
	"github.com/dalemusser/retrohub/internal/app/system/phases"
	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
	"github.com/dalemusser/retrohub/internal/domain/models"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// MaxReflectionLength caps reflection content, in runes, after sanitizing.
const MaxReflectionLength = 2000

var contentPolicy = bluemonday.StrictPolicy()

// SanitizeContent strips markup and surrounding whitespace.
func SanitizeContent(raw string) string {
	return strings.TrimSpace(contentPolicy.Sanitize(raw))
}

// CreateReflection adds a reflection, in a group of its own, to an open
// REFLECT phase.
func (s *Service) CreateReflection(ctx context.Context, req Request, meetingID, content string) (CreateReflectionPayload, error) {
	userID, err := authenticate(req)
	if err != nil {
		return CreateReflectionPayload{}, err
	}
	meeting, err := s.loadTeamMeeting(ctx, req, userID, meetingID)
	if err != nil {
		return CreateReflectionPayload{}, err
	}

	clean := SanitizeContent(content)
	if clean == "" {
		return CreateReflectionPayload{}, apperr.InvalidState(userID, "Reflection content is empty")
	}
	if utf8.RuneCountInString(clean) > MaxReflectionLength {
		return CreateReflectionPayload{}, apperr.InvalidState(userID, "Reflection content is too long")
	}

	groupID := uuid.NewString()
	reflectionID := uuid.NewString()
	err = s.Tx.Run(ctx, func(ctx context.Context) error {
		m, err := s.reloadOpenMeeting(ctx, req, userID, meeting.ID)
		if err != nil {
			return err
		}
		if phases.IsPhaseComplete(models.PhaseReflect, m.Phases) {
			return apperr.InvalidState(userID, "Meeting phase already completed")
		}

		now := s.now()
		if err := s.Groups.Create(ctx, models.ReflectionGroup{
			ID:        groupID,
			MeetingID: m.ID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		if err := s.Reflections.Create(ctx, models.Reflection{
			ID:                reflectionID,
			MeetingID:         m.ID,
			ReflectionGroupID: groupID,
			CreatorID:         userID,
			Content:           clean,
			IsActive:          true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}); err != nil {
			return fmt.Errorf("create reflection: %w", err)
		}
		req.Loader.ClearReflectionsByMeeting(m.ID)
		return nil
	})
	if err != nil {
		return CreateReflectionPayload{}, err
	}

	payload := CreateReflectionPayload{
		MeetingID:         meeting.ID,
		ReflectionID:      reflectionID,
		ReflectionGroupID: groupID,
	}
	publish(ctx, s, req, pubsub.Team, meeting.TeamID, TypeCreateReflection, payload)
	s.Analytics.Track(ctx, analytics.ReflectionAdded{
		UserID:       userID,
		TeamID:       meeting.TeamID,
		MeetingID:    meeting.ID,
		ReflectionID: reflectionID,
	})
	return payload, nil
}
