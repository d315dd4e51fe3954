package meetingops

import (
	"context"
	"errors"
	"fmt"

	teammemberstore "github.com/dalemusser/retrohub/internal/app/store/teammembers"
	"github.com/dalemusser/retrohub/internal/app/system/analytics"
	"github.com/dalemusser/retrohub/internal/app/system/apperr"
	"github.com/dalemusser/retrohub/internal/app/system/authz"
	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
	"github.com/dalemusser/retrohub/internal/domain/models"
)

// PromoteToTeamLead hands the caller's lead role to another team member.
// The demote and promote commit together or not at all.
func (s *Service) PromoteToTeamLead(ctx context.Context, req Request, teamMemberID string) (PromoteToTeamLeadPayload, error) {
	userID, err := authenticate(req)
	if err != nil {
		return PromoteToTeamLeadPayload{}, err
	}

	newLeaderUserID, teamID, ok := models.ParseTeamMemberID(teamMemberID)
	if !ok {
		return PromoteToTeamLeadPayload{}, apperr.NotFound(userID, "Team member not found")
	}

	isLead, err := authz.IsTeamLead(ctx, s.TeamMembers, userID, teamID)
	if err != nil {
		return PromoteToTeamLeadPayload{}, fmt.Errorf("check team lead: %w", err)
	}
	if !isLead {
		return PromoteToTeamLeadPayload{}, apperr.Forbidden(userID, "Not the team leader")
	}

	myID := models.TeamMemberID(userID, teamID)
	if teamMemberID == myID {
		return PromoteToTeamLeadPayload{}, apperr.InvalidState(userID, "Already the team leader")
	}

	err = s.Tx.Run(ctx, func(ctx context.Context) error {
		target, err := s.TeamMembers.GetByID(ctx, teamMemberID)
		if err != nil {
			if isNotFound(err) {
				return apperr.NotFound(userID, "Team member not found")
			}
			return fmt.Errorf("load team member: %w", err)
		}
		if !target.IsNotRemoved {
			return apperr.NotFound(userID, "Team member not found")
		}

		err = s.TeamMembers.TransferLead(ctx, myID, teamMemberID, s.now())
		switch {
		case err == nil:
			return nil
		case errors.Is(err, teammemberstore.ErrLeadChanged), errors.Is(err, teammemberstore.ErrLeadConflict):
			return apperr.InvalidState(userID, "Team lead changed, try again")
		default:
			return fmt.Errorf("transfer lead: %w", err)
		}
	})
	if err != nil {
		return PromoteToTeamLeadPayload{}, err
	}

	payload := PromoteToTeamLeadPayload{
		TeamID:      teamID,
		OldLeaderID: myID,
		NewLeaderID: teamMemberID,
	}
	publish(ctx, s, req, pubsub.Team, teamID, TypePromoteToLead, payload)
	publish(ctx, s, req, pubsub.TeamMember, teamID, TypePromoteToLead, payload)
	publish(ctx, s, req, pubsub.Notification, newLeaderUserID, TypeNotifyPromoteToTeamLead, NotifyPromoteToTeamLead{
		TeamID:       teamID,
		TeamMemberID: teamMemberID,
		PromotedBy:   userID,
	})
	s.Analytics.Track(ctx, analytics.TeamLeadPromoted{
		UserID:      userID,
		TeamID:      teamID,
		OldLeaderID: myID,
		NewLeaderID: teamMemberID,
	})
	return payload, nil
}
