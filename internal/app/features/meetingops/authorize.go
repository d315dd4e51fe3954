package meetingops

import (
	"github.com/dalemusser/retrohub/internal/app/system/apperr"
	"github.com/dalemusser/retrohub/internal/app/system/authz"
)

func authenticate(req Request) (string, error) {
	userID, ok := authz.IdentityOf(req.Token)
	if !ok {
		return "", apperr.Unauthenticated("Not authenticated")
	}
	return userID, nil
}

func authzTeamMember(req Request, teamID string) bool {
	return authz.IsTeamMember(req.Token, teamID)
}
