// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"errors"
	"slices"

	"github.com/dalemusser/retrohub/internal/app/system/auth"
	"github.com/dalemusser/retrohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// IdentityOf returns the caller's user ID and a found flag.
// ok=true means the token names a user.
func IdentityOf(tok auth.Token) (userID string, ok bool) {
	if tok.UserID == "" {
		return "", false
	}
	return tok.UserID, true
}

// IsAuthenticated reports whether the token names a user.
func IsAuthenticated(tok auth.Token) bool {
	_, ok := IdentityOf(tok)
	return ok
}

// IsTeamMember reports whether teamID is one of the token's teams.
// It is a pure function of the token; membership changes take effect when
// a fresh token is issued.
func IsTeamMember(tok auth.Token, teamID string) bool {
	if !IsAuthenticated(tok) || teamID == "" {
		return false
	}
	return slices.Contains(tok.TeamIDs, teamID)
}

// LeadLookup reads a team member record by its composite ID.
type LeadLookup interface {
	GetByID(ctx context.Context, teamMemberID string) (models.TeamMember, error)
}

// IsTeamLead reports whether userID is the current, non-removed lead of teamID.
// A missing membership record is not an error; it yields false.
func IsTeamLead(ctx context.Context, lookup LeadLookup, userID, teamID string) (bool, error) {
	if userID == "" || teamID == "" {
		return false, nil
	}
	tm, err := lookup.GetByID(ctx, models.TeamMemberID(userID, teamID))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return tm.IsLead && tm.IsNotRemoved, nil
}
