// internal/domain/models/teammember.go
package models

import (
	"strings"
	"time"
)

const teamMemberSep = "::"

// TeamMember links a user to a team. The ID is "<userId>::<teamId>".
// At most one non-removed member per team has IsLead set.
type TeamMember struct {
	ID           string    `bson:"_id" json:"id"`
	TeamID       string    `bson:"team_id" json:"team_id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	IsLead       bool      `bson:"is_lead" json:"is_lead"`
	IsNotRemoved bool      `bson:"is_not_removed" json:"is_not_removed"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// TeamMemberID builds the composite team member ID.
func TeamMemberID(userID, teamID string) string {
	return userID + teamMemberSep + teamID
}

// ParseTeamMemberID splits a composite ID into its user and team parts.
func ParseTeamMemberID(id string) (userID, teamID string, ok bool) {
	userID, teamID, ok = strings.Cut(id, teamMemberSep)
	if !ok || userID == "" || teamID == "" {
		return "", "", false
	}
	return userID, teamID, true
}
