// internal/domain/models/meeting.go
package models

import "time"

// PhaseType names one section of a retrospective meeting.
type PhaseType string

const (
	PhaseCheckIn    PhaseType = "CHECKIN"
	PhaseReflect    PhaseType = "REFLECT"
	PhaseGroup      PhaseType = "GROUP"
	PhaseVote       PhaseType = "VOTE"
	PhaseDiscuss    PhaseType = "DISCUSS"
	PhaseTeamHealth PhaseType = "TEAM_HEALTH"
)

// AllPhaseTypes lists the phase types in the order a retrospective runs them.
var AllPhaseTypes = []PhaseType{
	PhaseCheckIn, PhaseReflect, PhaseGroup, PhaseVote, PhaseDiscuss, PhaseTeamHealth,
}

// Valid reports whether p is one of the known phase types.
func (p PhaseType) Valid() bool {
	for _, t := range AllPhaseTypes {
		if t == p {
			return true
		}
	}
	return false
}

// Stage is a navigable step inside a phase. A stage is locked when IsNavigable is false.
type Stage struct {
	ID                       string `bson:"id" json:"id"`
	IsComplete               bool   `bson:"is_complete" json:"is_complete"`
	IsNavigable              bool   `bson:"is_navigable" json:"is_navigable"`
	IsNavigableByFacilitator bool   `bson:"is_navigable_by_facilitator" json:"is_navigable_by_facilitator"`
}

// Phase is an ordered group of stages. Phases are stored in meeting order.
type Phase struct {
	PhaseType PhaseType `bson:"phase_type" json:"phase_type"`
	Stages    []Stage   `bson:"stages" json:"stages"`
}

// Meeting is a retrospective owned by a team. Once EndedAt is set the meeting is
// read-only: no phase or reflection mutations are accepted.
type Meeting struct {
	ID                string     `bson:"_id" json:"id"`
	TeamID            string     `bson:"team_id" json:"team_id"`
	FacilitatorUserID string     `bson:"facilitator_user_id" json:"facilitator_user_id"`
	Phases            []Phase    `bson:"phases" json:"phases"`
	EndedAt           *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updated_at"`
}

// IsEnded reports whether the meeting has been closed.
func (m Meeting) IsEnded() bool { return m.EndedAt != nil }

// Clone returns a copy whose phases and stages can be mutated without touching m.
func (m Meeting) Clone() Meeting {
	out := m
	if m.Phases != nil {
		out.Phases = make([]Phase, len(m.Phases))
		for i, p := range m.Phases {
			out.Phases[i] = Phase{PhaseType: p.PhaseType, Stages: append([]Stage(nil), p.Stages...)}
		}
	}
	if m.EndedAt != nil {
		t := *m.EndedAt
		out.EndedAt = &t
	}
	return out
}
