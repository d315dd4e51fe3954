package meetingops

import (
	"time"

	"github.com/dalemusser/retrohub/internal/app/system/apperr"
	"github.com/dalemusser/retrohub/internal/domain/models"
)

// Event type names carried in the envelope.
const (
	TypeRemoveReflection = "RemoveReflectionPayload"
	TypePromoteToLead    = "PromoteToTeamLeadPayload"
	TypeCreateReflection = "CreateReflectionPayload"
	TypeCompletePhase    = "CompletePhasePayload"
	TypeEndMeeting       = "EndMeetingPayload"
	TypeSetStageTimer    = "SetStageTimerPayload"

	// TypeNotifyPromoteToTeamLead goes to the promoted user's notification channel.
	TypeNotifyPromoteToTeamLead = "NotifyPromoteToTeamLead"
)

type RemoveReflectionPayload struct {
	MeetingID    string `json:"meetingId"`
	ReflectionID string `json:"reflectionId"`
	// Nil unless removing the last reflection unlocked GROUP stages.
	UnlockedStageIDs []string `json:"unlockedStageIds,omitempty"`
}

type PromoteToTeamLeadPayload struct {
	TeamID      string `json:"teamId"`
	OldLeaderID string `json:"oldLeaderId"`
	NewLeaderID string `json:"newLeaderId"`
}

// NotifyPromoteToTeamLead tells a user they now lead a team.
type NotifyPromoteToTeamLead struct {
	TeamID       string `json:"teamId"`
	TeamMemberID string `json:"teamMemberId"`
	PromotedBy   string `json:"promotedBy"`
}

type CreateReflectionPayload struct {
	MeetingID         string `json:"meetingId"`
	ReflectionID      string `json:"reflectionId"`
	ReflectionGroupID string `json:"reflectionGroupId"`
}

type CompletePhasePayload struct {
	MeetingID         string           `json:"meetingId"`
	PhaseType         models.PhaseType `json:"phaseType"`
	CompletedStageIDs []string         `json:"completedStageIds"`
	UnlockedStageIDs  []string         `json:"unlockedStageIds,omitempty"`
}

type EndMeetingPayload struct {
	MeetingID string    `json:"meetingId"`
	TeamID    string    `json:"teamId"`
	EndedAt   time.Time `json:"endedAt"`
}

type SetStageTimerPayload struct {
	MeetingID string    `json:"meetingId"`
	StageID   string    `json:"stageId"`
	JobID     string    `json:"jobId"`
	RunAt     time.Time `json:"runAt"`
	// Replaced reports that an earlier timer on the stage was cancelled.
	Replaced bool `json:"replaced"`
}

// ErrorPayload is the error arm of a Result.
type ErrorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Result is the response union: exactly one of Data and Error is set.
type Result[T any] struct {
	Data  *T            `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Data: &v}
}

func Fail[T any](err *apperr.Error) Result[T] {
	return Result[T]{Error: &ErrorPayload{Message: err.Message, Kind: string(err.Kind)}}
}
