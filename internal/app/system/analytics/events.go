// Package analytics records product events as a closed set of typed kinds.
//
// Every event kind is a struct in this file; the unexported record method
// seals the Event interface so no other package can add kinds.
package analytics

import (
	"strconv"
	"time"

	"github.com/dalemusser/retrohub/internal/domain/models"
)

// Event is one of the kinds declared below.
type Event interface {
	Name() string
	record() Record
}

// Record is the flattened form of an event handed to sinks.
type Record struct {
	Name       string
	UserID     string
	TeamID     string
	MeetingID  string
	Properties map[string]string
}

// Describe flattens ev for a sink.
func Describe(ev Event) Record {
	r := ev.record()
	r.Name = ev.Name()
	return r
}

type ReflectionAdded struct {
	UserID       string
	TeamID       string
	MeetingID    string
	ReflectionID string
}

func (ReflectionAdded) Name() string { return "Reflection Added" }
func (e ReflectionAdded) record() Record {
	return Record{UserID: e.UserID, TeamID: e.TeamID, MeetingID: e.MeetingID,
		Properties: map[string]string{"reflectionId": e.ReflectionID}}
}

type ReflectionRemoved struct {
	UserID         string
	TeamID         string
	MeetingID      string
	ReflectionID   string
	UnlockedStages int
}

func (ReflectionRemoved) Name() string { return "Reflection Removed" }
func (e ReflectionRemoved) record() Record {
	return Record{UserID: e.UserID, TeamID: e.TeamID, MeetingID: e.MeetingID,
		Properties: map[string]string{
			"reflectionId":   e.ReflectionID,
			"unlockedStages": strconv.Itoa(e.UnlockedStages),
		}}
}

type TeamLeadPromoted struct {
	UserID      string
	TeamID      string
	OldLeaderID string
	NewLeaderID string
}

func (TeamLeadPromoted) Name() string { return "Team Lead Promoted" }
func (e TeamLeadPromoted) record() Record {
	return Record{UserID: e.UserID, TeamID: e.TeamID,
		Properties: map[string]string{"oldLeaderId": e.OldLeaderID, "newLeaderId": e.NewLeaderID}}
}

type PhaseCompleted struct {
	UserID          string
	TeamID          string
	MeetingID       string
	PhaseType       models.PhaseType
	CompletedStages int
}

func (PhaseCompleted) Name() string { return "Phase Completed" }
func (e PhaseCompleted) record() Record {
	return Record{UserID: e.UserID, TeamID: e.TeamID, MeetingID: e.MeetingID,
		Properties: map[string]string{
			"phaseType":       string(e.PhaseType),
			"completedStages": strconv.Itoa(e.CompletedStages),
		}}
}

type MeetingEnded struct {
	UserID        string
	TeamID        string
	MeetingID     string
	JobsCancelled int64
}

func (MeetingEnded) Name() string { return "Meeting Ended" }
func (e MeetingEnded) record() Record {
	return Record{UserID: e.UserID, TeamID: e.TeamID, MeetingID: e.MeetingID,
		Properties: map[string]string{"jobsCancelled": strconv.FormatInt(e.JobsCancelled, 10)}}
}

type StageTimerSet struct {
	UserID    string
	TeamID    string
	MeetingID string
	StageID   string
	RunAt     time.Time
}

func (StageTimerSet) Name() string { return "Stage Timer Set" }
func (e StageTimerSet) record() Record {
	return Record{UserID: e.UserID, TeamID: e.TeamID, MeetingID: e.MeetingID,
		Properties: map[string]string{"stageId": e.StageID, "runAt": e.RunAt.UTC().Format(time.RFC3339)}}
}

type WebSocketConnected struct {
	UserID       string
	SocketID     string
	Subscription string
}

func (WebSocketConnected) Name() string { return "WebSocket Connected" }
func (e WebSocketConnected) record() Record {
	return Record{UserID: e.UserID,
		Properties: map[string]string{"socketId": e.SocketID, "subscription": e.Subscription}}
}

type WebSocketDisconnected struct {
	UserID       string
	SocketID     string
	Subscription string
	Duration     time.Duration
}

func (WebSocketDisconnected) Name() string { return "WebSocket Disconnected" }
func (e WebSocketDisconnected) record() Record {
	return Record{UserID: e.UserID,
		Properties: map[string]string{
			"socketId":     e.SocketID,
			"subscription": e.Subscription,
			"duration":     e.Duration.String(),
		}}
}
