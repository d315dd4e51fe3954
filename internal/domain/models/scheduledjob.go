// internal/domain/models/scheduledjob.go
package models

import "time"

// JobStageTimeLimitEnd fires when a facilitator-set stage timer runs out.
const JobStageTimeLimitEnd = "MEETING_STAGE_TIME_LIMIT_END"

// ScheduledJob is a deferred piece of work picked up by a background worker.
// A job stays stored until the worker completes it; LockedUntil marks the
// lease of the worker currently holding it.
type ScheduledJob struct {
	ID          string     `bson:"_id" json:"id"`
	Type        string     `bson:"type" json:"type"`
	MeetingID   string     `bson:"meeting_id" json:"meeting_id"`
	StageID     string     `bson:"stage_id,omitempty" json:"stage_id,omitempty"`
	RunAt       time.Time  `bson:"run_at" json:"run_at"`
	LockedUntil *time.Time `bson:"locked_until,omitempty" json:"-"`
}
