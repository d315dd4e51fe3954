package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/retrohub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// RetroPhases returns a REFLECT → GROUP → VOTE phase list in which REFLECT is
// open and the later phases are locked.
func RetroPhases() []models.Phase {
	return []models.Phase{
		{PhaseType: models.PhaseReflect, Stages: []models.Stage{
			{ID: "reflect-1", IsNavigable: true, IsNavigableByFacilitator: true},
		}},
		{PhaseType: models.PhaseGroup, Stages: []models.Stage{
			{ID: "group-1"}, {ID: "group-2"},
		}},
		{PhaseType: models.PhaseVote, Stages: []models.Stage{
			{ID: "vote-1"},
		}},
	}
}

// CreateMeeting inserts an open retrospective for teamID run by facilitatorID.
func (f *Fixtures) CreateMeeting(ctx context.Context, teamID, facilitatorID string) models.Meeting {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Meeting{
		ID:                uuid.NewString(),
		TeamID:            teamID,
		FacilitatorUserID: facilitatorID,
		Phases:            RetroPhases(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := f.db.Collection("meetings").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("CreateMeeting failed: %v", err)
	}
	return m
}

// CreateReflection inserts an active reflection in its own group.
func (f *Fixtures) CreateReflection(ctx context.Context, meetingID, creatorID, content string) models.Reflection {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.ReflectionGroup{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("reflection_groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("CreateReflection group failed: %v", err)
	}

	r := models.Reflection{
		ID:                uuid.NewString(),
		MeetingID:         meetingID,
		ReflectionGroupID: g.ID,
		CreatorID:         creatorID,
		Content:           content,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := f.db.Collection("retro_reflections").InsertOne(ctx, r); err != nil {
		f.t.Fatalf("CreateReflection failed: %v", err)
	}
	return r
}

// CreateTeamMember inserts an active member of teamID.
func (f *Fixtures) CreateTeamMember(ctx context.Context, userID, teamID string, isLead bool) models.TeamMember {
	f.t.Helper()

	now := time.Now().UTC()
	tm := models.TeamMember{
		ID:           models.TeamMemberID(userID, teamID),
		TeamID:       teamID,
		UserID:       userID,
		IsLead:       isLead,
		IsNotRemoved: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("team_members").InsertOne(ctx, tm); err != nil {
		f.t.Fatalf("CreateTeamMember failed: %v", err)
	}
	return tm
}

// CreateStageTimerJob schedules a time-limit job for the reflect-1 stage of meetingID.
func (f *Fixtures) CreateStageTimerJob(ctx context.Context, meetingID string, runAt time.Time) models.ScheduledJob {
	f.t.Helper()

	job := models.ScheduledJob{
		ID:        uuid.NewString(),
		Type:      models.JobStageTimeLimitEnd,
		MeetingID: meetingID,
		StageID:   "reflect-1",
		RunAt:     runAt,
	}
	if _, err := f.db.Collection("scheduled_jobs").InsertOne(ctx, job); err != nil {
		f.t.Fatalf("CreateStageTimerJob failed: %v", err)
	}
	return job
}
