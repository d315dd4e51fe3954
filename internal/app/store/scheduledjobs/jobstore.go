// internal/app/store/scheduledjobs/jobstore.go
package jobstore

import (
	"context"
	"time"

	"github.com/dalemusser/retrohub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the scheduled jobs collection.
const Collection = "scheduled_jobs"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) Create(ctx context.Context, job models.ScheduledJob) (models.ScheduledJob, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	_, err := s.c.InsertOne(ctx, job)
	return job, err
}

// ClaimDue leases the earliest job of jobType due at or before now that no
// other worker holds, until now+lease. The job is not removed: call Complete
// once it is handled. A job whose holder never completes it becomes claimable
// again when the lease runs out.
// Returns mongo.ErrNoDocuments when nothing is due.
func (s *Store) ClaimDue(ctx context.Context, jobType string, now time.Time, lease time.Duration) (models.ScheduledJob, error) {
	var job models.ScheduledJob
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"type":   jobType,
			"run_at": bson.M{"$lte": now},
			"$or": bson.A{
				bson.M{"locked_until": nil},
				bson.M{"locked_until": bson.M{"$lte": now}},
			},
		},
		bson.M{"$set": bson.M{"locked_until": now.Add(lease)}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "run_at", Value: 1}}).
			SetReturnDocument(options.After),
	).Decode(&job)
	if err != nil {
		return models.ScheduledJob{}, err
	}
	return job, nil
}

// Complete removes a handled job.
func (s *Store) Complete(ctx context.Context, id string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteByStage cancels the pending timer of one stage.
func (s *Store) DeleteByStage(ctx context.Context, meetingID, stageID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"meeting_id": meetingID, "stage_id": stageID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByMeeting cancels every pending job for a meeting.
func (s *Store) DeleteByMeeting(ctx context.Context, meetingID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"meeting_id": meetingID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
