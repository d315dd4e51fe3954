// internal/app/store/meetings/meetingstore.go
package meetingstore

import (
	"context"
	"time"

	"github.com/dalemusser/retrohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the name of the meetings collection.
const Collection = "meetings"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a meeting. CreatedAt/UpdatedAt default to now.
func (s *Store) Create(ctx context.Context, m models.Meeting) (models.Meeting, error) {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Meeting{}, err
	}
	return m, nil
}

// GetByID returns mongo.ErrNoDocuments when the meeting does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (models.Meeting, error) {
	var m models.Meeting
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return models.Meeting{}, err
	}
	return m, nil
}

// UpdatePhases replaces the phase list of a meeting that has not ended.
// It reports false when no open meeting matched.
func (s *Store) UpdatePhases(ctx context.Context, id string, phases []models.Phase, at time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "ended_at": nil},
		bson.M{"$set": bson.M{"phases": phases, "updated_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// End stamps ended_at on an open meeting. It reports false when the meeting
// is missing or already ended.
func (s *Store) End(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "ended_at": nil},
		bson.M{"$set": bson.M{"ended_at": at, "updated_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// Touch bumps updated_at on an open meeting. Transactions that must not
// interleave on a meeting touch it so they conflict. It reports false when
// the meeting is missing or ended.
func (s *Store) Touch(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "ended_at": nil},
		bson.M{"$set": bson.M{"updated_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
