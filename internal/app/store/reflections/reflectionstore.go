// internal/app/store/reflections/reflectionstore.go
package reflectionstore

import (
	"context"
	"time"

	"github.com/dalemusser/retrohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the reflections collection.
const Collection = "retro_reflections"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) Create(ctx context.Context, r models.Reflection) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	_, err := s.c.InsertOne(ctx, r)
	return err
}

// GetByID returns the reflection whether or not it is active.
func (s *Store) GetByID(ctx context.Context, id string) (models.Reflection, error) {
	var r models.Reflection
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.Reflection{}, err
	}
	return r, nil
}

// ListActiveByMeeting returns active reflections in creation order.
func (s *Store) ListActiveByMeeting(ctx context.Context, meetingID string) ([]models.Reflection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"meeting_id": meetingID, "is_active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Reflection
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountActiveByGroup counts the active reflections in a reflection group.
func (s *Store) CountActiveByGroup(ctx context.Context, groupID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"reflection_group_id": groupID, "is_active": true})
}

// Deactivate soft-deletes an active reflection. It reports false when the
// reflection is missing or already inactive, so a second removal is detectable.
func (s *Store) Deactivate(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
