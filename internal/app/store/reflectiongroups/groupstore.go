// internal/app/store/reflectiongroups/groupstore.go
package reflectiongroupstore

import (
	"context"
	"time"

	"github.com/dalemusser/retrohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the name of the reflection groups collection.
const Collection = "reflection_groups"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) Create(ctx context.Context, g models.ReflectionGroup) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = g.CreatedAt
	}
	_, err := s.c.InsertOne(ctx, g)
	return err
}

func (s *Store) GetByID(ctx context.Context, id string) (models.ReflectionGroup, error) {
	var g models.ReflectionGroup
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.ReflectionGroup{}, err
	}
	return g, nil
}

// Deactivate marks an active group inactive and reports whether it changed.
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
