// internal/app/store/teammembers/teammemberstore.go
package teammemberstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/retrohub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the team members collection.
const Collection = "team_members"

var (
	// ErrLeadChanged means the lead flip did not match both documents: the old
	// lead was no longer lead, or the new lead was removed, mid-flight.
	ErrLeadChanged = errors.New("team lead changed concurrently")
	// ErrLeadConflict means the partial unique lead index rejected a second lead.
	ErrLeadConflict = errors.New("team already has a lead")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Upsert writes a team member, deriving the composite ID when it is empty.
func (s *Store) Upsert(ctx context.Context, tm models.TeamMember) (models.TeamMember, error) {
	if tm.ID == "" {
		tm.ID = models.TeamMemberID(tm.UserID, tm.TeamID)
	}
	now := time.Now().UTC()
	if tm.CreatedAt.IsZero() {
		tm.CreatedAt = now
	}
	tm.UpdatedAt = now

	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": tm.ID}, tm, options.Replace().SetUpsert(true))
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.TeamMember{}, ErrLeadConflict
		}
		return models.TeamMember{}, err
	}
	return tm, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.TeamMember, error) {
	var tm models.TeamMember
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&tm); err != nil {
		return models.TeamMember{}, err
	}
	return tm, nil
}

// ListByTeam returns the non-removed members of a team.
func (s *Store) ListByTeam(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"team_id": teamID, "is_not_removed": true},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TeamMember
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TransferLead demotes fromID and promotes toID in one ordered bulk write.
// Demote runs first so the partial unique lead index never sees two leads.
// Run it inside txn.Run: without a transaction a failed promote leaves the
// team without a lead until the request is retried.
func (s *Store) TransferLead(ctx context.Context, fromID, toID string, at time.Time) error {
	writes := []mongo.WriteModel{
		mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": fromID, "is_lead": true, "is_not_removed": true}).
			SetUpdate(bson.M{"$set": bson.M{"is_lead": false, "updated_at": at}}),
		mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": toID, "is_not_removed": true}).
			SetUpdate(bson.M{"$set": bson.M{"is_lead": true, "updated_at": at}}),
	}
	res, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		if wafflemongo.IsDup(err) || mongo.IsDuplicateKeyError(err) {
			return ErrLeadConflict
		}
		return err
	}
	if res.MatchedCount != 2 {
		return fmt.Errorf("%w: matched %d of 2 members", ErrLeadChanged, res.MatchedCount)
	}
	return nil
}
