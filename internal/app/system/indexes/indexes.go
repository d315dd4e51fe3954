// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	analyticsstore "github.com/dalemusser/retrohub/internal/app/store/analytics"
	meetingstore "github.com/dalemusser/retrohub/internal/app/store/meetings"
	reflectiongroupstore "github.com/dalemusser/retrohub/internal/app/store/reflectiongroups"
	reflectionstore "github.com/dalemusser/retrohub/internal/app/store/reflections"
	jobstore "github.com/dalemusser/retrohub/internal/app/store/scheduledjobs"
	teammemberstore "github.com/dalemusser/retrohub/internal/app/store/teammembers"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// LeadIndexName is the partial unique index that allows one lead per team.
const LeadIndexName = "uniq_team_members_team_lead"

/*
EnsureAll is called at startup. Each collection's set is reconciled
idempotently; problems are aggregated so startup fails with the full list.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{meetingstore.Collection, meetingIndexes()},
		{reflectionstore.Collection, reflectionIndexes()},
		{reflectiongroupstore.Collection, reflectionGroupIndexes()},
		{teammemberstore.Collection, teamMemberIndexes()},
		{jobstore.Collection, scheduledJobIndexes()},
		{analyticsstore.Collection, analyticsIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile helper                                                           */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string   `bson:"name"`
	Key     bson.D   `bson:"key"`
	Unique  *bool    `bson:"unique,omitempty"`
	Partial bson.Raw `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// shape captures the options that force a drop & recreate when they differ.
type shape struct {
	unique  bool
	partial string
}

func desiredShape(m mongo.IndexModel) shape {
	var sh shape
	if m.Options == nil {
		return sh
	}
	sh.unique = m.Options.Unique != nil && *m.Options.Unique
	if m.Options.PartialFilterExpression != nil {
		if raw, err := bson.Marshal(m.Options.PartialFilterExpression); err == nil {
			sh.partial = bson.Raw(raw).String()
		}
	}
	return sh
}

func (ex existingIndex) shape() shape {
	sh := shape{unique: ex.Unique != nil && *ex.Unique}
	if len(ex.Partial) > 0 {
		sh.partial = ex.Partial.String()
	}
	return sh
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A missing collection lists as empty on modern servers; anything
		// else is worth surfacing but creation below may still succeed.
		zap.L().Debug("list indexes failed", zap.String("collection", coll.Name()), zap.Error(err))
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		var name string
		if m.Options != nil && m.Options.Name != nil {
			name = *m.Options.Name
		}
		sig := keySig(m.Keys.(bson.D))
		want := desiredShape(m)
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if ex.shape() == want && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			// Same keys, different options or name: drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", want.unique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func meetingIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_meetings_team_created"),
		},
	}
}

func reflectionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Active reflections of a meeting, in creation order.
		{
			Keys: bson.D{
				{Key: "meeting_id", Value: 1},
				{Key: "is_active", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_reflections_meeting_active_created"),
		},
		// Group cleanup counts.
		{
			Keys:    bson.D{{Key: "reflection_group_id", Value: 1}, {Key: "is_active", Value: 1}},
			Options: options.Index().SetName("idx_reflections_group_active"),
		},
	}
}

func reflectionGroupIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "meeting_id", Value: 1}, {Key: "is_active", Value: 1}},
			Options: options.Index().SetName("idx_reflection_groups_meeting_active"),
		},
	}
}

func teamMemberIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "is_not_removed", Value: 1}},
			Options: options.Index().SetName("idx_team_members_team_active"),
		},
		// At most one non-removed lead per team.
		{
			Keys: bson.D{{Key: "team_id", Value: 1}},
			Options: options.Index().
				SetName(LeadIndexName).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{
					{Key: "is_lead", Value: true},
					{Key: "is_not_removed", Value: true},
				}),
		},
	}
}

func scheduledJobIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "run_at", Value: 1}},
			Options: options.Index().SetName("idx_jobs_type_runat"),
		},
		{
			Keys:    bson.D{{Key: "meeting_id", Value: 1}},
			Options: options.Index().SetName("idx_jobs_meeting"),
		},
	}
}

func analyticsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_analytics_ts"),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_analytics_name_ts"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_analytics_user_ts"),
		},
	}
}
