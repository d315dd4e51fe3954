// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	analyticsstore "github.com/dalemusser/retrohub/internal/app/store/analytics"
	meetingstore "github.com/dalemusser/retrohub/internal/app/store/meetings"
	reflectiongroupstore "github.com/dalemusser/retrohub/internal/app/store/reflectiongroups"
	reflectionstore "github.com/dalemusser/retrohub/internal/app/store/reflections"
	jobstore "github.com/dalemusser/retrohub/internal/app/store/scheduledjobs"
	teammemberstore "github.com/dalemusser/retrohub/internal/app/store/teammembers"
	"github.com/dalemusser/retrohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates every collection up front and attaches JSON-Schema
// validators. Collections must exist before the first transaction writes to
// them. On servers that don't support collMod/validators, we log and skip.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure(meetingstore.Collection, meetingsSchema())
	ensure(reflectionstore.Collection, reflectionsSchema())
	ensure(reflectiongroupstore.Collection, reflectionGroupsSchema())
	ensure(teammemberstore.Collection, teamMembersSchema())
	ensure(jobstore.Collection, scheduledJobsSchema())

	ensure(analyticsstore.Collection, nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Debug("validator ensured", zap.String("collection", name))
	return nil
}

func commandErrorMatches(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErrorMatches(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErrorMatches(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErrorMatches(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func phaseTypeEnum() bson.A {
	out := bson.A{}
	for _, t := range models.AllPhaseTypes {
		out = append(out, string(t))
	}
	return out
}

func meetingsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"team_id", "facilitator_user_id", "phases", "created_at"},
			"properties": bson.M{
				"team_id":             nonBlank,
				"facilitator_user_id": nonBlank,
				"phases": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"phase_type", "stages"},
						"properties": bson.M{
							"phase_type": bson.M{"enum": phaseTypeEnum()},
							"stages": bson.M{
								"bsonType": "array",
								"items": bson.M{
									"bsonType": "object",
									"required": bson.A{"id"},
									"properties": bson.M{
										"id":                          nonBlank,
										"is_complete":                 bson.M{"bsonType": "bool"},
										"is_navigable":                bson.M{"bsonType": "bool"},
										"is_navigable_by_facilitator": bson.M{"bsonType": "bool"},
									},
								},
							},
						},
					},
				},
				"ended_at":   bson.M{"bsonType": bson.A{"date", "null"}},
				"created_at": bson.M{"bsonType": "date"},
				"updated_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func reflectionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"meeting_id", "creator_id", "content", "is_active"},
			"properties": bson.M{
				"meeting_id":          nonBlank,
				"reflection_group_id": bson.M{"bsonType": "string"},
				"creator_id":          nonBlank,
				"content":             bson.M{"bsonType": "string"},
				"is_active":           bson.M{"bsonType": "bool"},
				"created_at":          bson.M{"bsonType": "date"},
				"updated_at":          bson.M{"bsonType": "date"},
			},
		},
	}
}

func reflectionGroupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"meeting_id", "is_active"},
			"properties": bson.M{
				"meeting_id": nonBlank,
				"is_active":  bson.M{"bsonType": "bool"},
			},
		},
	}
}

func teamMembersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"team_id", "user_id", "is_lead", "is_not_removed"},
			"properties": bson.M{
				"_id":            bson.M{"bsonType": "string", "pattern": "^.+::.+$"},
				"team_id":        nonBlank,
				"user_id":        nonBlank,
				"is_lead":        bson.M{"bsonType": "bool"},
				"is_not_removed": bson.M{"bsonType": "bool"},
			},
		},
	}
}

func scheduledJobsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"type", "meeting_id", "run_at"},
			"properties": bson.M{
				"type":       bson.M{"enum": bson.A{models.JobStageTimeLimitEnd}},
				"meeting_id":   nonBlank,
				"stage_id":     nonBlank,
				"run_at":       bson.M{"bsonType": "date"},
				"locked_until": bson.M{"bsonType": "date"},
			},
		},
	}
}
