// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/playsafe/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
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

	ensure("users", usersSchema())
	ensure("playgrounds", playgroundsSchema())
	ensure("issues", issuesSchema())
	ensure("assignments", assignmentsSchema())
	ensure("notifications", notificationsSchema())

	// Written only by their stores; no validator.
	ensure("sessions", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

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
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "role", "status"},
			"properties": bson.M{
				"email":         nonBlank,
				"first_name":    bson.M{"bsonType": "string"},
				"last_name":     bson.M{"bsonType": "string"},
				"role":          bson.M{"enum": bson.A{models.RoleCitizen, models.RoleAdmin, models.RoleMaintenance}},
				"status":        bson.M{"enum": bson.A{models.UserActive, models.UserDisabled}},
				"password_hash": bson.M{"bsonType": "string"},
				"legacy_uid":    bson.M{"bsonType": "string"},
			},
		},
	}
}

func playgroundsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "latitude", "longitude", "status"},
			"properties": bson.M{
				"name":          nonBlank,
				"latitude":      bson.M{"bsonType": "number", "minimum": -90, "maximum": 90},
				"longitude":     bson.M{"bsonType": "number", "minimum": -180, "maximum": 180},
				"status":        bson.M{"enum": bson.A{models.PlaygroundGood, models.PlaygroundAttention, models.PlaygroundUrgent}},
				"amenities":     bson.M{"bsonType": bson.A{"array", "null"}},
				"active_issues": bson.M{"bsonType": "number", "minimum": 0},
			},
		},
	}
}

func issuesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"report_code", "title", "status", "reported_by", "created_at"},
			"properties": bson.M{
				"report_code":      nonBlank,
				"title":            nonBlank,
				"status":           bson.M{"enum": bson.A{models.StatusPending, models.StatusAssigned, models.StatusInProgress, models.StatusResolved}},
				"reported_by":      bson.M{"bsonType": "object"},
				"playground_id":    bson.M{"bsonType": "objectId"},
				"assigned_to_id":   bson.M{"bsonType": "objectId"},
				"admin_approved":   bson.M{"bsonType": "bool"},
				"resolution_kind":  bson.M{"enum": bson.A{models.ResolutionCompleted, models.ResolutionDirect}},
				"photo_urls":       bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"completion_proof": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"created_at":       bson.M{"bsonType": "date"},
				"resolved_at":      bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}

func assignmentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"issue_id", "assigned_to", "status", "assigned_at"},
			"properties": bson.M{
				"issue_id":          bson.M{"bsonType": "objectId"},
				"assigned_to":       nonBlank,
				"status":            bson.M{"enum": bson.A{models.AssignmentActive, models.AssignmentCompleted, models.AssignmentReassigned}},
				"notification_sent": bson.M{"bsonType": "bool"},
				"assigned_at":       bson.M{"bsonType": "date"},
				"completed_at":      bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}

func notificationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "type", "title", "read", "created_at"},
			"properties": bson.M{
				"user_id": bson.M{"bsonType": "objectId"},
				"type": bson.M{"enum": bson.A{
					models.NotifyAssignment, models.NotifyCompletion, models.NotifyRejection,
					models.NotifyUrgent, models.NotifyProgress, models.NotifyResolution,
				}},
				"title":      nonBlank,
				"read":       bson.M{"bsonType": "bool"},
				"issue_id":   bson.M{"bsonType": "objectId"},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
