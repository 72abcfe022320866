package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/playsafe/internal/app/system/validators"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) *mongo.Database {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return db
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "playgrounds", "issues", "assignments", "notifications", "sessions", "audit_events"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestValidators(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	tests := []struct {
		name  string
		coll  string
		doc   bson.M
		valid bool
	}{
		{"user ok", "users", bson.M{"email": "a@example.com", "role": models.RoleCitizen, "status": models.UserActive}, true},
		{"user missing email", "users", bson.M{"role": models.RoleCitizen, "status": models.UserActive}, false},
		{"user bad role", "users", bson.M{"email": "b@example.com", "role": "superadmin", "status": models.UserActive}, false},
		{"user bad status", "users", bson.M{"email": "c@example.com", "role": models.RoleAdmin, "status": "pending"}, false},

		{"playground ok", "playgrounds", bson.M{"name": "Tower Park", "latitude": 13.08, "longitude": 80.21, "status": models.PlaygroundGood}, true},
		{"playground blank name", "playgrounds", bson.M{"name": "  ", "latitude": 13.08, "longitude": 80.21, "status": models.PlaygroundGood}, false},
		{"playground bad latitude", "playgrounds", bson.M{"name": "X", "latitude": 113.0, "longitude": 80.21, "status": models.PlaygroundGood}, false},
		{"playground lowercase status", "playgrounds", bson.M{"name": "X", "latitude": 13.0, "longitude": 80.0, "status": "good"}, false},

		{"issue ok", "issues", bson.M{"report_code": "PS-1", "title": "Broken swing", "status": models.StatusPending, "reported_by": bson.M{"uid": "u"}, "created_at": now}, true},
		{"issue bad status", "issues", bson.M{"report_code": "PS-2", "title": "Broken swing", "status": "closed", "reported_by": bson.M{}, "created_at": now}, false},
		{"issue missing code", "issues", bson.M{"title": "Broken swing", "status": models.StatusPending, "reported_by": bson.M{}, "created_at": now}, false},
		{"issue null resolved_at", "issues", bson.M{"report_code": "PS-3", "title": "T", "status": models.StatusPending, "reported_by": bson.M{}, "created_at": now, "resolved_at": nil}, true},

		{"assignment ok", "assignments", bson.M{"issue_id": primitive.NewObjectID(), "assigned_to": "m@example.com", "status": models.AssignmentActive, "assigned_at": now}, true},
		{"assignment bad status", "assignments", bson.M{"issue_id": primitive.NewObjectID(), "assigned_to": "m@example.com", "status": "done", "assigned_at": now}, false},

		{"notification ok", "notifications", bson.M{"user_id": primitive.NewObjectID(), "type": models.NotifyUrgent, "title": "Urgent", "read": false, "created_at": now}, true},
		{"notification bad type", "notifications", bson.M{"user_id": primitive.NewObjectID(), "type": "email", "title": "Hi", "read": false, "created_at": now}, false},

		{"sessions unvalidated", "sessions", bson.M{"any_field": "any_value"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if tt.valid && err != nil {
				t.Errorf("insert failed: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidators_AcceptFixtures(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	citizen := fx.CreateCitizen(ctx, "Kavya", "kavya@example.com")
	fx.CreateStaff(ctx, "Ravi", "ravi@example.com")
	fx.CreateDisabledUser(ctx, "old@example.com", models.RoleCitizen)
	pg := fx.CreatePlayground(ctx, "Tower Park", 13.0878, 80.2101)
	fx.CreateIssue(ctx, "Broken swing", citizen, &pg.ID)
}
