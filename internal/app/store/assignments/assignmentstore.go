package assignmentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/playsafe/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrActiveExists is returned when the issue already has an active
	// assignment.
	ErrActiveExists = errors.New("issue already has an active assignment")
	// ErrNoActive is returned when there is no active assignment to close.
	ErrNoActive = errors.New("no active assignment")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("assignments")}
}

// EnsureIndexes creates the partial unique index that allows at most one
// active assignment per issue.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "issue_id", Value: 1}},
			Options: options.Index().SetName("uniq_assignments_active_issue").SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.AssignmentActive}),
		},
		{
			Keys:    bson.D{{Key: "issue_id", Value: 1}, {Key: "assigned_at", Value: 1}},
			Options: options.Index().SetName("idx_assignments_issue"),
		},
		{
			Keys:    bson.D{{Key: "assigned_to", Value: 1}, {Key: "assigned_at", Value: -1}},
			Options: options.Index().SetName("idx_assignments_staff"),
		},
		{
			Keys:    bson.D{{Key: "assigned_at", Value: -1}},
			Options: options.Index().SetName("idx_assignments_recent"),
		},
		{
			Keys: bson.D{{Key: "legacy_id", Value: 1}},
			Options: options.Index().SetName("uniq_assignments_legacy_id").SetUnique(true).
				SetPartialFilterExpression(bson.M{"legacy_id": bson.M{"$type": "string"}}),
		},
	})
	return err
}

// Insert stores a new assignment.
func (s *Store) Insert(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Assignment{}, ErrActiveExists
		}
		return models.Assignment{}, err
	}
	return a, nil
}

// Delete removes an assignment. Only used to compensate a failed
// non-transactional transition.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// CloseActive moves the issue's active assignment to status and returns
// the closed record. completed_at is set when status is completed.
func (s *Store) CloseActive(ctx context.Context, issueID primitive.ObjectID, status string) (models.Assignment, error) {
	set := bson.M{"status": status}
	if status == models.AssignmentCompleted {
		set["completed_at"] = time.Now().UTC()
	}
	var a models.Assignment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"issue_id": issueID, "status": models.AssignmentActive},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Assignment{}, ErrNoActive
	}
	return a, err
}

// Reopen reverses CloseActive. Only used for compensation.
func (s *Store) Reopen(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"status": models.AssignmentActive},
		"$unset": bson.M{"completed_at": ""},
	})
	return err
}

// Active returns the issue's active assignment.
func (s *Store) Active(ctx context.Context, issueID primitive.ObjectID) (models.Assignment, error) {
	var a models.Assignment
	err := s.c.FindOne(ctx, bson.M{"issue_id": issueID, "status": models.AssignmentActive}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Assignment{}, ErrNoActive
	}
	return a, err
}

// ListForIssue returns an issue's assignment history, oldest first.
func (s *Store) ListForIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "assigned_at", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"issue_id": issueID}, opts)
}

// ListRecent returns the latest assignments across all issues.
func (s *Store) ListRecent(ctx context.Context, limit int64) ([]models.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "assigned_at", Value: -1}}).SetLimit(limit)
	return s.find(ctx, bson.M{}, opts)
}

// CountForIssue counts every assignment record of an issue.
func (s *Store) CountForIssue(ctx context.Context, issueID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"issue_id": issueID})
}

// UpsertLegacy inserts an imported assignment keyed by LegacyID.
func (s *Store) UpsertLegacy(ctx context.Context, a models.Assignment) (bool, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"legacy_id": a.LegacyID},
		bson.M{"$setOnInsert": a},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return false, ErrActiveExists
		}
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

func (s *Store) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.Assignment, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Assignment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
