// internal/app/store/issues/issuestore.go
package issuestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/playsafe/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when the issue does not exist.
	ErrNotFound = errors.New("issue not found")
	// ErrStale is returned when a conditional update finds the issue but its
	// state no longer matches the guard.
	ErrStale = errors.New("issue state changed")
	// ErrDuplicateReportCode is returned when the report code is taken.
	ErrDuplicateReportCode = errors.New("report code already in use")
)

// Guard is the precondition of a conditional update. Zero fields are not
// checked.
type Guard struct {
	Statuses         []string // current status must be one of these
	AssignedTo       string   // current assignee email must match
	AwaitingApproval bool     // resolved by staff, not yet approved
}

func (g Guard) filter(id primitive.ObjectID) bson.M {
	f := bson.M{"_id": id}
	switch len(g.Statuses) {
	case 0:
	case 1:
		f["status"] = g.Statuses[0]
	default:
		f["status"] = bson.M{"$in": g.Statuses}
	}
	if g.AssignedTo != "" {
		f["assigned_to"] = g.AssignedTo
	}
	if g.AwaitingApproval {
		f["admin_approved"] = false
		f["work_completed_at"] = bson.M{"$type": "date"}
	}
	return f
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("issues")}
}

// EnsureIndexes creates the unique report code index and the list indexes
// behind each dashboard.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "report_code", Value: 1}},
			Options: options.Index().SetName("uniq_issues_report_code").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "legacy_id", Value: 1}},
			Options: options.Index().SetName("uniq_issues_legacy_id").SetUnique(true).
				SetPartialFilterExpression(bson.M{"legacy_id": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_issues_status_created"),
		},
		{
			Keys:    bson.D{{Key: "reported_by.uid", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_issues_reporter"),
		},
		{
			Keys:    bson.D{{Key: "assigned_to", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_issues_assignee"),
		},
		{
			Keys:    bson.D{{Key: "playground_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_issues_playground"),
		},
		{
			Keys:    bson.D{{Key: "resolved_at", Value: -1}},
			Options: options.Index().SetName("idx_issues_resolved_at"),
		},
	})
	return err
}

// Insert stores a new issue. The caller supplies the report code.
func (s *Store) Insert(ctx context.Context, issue models.Issue) (models.Issue, error) {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	if issue.PhotoURLs == nil {
		issue.PhotoURLs = []string{}
	}
	if issue.CompletionProof == nil {
		issue.CompletionProof = []string{}
	}
	if _, err := s.c.InsertOne(ctx, issue); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Issue{}, ErrDuplicateReportCode
		}
		return models.Issue{}, err
	}
	return issue, nil
}

// GetByID loads an issue.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Issue, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByReportCode loads an issue by its public code.
func (s *Store) GetByReportCode(ctx context.Context, code string) (models.Issue, error) {
	return s.findOne(ctx, bson.M{"report_code": code})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Issue, error) {
	var issue models.Issue
	if err := s.c.FindOne(ctx, filter).Decode(&issue); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Issue{}, ErrNotFound
		}
		return models.Issue{}, err
	}
	issue.Normalize()
	return issue, nil
}

// CompareAndSet applies set (and unset) only if the issue still satisfies
// guard, and returns the updated document. It returns ErrNotFound when the
// id matches nothing and ErrStale when the guard fails.
// ctx may be a mongo.SessionContext to run inside a transaction.
func (s *Store) CompareAndSet(ctx context.Context, id primitive.ObjectID, guard Guard, set bson.M, unset ...string) (models.Issue, error) {
	return s.compareAndSet(ctx, options.After, id, guard, set, unset)
}

// CompareAndSetBefore is CompareAndSet returning the document as it was
// before the update, for callers that may need to Restore it.
func (s *Store) CompareAndSetBefore(ctx context.Context, id primitive.ObjectID, guard Guard, set bson.M, unset ...string) (models.Issue, error) {
	return s.compareAndSet(ctx, options.Before, id, guard, set, unset)
}

func (s *Store) compareAndSet(ctx context.Context, rd options.ReturnDocument, id primitive.ObjectID, guard Guard, set bson.M, unset []string) (models.Issue, error) {
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		u := bson.M{}
		for _, k := range unset {
			u[k] = ""
		}
		update["$unset"] = u
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(rd)

	var issue models.Issue
	err := s.c.FindOneAndUpdate(ctx, guard.filter(id), update, opts).Decode(&issue)
	if err == nil {
		if rd == options.After {
			issue.Normalize()
		}
		return issue, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Issue{}, err
	}
	n, cerr := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if cerr != nil {
		return models.Issue{}, cerr
	}
	if n == 0 {
		return models.Issue{}, ErrNotFound
	}
	return models.Issue{}, ErrStale
}

// Restore puts prev back, but only while the issue is still in the status
// the failed transition moved it to. Used as the compensating write when a
// non-transactional two-document transition fails halfway.
func (s *Store) Restore(ctx context.Context, prev models.Issue, currentStatus string) error {
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": prev.ID, "status": currentStatus}, prev)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStale
	}
	return nil
}

// ListFilter narrows list queries. Zero fields are ignored.
type ListFilter struct {
	Status       string
	ReporterUID  string
	AssignedTo   string
	PlaygroundID *primitive.ObjectID
	Limit        int64
}

// List returns issues matching f, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Issue, error) {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.ReporterUID != "" {
		q["reported_by.uid"] = f.ReporterUID
	}
	if f.AssignedTo != "" {
		q["assigned_to"] = f.AssignedTo
	}
	if f.PlaygroundID != nil {
		q["playground_id"] = *f.PlaygroundID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	return s.find(ctx, q, opts)
}

// ListAwaitingApproval returns staff-resolved issues an admin has not yet
// approved, oldest completion first.
func (s *Store) ListAwaitingApproval(ctx context.Context) ([]models.Issue, error) {
	q := Guard{Statuses: []string{models.StatusResolved}, AwaitingApproval: true}.filter(primitive.NilObjectID)
	delete(q, "_id")
	opts := options.Find().SetSort(bson.D{{Key: "work_completed_at", Value: 1}})
	return s.find(ctx, q, opts)
}

// ListRecentlyApproved returns the latest approved issues.
func (s *Store) ListRecentlyApproved(ctx context.Context, limit int64) ([]models.Issue, error) {
	opts := options.Find().SetSort(bson.D{{Key: "resolved_at", Value: -1}}).SetLimit(limit)
	return s.find(ctx, bson.M{"status": models.StatusResolved, "admin_approved": true}, opts)
}

func (s *Store) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.Issue, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Issue{}
	for cur.Next(ctx) {
		var issue models.Issue
		if err := cur.Decode(&issue); err != nil {
			return nil, err
		}
		issue.Normalize()
		out = append(out, issue)
	}
	return out, cur.Err()
}

// CountByStatus counts issues per status. Every known status is present
// in the result, zero when absent. assignedTo narrows to one staff member
// when non-empty.
func (s *Store) CountByStatus(ctx context.Context, assignedTo string) (map[string]int64, error) {
	match := bson.M{}
	if assignedTo != "" {
		match["assigned_to"] = assignedTo
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{
		models.StatusPending:    0,
		models.StatusAssigned:   0,
		models.StatusInProgress: 0,
		models.StatusResolved:   0,
	}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[models.NormalizeStatus(row.Status)] += row.N
	}
	return out, cur.Err()
}

// CountResolvedSince counts issues whose resolved_at is at or after t.
func (s *Store) CountResolvedSince(ctx context.Context, t time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"status":      models.StatusResolved,
		"resolved_at": bson.M{"$gte": t},
	})
}

// AverageResolution returns the mean of resolved_at - created_at over
// resolved issues, and how many issues it covers.
func (s *Store) AverageResolution(ctx context.Context) (time.Duration, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status":      models.StatusResolved,
			"resolved_at": bson.M{"$type": "date"},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"avg": bson.M{"$avg": bson.M{"$subtract": bson.A{"$resolved_at", "$created_at"}}},
			"n":   bson.M{"$sum": 1},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		return 0, 0, cur.Err()
	}
	var row struct {
		Avg float64 `bson:"avg"`
		N   int64   `bson:"n"`
	}
	if err := cur.Decode(&row); err != nil {
		return 0, 0, fmt.Errorf("decode average: %w", err)
	}
	return time.Duration(row.Avg) * time.Millisecond, row.N, nil
}

// CountOpenForPlayground counts issues at a playground that are not resolved.
func (s *Store) CountOpenForPlayground(ctx context.Context, playgroundID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"playground_id": playgroundID,
		"status":        bson.M{"$ne": models.StatusResolved},
	})
}

// CountOpenByPlayground returns the open issue count of every playground
// that has at least one.
func (s *Store) CountOpenByPlayground(ctx context.Context) (map[primitive.ObjectID]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"playground_id": bson.M{"$type": "objectId"},
			"status":        bson.M{"$ne": models.StatusResolved},
		}}},
		{{Key: "$group", Value: bson.M{"_id": "$playground_id", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[primitive.ObjectID]int64{}
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int64              `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}

// UpsertLegacy inserts an imported issue keyed by LegacyID. created is false
// when the issue was already imported.
func (s *Store) UpsertLegacy(ctx context.Context, issue models.Issue) (primitive.ObjectID, bool, error) {
	if issue.LegacyID == "" {
		return primitive.NilObjectID, false, fmt.Errorf("upsert legacy issue: empty legacy id")
	}
	existing, err := s.findOne(ctx, bson.M{"legacy_id": issue.LegacyID})
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return primitive.NilObjectID, false, err
	}
	created, err := s.Insert(ctx, issue)
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	return created.ID, true, nil
}
