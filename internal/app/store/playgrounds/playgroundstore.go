package playgroundstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when the playground does not exist.
var ErrNotFound = errors.New("playground not found")

// InspectionLayout is the last_inspection date format.
const InspectionLayout = "2006-01-02"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("playgrounds")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("idx_playgrounds_name"),
		},
		{
			Keys: bson.D{{Key: "legacy_id", Value: 1}},
			Options: options.Index().SetName("uniq_playgrounds_legacy_id").SetUnique(true).
				SetPartialFilterExpression(bson.M{"legacy_id": bson.M{"$type": "string"}}),
		},
	})
	return err
}

// List returns every playground in insertion order.
func (s *Store) List(ctx context.Context) ([]models.Playground, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Playground{}
	for cur.Next(ctx) {
		var pg models.Playground
		if err := cur.Decode(&pg); err != nil {
			return nil, err
		}
		pg.Status = models.NormalizePlaygroundStatus(pg.Status)
		out = append(out, pg)
	}
	return out, cur.Err()
}

// GetByID loads one playground.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Playground, error) {
	var pg models.Playground
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&pg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Playground{}, ErrNotFound
		}
		return models.Playground{}, err
	}
	pg.Status = models.NormalizePlaygroundStatus(pg.Status)
	return pg, nil
}

// Exists reports whether id names a playground.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

// SetStatus records an admin condition check. last_inspection becomes
// today's date in the server's zone.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string, now time.Time) (models.Playground, error) {
	var pg models.Playground
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":          status,
			"last_inspection": now.Format(InspectionLayout),
			"updated_at":      now.UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&pg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Playground{}, ErrNotFound
	}
	return pg, err
}

// SetActiveIssues writes the derived open issue count. Only the recount
// paths call this.
func (s *Store) SetActiveIssues(ctx context.Context, id primitive.ObjectID, n int64) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "active_issues": bson.M{"$ne": n}}, bson.M{"$set": bson.M{
		"active_issues": n,
		"updated_at":    time.Now().UTC(),
	}})
	return err
}

// ReplaceAll wipes the collection and inserts pgs. Used by the seeder.
func (s *Store) ReplaceAll(ctx context.Context, pgs []models.Playground) (int, error) {
	if _, err := s.c.DeleteMany(ctx, bson.M{}); err != nil {
		return 0, err
	}
	if len(pgs) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(pgs))
	for i := range pgs {
		if pgs[i].ID.IsZero() {
			pgs[i].ID = primitive.NewObjectID()
		}
		docs[i] = pgs[i]
	}
	res, err := s.c.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return len(res.InsertedIDs), nil
}

// UpsertLegacy inserts an imported playground keyed by LegacyID and
// returns its id.
func (s *Store) UpsertLegacy(ctx context.Context, pg models.Playground) (primitive.ObjectID, bool, error) {
	newID := primitive.NewObjectID()
	pg.ID = newID
	var row struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"legacy_id": pg.LegacyID},
		bson.M{"$setOnInsert": pg},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After).SetProjection(bson.M{"_id": 1}),
	).Decode(&row)
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	return row.ID, row.ID == newID, nil
}
