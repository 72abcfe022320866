// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// touchEvery limits how often Active rewrites last_active_at.
const touchEvery = time.Minute

// ErrNotFound is returned when the session id matches nothing.
var ErrNotFound = errors.New("session not found")

// Session is the server-side half of a signed cookie. A cookie is only
// honored while its record exists, is unexpired and is not revoked.
type Session struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	UserID       primitive.ObjectID `bson:"user_id"`
	CreatedAt    time.Time          `bson:"created_at"`
	ExpiresAt    time.Time          `bson:"expires_at"`
	LastActiveAt time.Time          `bson:"last_active_at"`
	RevokedAt    *time.Time         `bson:"revoked_at,omitempty"`

	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`
}

// Store manages session records.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sessions"), now: func() time.Time { return time.Now().UTC() }}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_sessions_user"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_sessions_expires"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create starts a session for userID lasting ttl.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, ip, userAgent string, ttl time.Duration) (Session, error) {
	now := s.now()
	sess := Session{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastActiveAt: now,
		IP:           ip,
		UserAgent:    userAgent,
	}
	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// GetByID retrieves a session by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (Session, error) {
	var sess Session
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Session{}, ErrNotFound
	}
	return sess, err
}

// Active reports whether sessionID belongs to userID and is neither expired
// nor revoked. It implements auth.SessionVerifier and refreshes
// last_active_at at most once per minute.
func (s *Store) Active(ctx context.Context, sessionID, userID string) (bool, error) {
	sid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return false, nil
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}
	now := s.now()

	var sess Session
	err = s.c.FindOne(ctx, bson.M{
		"_id":        sid,
		"user_id":    uid,
		"revoked_at": nil,
		"expires_at": bson.M{"$gt": now},
	}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if now.Sub(sess.LastActiveAt) >= touchEvery {
		_, _ = s.c.UpdateOne(ctx, bson.M{"_id": sid}, bson.M{"$set": bson.M{"last_active_at": now}})
	}
	return true, nil
}

// Revoke ends one session. Revoking an already revoked session is a no-op.
func (s *Store) Revoke(ctx context.Context, sessionID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": sessionID, "revoked_at": nil},
		bson.M{"$set": bson.M{"revoked_at": s.now()}},
	)
	return err
}

// RevokeAllForUser ends every open session of a user, for example when the
// account is disabled.
func (s *Store) RevokeAllForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "revoked_at": nil},
		bson.M{"$set": bson.M{"revoked_at": s.now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteStale removes expired sessions and sessions revoked more than
// revokedGrace ago. Called by the cleanup worker.
func (s *Store) DeleteStale(ctx context.Context, revokedGrace time.Duration) (int64, error) {
	now := s.now()
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"expires_at": bson.M{"$lte": now}},
		bson.M{"revoked_at": bson.M{"$lte": now.Add(-revokedGrace)}},
	}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountActive counts live sessions, for the health endpoint.
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"revoked_at": nil,
		"expires_at": bson.M{"$gt": s.now()},
	})
}
