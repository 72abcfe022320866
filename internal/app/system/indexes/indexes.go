// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"
	"time"

	assignmentstore "github.com/dalemusser/playsafe/internal/app/store/assignments"
	"github.com/dalemusser/playsafe/internal/app/store/audit"
	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	notificationstore "github.com/dalemusser/playsafe/internal/app/store/notifications"
	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	"github.com/dalemusser/playsafe/internal/app/store/sessions"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type ensurer interface {
	EnsureIndexes(ctx context.Context) error
}

// dupFinders help an operator locate the documents that block a unique index.
var dupFinders = map[string]string{
	"users": `db.users.aggregate([{ $group: { _id: "$email", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
	"issues": `db.issues.aggregate([{ $group: { _id: "$report_code", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
	"assignments": `db.assignments.aggregate([{ $match: { status: "active" } }, { $group: { _id: "$issue_id", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
}

/*
EnsureAll is called at startup. Every store's EnsureIndexes is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		coll string
		s    ensurer
	}{
		{"users", userstore.New(db)},
		{"issues", issuestore.New(db)},
		{"assignments", assignmentstore.New(db)},
		{"playgrounds", playgroundstore.New(db)},
		{"notifications", notificationstore.New(db)},
		{"sessions", sessions.New(db)},
		{"audit_events", audit.New(db)},
	}

	var problems []string
	for _, set := range sets {
		start := time.Now()
		if err := set.s.EnsureIndexes(ctx); err != nil {
			msg := set.coll + ": " + err.Error()
			if finder, ok := dupFinders[set.coll]; ok && wafflemongo.IsDup(err) {
				msg += " (duplicates present; example finder: " + finder + ")"
			}
			zap.L().Warn("index ensure failed", zap.String("collection", set.coll), zap.Error(err))
			problems = append(problems, msg)
			continue
		}
		zap.L().Info("indexes ensured",
			zap.String("collection", set.coll),
			zap.String("took", time.Since(start).String()))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
