package legacyimport

import (
	"context"
	"strings"

	assignmentstore "github.com/dalemusser/playsafe/internal/app/store/assignments"
	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/app/system/identity"
	"github.com/dalemusser/playsafe/internal/app/system/workers"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Legacy collections read besides the identity collections.
const (
	CollPlaygrounds = "playgrounds"
	CollIssues      = "issues"
	CollAssignments = "assignments"
)

// Reader is the legacy document source. Each calls fn for every document
// in a collection; a non-nil return from fn stops the walk.
type Reader interface {
	identity.Source
	Each(ctx context.Context, collection string, fn func(id string, doc map[string]any) error) error
}

// Counts tallies one kind of record.
type Counts struct {
	Created  int
	Existing int
	Skipped  int
}

// Stats is the result of a run.
type Stats struct {
	Users       Counts
	Playgrounds Counts
	Issues      Counts
	Assignments Counts
}

// Importer copies legacy data into Mongo. Every write is keyed by the
// legacy id, so re-running it only adds what is missing. With DryRun set
// nothing is written and Created counts what would have been.
type Importer struct {
	Reader      Reader
	Users       *userstore.Store
	Playgrounds *playgroundstore.Store
	Issues      *issuestore.Store
	Assignments *assignmentstore.Store
	Log         *zap.Logger
	DryRun      bool
}

// Run imports users, playgrounds, issues, then assignments, and finally
// recounts every playground's active issues.
func (im *Importer) Run(ctx context.Context) (Stats, error) {
	var st Stats

	ppl, err := im.importUsers(ctx, &st.Users)
	if err != nil {
		return st, errors.Wrap(err, "import users")
	}
	pgs, err := im.importPlaygrounds(ctx, &st.Playgrounds)
	if err != nil {
		return st, errors.Wrap(err, "import playgrounds")
	}
	issues, err := im.importIssues(ctx, ppl, pgs, &st.Issues)
	if err != nil {
		return st, errors.Wrap(err, "import issues")
	}
	if err := im.importAssignments(ctx, issues, &st.Assignments); err != nil {
		return st, errors.Wrap(err, "import assignments")
	}

	if !im.DryRun {
		rec := workers.NewPlaygroundReconciler(im.Playgrounds, im.Issues, im.Log, 0)
		if _, err := rec.Reconcile(ctx); err != nil {
			return st, errors.Wrap(err, "recount active issues")
		}
	}
	return st, nil
}

// people are the imported accounts: ids by legacy uid, and the ids of
// maintenance users by lower-cased email.
type people struct {
	ids   map[string]primitive.ObjectID
	staff map[string]primitive.ObjectID
}

func (p people) add(uid string, id primitive.ObjectID, u models.User) {
	p.ids[uid] = id
	if u.Role == models.RoleMaintenance {
		p.staff[strings.ToLower(strings.TrimSpace(u.Email))] = id
	}
}

func (im *Importer) importUsers(ctx context.Context, c *Counts) (people, error) {
	var uids []string
	seen := map[string]bool{}
	for _, coll := range []string{identity.CollCitizens, identity.CollAdministrators, identity.CollMaintenance, identity.CollUsers} {
		err := im.Reader.Each(ctx, coll, func(id string, _ map[string]any) error {
			if !seen[id] {
				seen[id] = true
				uids = append(uids, id)
			}
			return nil
		})
		if err != nil {
			return people{}, errors.Wrapf(err, "read %s", coll)
		}
	}

	out := people{
		ids:   make(map[string]primitive.ObjectID, len(uids)),
		staff: map[string]primitive.ObjectID{},
	}
	for _, uid := range uids {
		lu, err := identity.ResolveLegacy(ctx, im.Reader, uid)
		if err != nil {
			if errors.Is(err, identity.ErrUnknownRole) {
				im.Log.Warn("skipping legacy user with unknown role", zap.String("uid", uid))
				c.Skipped++
				continue
			}
			return people{}, errors.Wrapf(err, "resolve %s", uid)
		}
		u := User(lu)
		if u.Email == "" {
			im.Log.Warn("skipping legacy user without email", zap.String("uid", uid))
			c.Skipped++
			continue
		}
		if im.DryRun {
			out.add(uid, primitive.NewObjectID(), u)
			c.Created++
			continue
		}

		id, created, err := im.Users.UpsertLegacy(ctx, u)
		switch {
		case errors.Is(err, userstore.ErrDuplicateEmail):
			// The address already belongs to a current account; link to it.
			existing, gerr := im.Users.GetByEmail(ctx, u.Email)
			if gerr != nil {
				return people{}, errors.Wrapf(gerr, "lookup %s", u.Email)
			}
			out.add(uid, existing.ID, *existing)
			c.Existing++
		case err != nil:
			return people{}, errors.Wrapf(err, "upsert user %s", uid)
		case created:
			out.add(uid, id, u)
			c.Created++
		default:
			// Imported on an earlier run; its role may have changed since.
			cur, gerr := im.Users.GetByID(ctx, id)
			if gerr != nil {
				return people{}, errors.Wrapf(gerr, "lookup %s", uid)
			}
			out.add(uid, id, *cur)
			c.Existing++
		}
	}
	return out, nil
}

func (im *Importer) importPlaygrounds(ctx context.Context, c *Counts) (map[string]primitive.ObjectID, error) {
	out := map[string]primitive.ObjectID{}
	err := im.Reader.Each(ctx, CollPlaygrounds, func(id string, doc map[string]any) error {
		pg, err := Playground(id, doc)
		if err != nil {
			im.Log.Warn("skipping legacy playground", zap.String("legacy_id", id), zap.Error(err))
			c.Skipped++
			return nil
		}
		if im.DryRun {
			out[id] = primitive.NewObjectID()
			c.Created++
			return nil
		}
		newID, created, err := im.Playgrounds.UpsertLegacy(ctx, pg)
		if err != nil {
			return errors.Wrapf(err, "upsert playground %s", id)
		}
		out[id] = newID
		tally(c, created)
		return nil
	})
	return out, err
}

func (im *Importer) importIssues(ctx context.Context, ppl people, pgs map[string]primitive.ObjectID, c *Counts) (map[string]models.Issue, error) {
	out := map[string]models.Issue{}
	err := im.Reader.Each(ctx, CollIssues, func(id string, doc map[string]any) error {
		links := Links{Playgrounds: pgs, Staff: ppl.staff}
		if rep, ok := doc["reportedBy"].(map[string]any); ok {
			if uid, ok := ppl.ids[str(rep, "uid")]; ok {
				links.ReporterUID = uid.Hex()
			}
		}
		issue := Issue(id, doc, links)
		if issue.Title == "" {
			im.Log.Warn("skipping legacy issue without title", zap.String("legacy_id", id))
			c.Skipped++
			return nil
		}
		if legacy := strings.ToLower(strings.TrimSpace(str(doc, "assignedTo"))); legacy != "" && issue.AssignedTo == "" {
			im.Log.Warn("dropping assignee that is not a maintenance user",
				zap.String("legacy_id", id), zap.String("assigned_to", legacy), zap.String("status", issue.Status))
		}
		if im.DryRun {
			issue.ID = primitive.NewObjectID()
			out[id] = issue
			c.Created++
			return nil
		}
		newID, created, err := im.Issues.UpsertLegacy(ctx, issue)
		if errors.Is(err, issuestore.ErrDuplicateReportCode) {
			im.Log.Warn("skipping legacy issue with a taken report code",
				zap.String("legacy_id", id), zap.String("report_code", issue.ReportCode))
			c.Skipped++
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "upsert issue %s", id)
		}
		issue.ID = newID
		out[id] = issue
		tally(c, created)
		return nil
	})
	return out, err
}

func (im *Importer) importAssignments(ctx context.Context, issues map[string]models.Issue, c *Counts) error {
	return im.Reader.Each(ctx, CollAssignments, func(id string, doc map[string]any) error {
		issue, ok := issues[str(doc, "issueId")]
		if !ok {
			im.Log.Warn("skipping assignment for an issue that was not imported", zap.String("legacy_id", id))
			c.Skipped++
			return nil
		}
		a := Assignment(id, doc, issue.ID)
		Settle(&a, issue)
		if im.DryRun {
			c.Created++
			return nil
		}
		created, err := im.Assignments.UpsertLegacy(ctx, a)
		if errors.Is(err, assignmentstore.ErrActiveExists) {
			im.Log.Warn("skipping second active assignment", zap.String("legacy_id", id))
			c.Skipped++
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "upsert assignment %s", id)
		}
		tally(c, created)
		return nil
	})
}

func tally(c *Counts, created bool) {
	if created {
		c.Created++
	} else {
		c.Existing++
	}
}
