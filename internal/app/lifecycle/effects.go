package lifecycle

import (
	"context"

	"github.com/dalemusser/playsafe/internal/app/system/events"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// followUp is what happens after a transition commits.
type followUp struct {
	auditType string
	eventType string
	details   map[string]string
	notify    []models.Notification
}

func (s *Service) afterCommit(ctx context.Context, actor Actor, issue models.Issue, f followUp) {
	if f.details == nil {
		f.details = map[string]string{}
	}
	f.details["status"] = issue.Status
	f.details["report_code"] = issue.ReportCode
	actorID := actor.ID
	s.audit.IssueTransition(ctx, f.auditType, issue.ID, &actorID, f.details)

	if len(f.notify) > 0 {
		if err := s.notifications.InsertMany(ctx, f.notify); err != nil {
			s.log.Warn("write notifications failed",
				zap.String("issue_id", issue.ID.Hex()), zap.String("op", f.eventType), zap.Error(err))
		}
	}

	if err := s.publisher.Publish(ctx, events.ForIssue(f.eventType, issue, actor.Email)); err != nil {
		s.log.Warn("publish event failed",
			zap.String("issue_id", issue.ID.Hex()), zap.String("event", f.eventType), zap.Error(err))
	}

	if issue.PlaygroundID != nil {
		s.recount(ctx, *issue.PlaygroundID)
	}
}

// recount rewrites a playground's derived open issue count.
func (s *Service) recount(ctx context.Context, playgroundID primitive.ObjectID) {
	n, err := s.issues.CountOpenForPlayground(ctx, playgroundID)
	if err == nil {
		err = s.playgrounds.SetActiveIssues(ctx, playgroundID, n)
	}
	if err != nil {
		s.log.Warn("recount playground issues failed",
			zap.String("playground_id", playgroundID.Hex()), zap.Error(err))
	}
}

func note(userID primitive.ObjectID, typ, title, msg string, issue models.Issue) models.Notification {
	id := issue.ID
	return models.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: msg,
		IssueID: &id,
	}
}

// reporterNote addresses the citizen who filed issue. ok is false for
// imported issues whose reporter id is not a local user id.
func reporterNote(issue models.Issue, typ, title, msg string) (models.Notification, bool) {
	uid, err := primitive.ObjectIDFromHex(issue.ReportedBy.UID)
	if err != nil {
		return models.Notification{}, false
	}
	return note(uid, typ, title, msg, issue), true
}
