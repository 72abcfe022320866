package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	assignmentstore "github.com/dalemusser/playsafe/internal/app/store/assignments"
	"github.com/dalemusser/playsafe/internal/app/store/audit"
	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/app/system/events"
	"github.com/dalemusser/playsafe/internal/app/system/htmlsanitize"
	"github.com/dalemusser/playsafe/internal/app/system/photos"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxNotesLen bounds completion and resolution notes.
const MaxNotesLen = 2000

var openStatuses = []string{models.StatusPending, models.StatusAssigned, models.StatusInProgress}

var awaitingApproval = issuestore.Guard{Statuses: []string{models.StatusResolved}, AwaitingApproval: true}

func requireRole(actor Actor, role string) error {
	if actor.Role != role {
		return ErrForbidden
	}
	return nil
}

func (s *Service) activeStaff(ctx context.Context, email string) (*models.User, error) {
	staff, err := s.users.GetActiveStaff(ctx, strings.TrimSpace(email))
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, ErrUnknownStaff
	}
	if err != nil {
		return nil, errors.Wrap(err, "load staff")
	}
	return staff, nil
}

func (s *Service) newAssignment(issue models.Issue, staff *models.User, admin Actor) models.Assignment {
	return models.Assignment{
		IssueID:          issue.ID,
		IssueTitle:       issue.Title,
		IssueLocation:    issue.Location,
		IssueSeverity:    issue.Severity,
		AssignedTo:       staff.Email,
		AssignedToName:   staff.FullName(),
		AssignedBy:       admin.Email,
		AssignedAt:       *issue.AssignedAt,
		Status:           models.AssignmentActive,
		NotificationSent: true,
	}
}

func (s *Service) insertAssignment(ctx context.Context, a models.Assignment, undo *undoLog) error {
	created, err := s.assignments.Insert(ctx, a)
	if err != nil {
		return err
	}
	undo.push(func(ctx context.Context) error { return s.assignments.Delete(ctx, created.ID) })
	return nil
}

// closeActive closes the issue's active assignment if there is one.
// Imported issues may have none.
func (s *Service) closeActive(ctx context.Context, issueID primitive.ObjectID, status string, undo *undoLog) error {
	closed, err := s.assignments.CloseActive(ctx, issueID, status)
	if errors.Is(err, assignmentstore.ErrNoActive) {
		s.log.Debug("no active assignment to close", zap.String("issue_id", issueID.Hex()))
		return nil
	}
	if err != nil {
		return err
	}
	undo.push(func(ctx context.Context) error { return s.assignments.Reopen(ctx, closed.ID) })
	return nil
}

// Assign routes a pending issue to an active maintenance user.
func (s *Service) Assign(ctx context.Context, actor Actor, issueID primitive.ObjectID, staffEmail string) (models.Issue, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return models.Issue{}, err
	}
	staff, err := s.activeStaff(ctx, staffEmail)
	if err != nil {
		return models.Issue{}, err
	}

	now := s.now().UTC()
	set := bson.M{
		"status":         models.StatusAssigned,
		"assigned_to":    staff.Email,
		"assigned_to_id": staff.ID,
		"assigned_by":    actor.Email,
		"assigned_at":    now,
		"updated_at":     now,
	}
	issue, err := s.transition(ctx, "assign", issueID,
		issuestore.Guard{Statuses: []string{models.StatusPending}}, set, nil,
		func(ctx context.Context, next models.Issue, undo *undoLog) error {
			return s.insertAssignment(ctx, s.newAssignment(next, staff, actor), undo)
		})
	if err != nil {
		return models.Issue{}, err
	}

	s.afterCommit(ctx, actor, issue, followUp{
		auditType: audit.EventIssueAssigned,
		eventType: events.IssueAssigned,
		details:   map[string]string{"from": models.StatusPending, "assigned_to": staff.Email},
		notify: []models.Notification{note(staff.ID, models.NotifyAssignment, "New assignment",
			fmt.Sprintf("%s (%s) at %s was assigned to you.", issue.Title, issue.ReportCode, issue.Location), issue)},
	})
	return issue, nil
}

// Reassign moves an open, already assigned issue to different staff. Work
// restarts from assigned.
func (s *Service) Reassign(ctx context.Context, actor Actor, issueID primitive.ObjectID, staffEmail string) (models.Issue, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return models.Issue{}, err
	}
	staff, err := s.activeStaff(ctx, staffEmail)
	if err != nil {
		return models.Issue{}, err
	}
	current, err := s.Get(ctx, issueID)
	if err != nil {
		return models.Issue{}, err
	}
	if current.AssignedTo == staff.Email {
		return models.Issue{}, invalid("The issue is already assigned to this staff member.")
	}

	now := s.now().UTC()
	set := bson.M{
		"status":         models.StatusAssigned,
		"assigned_to":    staff.Email,
		"assigned_to_id": staff.ID,
		"assigned_by":    actor.Email,
		"assigned_at":    now,
		"updated_at":     now,
	}
	guard := issuestore.Guard{
		Statuses:   []string{models.StatusAssigned, models.StatusInProgress},
		AssignedTo: current.AssignedTo,
	}
	issue, err := s.transition(ctx, "reassign", issueID, guard, set, nil,
		func(ctx context.Context, next models.Issue, undo *undoLog) error {
			if err := s.closeActive(ctx, next.ID, models.AssignmentReassigned, undo); err != nil {
				return err
			}
			return s.insertAssignment(ctx, s.newAssignment(next, staff, actor), undo)
		})
	if err != nil {
		return models.Issue{}, err
	}

	s.afterCommit(ctx, actor, issue, followUp{
		auditType: audit.EventIssueReassigned,
		eventType: events.IssueReassigned,
		details: map[string]string{
			"from":        current.Status,
			"previous_to": current.AssignedTo,
			"assigned_to": staff.Email,
		},
		notify: []models.Notification{note(staff.ID, models.NotifyAssignment, "New assignment",
			fmt.Sprintf("%s (%s) at %s was reassigned to you.", issue.Title, issue.ReportCode, issue.Location), issue)},
	})
	return issue, nil
}

// explainStale distinguishes "not your issue" from "wrong state" after a
// staff guard failed.
func (s *Service) explainStale(ctx context.Context, err error, issueID primitive.ObjectID, actor Actor) error {
	if !errors.Is(err, ErrInvalidTransition) {
		return err
	}
	issue, gerr := s.Get(ctx, issueID)
	if gerr != nil {
		return err
	}
	if issue.AssignedTo != actor.Email {
		return ErrForbidden
	}
	return err
}

// StartWork moves an assigned issue to in-progress. Only the assignee may
// start it.
func (s *Service) StartWork(ctx context.Context, actor Actor, issueID primitive.ObjectID) (models.Issue, error) {
	if err := requireRole(actor, models.RoleMaintenance); err != nil {
		return models.Issue{}, err
	}
	guard := issuestore.Guard{Statuses: []string{models.StatusAssigned}, AssignedTo: actor.Email}
	issue, err := s.transition(ctx, "start", issueID, guard, bson.M{
		"status":     models.StatusInProgress,
		"updated_at": s.now().UTC(),
	}, nil, nil)
	if err != nil {
		return models.Issue{}, s.explainStale(ctx, err, issueID, actor)
	}

	f := followUp{
		auditType: audit.EventIssueStarted,
		eventType: events.IssueStarted,
		details:   map[string]string{"from": models.StatusAssigned},
	}
	if n, ok := reporterNote(issue, models.NotifyProgress, "Work started",
		fmt.Sprintf("Maintenance has started work on your report %s.", issue.ReportCode)); ok {
		f.notify = append(f.notify, n)
	}
	s.afterCommit(ctx, actor, issue, f)
	return issue, nil
}

// CompleteInput is the proof staff submit when finishing work.
type CompleteInput struct {
	Photos []string `json:"photos"`
	Notes  string   `json:"notes"`
}

// CompleteWork resolves an in-progress issue with proof. It then waits for
// admin approval.
func (s *Service) CompleteWork(ctx context.Context, actor Actor, issueID primitive.ObjectID, in CompleteInput) (models.Issue, error) {
	if err := requireRole(actor, models.RoleMaintenance); err != nil {
		return models.Issue{}, err
	}
	notes := htmlsanitize.PlainText(in.Notes)
	if utf8.RuneCountInString(notes) > MaxNotesLen {
		return models.Issue{}, invalid(fmt.Sprintf("Notes must be at most %d characters.", MaxNotesLen))
	}
	if in.Photos == nil {
		in.Photos = []string{}
	}
	if err := photos.Validate(photos.KindCompletion, in.Photos, s.photos.PublicBase()); err != nil {
		return models.Issue{}, invalid(err.Error())
	}
	proof, err := s.photos.Persist(ctx, photos.KindCompletion, in.Photos)
	if err != nil {
		return models.Issue{}, errors.Wrap(err, "store completion proof")
	}

	now := s.now().UTC()
	guard := issuestore.Guard{Statuses: []string{models.StatusInProgress}, AssignedTo: actor.Email}
	issue, err := s.transition(ctx, "complete", issueID, guard, bson.M{
		"status":            models.StatusResolved,
		"work_completed_at": now,
		"completion_proof":  proof,
		"completion_notes":  notes,
		"resolved_by":       actor.Email,
		"resolution_kind":   models.ResolutionCompleted,
		"admin_approved":    false,
		"updated_at":        now,
	}, nil, nil)
	if err != nil {
		return models.Issue{}, s.explainStale(ctx, err, issueID, actor)
	}

	s.afterCommit(ctx, actor, issue, followUp{
		auditType: audit.EventIssueCompleted,
		eventType: events.IssueCompleted,
		details:   map[string]string{"from": models.StatusInProgress, "proof_photos": fmt.Sprint(len(proof))},
	})
	return issue, nil
}

// Approve accepts staff proof and closes the issue and its assignment.
func (s *Service) Approve(ctx context.Context, actor Actor, issueID primitive.ObjectID) (models.Issue, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return models.Issue{}, err
	}
	now := s.now().UTC()
	issue, err := s.transition(ctx, "approve", issueID, awaitingApproval, bson.M{
		"admin_approved": true,
		"resolved_at":    now,
		"resolved_by":    actor.Email,
		"updated_at":     now,
	}, nil, func(ctx context.Context, next models.Issue, undo *undoLog) error {
		return s.closeActive(ctx, next.ID, models.AssignmentCompleted, undo)
	})
	if err != nil {
		return models.Issue{}, err
	}

	f := followUp{
		auditType: audit.EventIssueApproved,
		eventType: events.IssueApproved,
		details:   map[string]string{"from": models.StatusResolved},
	}
	if issue.AssignedToID != nil {
		f.notify = append(f.notify, note(*issue.AssignedToID, models.NotifyCompletion, "Work approved",
			fmt.Sprintf("Your work on %s (%s) was approved.", issue.Title, issue.ReportCode), issue))
	}
	if n, ok := reporterNote(issue, models.NotifyResolution, "Issue resolved",
		fmt.Sprintf("Your report %s has been resolved.", issue.ReportCode)); ok {
		f.notify = append(f.notify, n)
	}
	s.afterCommit(ctx, actor, issue, f)
	return issue, nil
}

// Reject sends staff proof back. The issue returns to in-progress with the
// proof cleared.
func (s *Service) Reject(ctx context.Context, actor Actor, issueID primitive.ObjectID, reason string) (models.Issue, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return models.Issue{}, err
	}
	reason = htmlsanitize.PlainText(reason)
	if utf8.RuneCountInString(reason) > MaxNotesLen {
		return models.Issue{}, invalid(fmt.Sprintf("Reason must be at most %d characters.", MaxNotesLen))
	}

	issue, err := s.transition(ctx, "reject", issueID, awaitingApproval, bson.M{
		"status":            models.StatusInProgress,
		"work_completed_at": nil,
		"completion_proof":  []string{},
		"completion_notes":  "",
		"admin_approved":    false,
		"updated_at":        s.now().UTC(),
	}, []string{"resolved_by", "resolution_kind"}, nil)
	if err != nil {
		return models.Issue{}, err
	}

	msg := fmt.Sprintf("Your completion of %s (%s) was sent back.", issue.Title, issue.ReportCode)
	if reason != "" {
		msg += " Reason: " + reason
	}
	f := followUp{
		auditType: audit.EventIssueRejected,
		eventType: events.IssueRejected,
		details:   map[string]string{"from": models.StatusResolved, "reason": reason},
	}
	if issue.AssignedToID != nil {
		f.notify = append(f.notify, note(*issue.AssignedToID, models.NotifyRejection, "Work sent back", msg, issue))
	}
	s.afterCommit(ctx, actor, issue, f)
	return issue, nil
}

// ResolveDirect lets an admin close an open issue without staff work.
// Such issues have no work_completed_at and can never be approved.
func (s *Service) ResolveDirect(ctx context.Context, actor Actor, issueID primitive.ObjectID, notes string) (models.Issue, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return models.Issue{}, err
	}
	notes = htmlsanitize.PlainText(notes)
	if notes == "" {
		return models.Issue{}, invalid("Resolution notes are required.")
	}
	if utf8.RuneCountInString(notes) > MaxNotesLen {
		return models.Issue{}, invalid(fmt.Sprintf("Notes must be at most %d characters.", MaxNotesLen))
	}
	now := s.now().UTC()
	prev, issue, err := s.transitionFrom(ctx, "resolve", issueID, issuestore.Guard{Statuses: openStatuses}, bson.M{
		"status":            models.StatusResolved,
		"resolved_at":       now,
		"resolved_by":       actor.Email,
		"resolution_kind":   models.ResolutionDirect,
		"resolution_notes":  notes,
		"admin_approved":    false,
		"work_completed_at": nil,
		"updated_at":        now,
	}, nil, func(ctx context.Context, next models.Issue, undo *undoLog) error {
		return s.closeActive(ctx, next.ID, models.AssignmentCompleted, undo)
	})
	if err != nil {
		return models.Issue{}, err
	}

	f := followUp{
		auditType: audit.EventIssueResolved,
		eventType: events.IssueResolved,
		details:   map[string]string{"from": prev.Status},
	}
	if n, ok := reporterNote(issue, models.NotifyResolution, "Issue resolved",
		fmt.Sprintf("Your report %s has been resolved.", issue.ReportCode)); ok {
		f.notify = append(f.notify, n)
	}
	s.afterCommit(ctx, actor, issue, f)
	return issue, nil
}
