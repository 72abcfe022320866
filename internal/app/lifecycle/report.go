package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/playsafe/internal/app/store/audit"
	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	"github.com/dalemusser/playsafe/internal/app/system/events"
	"github.com/dalemusser/playsafe/internal/app/system/geo"
	"github.com/dalemusser/playsafe/internal/app/system/htmlsanitize"
	"github.com/dalemusser/playsafe/internal/app/system/photos"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Field limits for a report.
const (
	MaxTitleLen       = 120
	MaxDescriptionLen = 2000
	MaxLocationLen    = 200

	reportCodeAttempts = 5
)

// ReportInput is what a citizen submits.
type ReportInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Severity     string   `json:"severity"`
	Location     string   `json:"location"`
	PlaygroundID string   `json:"playground_id"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Photos       []string `json:"photos"`
}

// Report files a new pending issue for a citizen.
func (s *Service) Report(ctx context.Context, actor Actor, in ReportInput) (models.Issue, error) {
	if actor.Role != models.RoleCitizen {
		return models.Issue{}, ErrForbidden
	}
	if err := s.checkReportLimit(ctx, actor.ID); err != nil {
		return models.Issue{}, err
	}

	issue, err := s.buildIssue(ctx, in)
	if err != nil {
		return models.Issue{}, err
	}

	reporter, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return models.Issue{}, errors.Wrap(err, "load reporter")
	}
	issue.ReportedBy = models.Reporter{
		UID:       reporter.ID.Hex(),
		Email:     reporter.Email,
		FirstName: reporter.FirstName,
		LastName:  reporter.LastName,
	}

	stored, err := s.photos.Persist(ctx, photos.KindReport, issue.PhotoURLs)
	if err != nil {
		return models.Issue{}, errors.Wrap(err, "store report photos")
	}
	issue.PhotoURLs = stored

	now := s.now().UTC()
	issue.Status = models.StatusPending
	issue.AdminApproved = false
	issue.CreatedAt = now
	issue.UpdatedAt = now
	issue.CompletionProof = []string{}

	var created models.Issue
	for attempt := 1; ; attempt++ {
		issue.ID = primitive.NewObjectID()
		issue.ReportCode = s.codes.Next()
		created, err = s.issues.Insert(ctx, issue)
		if err == nil {
			break
		}
		if !errors.Is(err, issuestore.ErrDuplicateReportCode) || attempt == reportCodeAttempts {
			return models.Issue{}, errors.Wrap(err, "insert issue")
		}
		s.log.Debug("report code collision, retrying", zap.String("code", issue.ReportCode))
	}

	f := followUp{auditType: audit.EventIssueReported, eventType: events.IssueReported,
		details: map[string]string{"severity": created.Severity, "category": created.Category}}
	if created.Severity == models.SeverityHigh {
		f.notify = s.urgentNotes(ctx, created)
	}
	s.afterCommit(ctx, actor, created, f)
	return created, nil
}

func (s *Service) checkReportLimit(ctx context.Context, citizen primitive.ObjectID) error {
	if s.limiter == nil {
		return nil
	}
	d, err := s.limiter.Check(ctx, citizen.Hex())
	if err != nil {
		// fail open
		s.log.Warn("report rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !d.Allowed {
		return ErrRateLimited
	}
	return nil
}

// buildIssue validates and sanitizes the descriptive part of a report.
func (s *Service) buildIssue(ctx context.Context, in ReportInput) (models.Issue, error) {
	title := htmlsanitize.PlainText(in.Title)
	desc := htmlsanitize.PlainText(in.Description)
	loc := htmlsanitize.PlainText(in.Location)

	switch {
	case title == "":
		return models.Issue{}, invalid("Title is required.")
	case utf8.RuneCountInString(title) > MaxTitleLen:
		return models.Issue{}, invalid(fmt.Sprintf("Title must be at most %d characters.", MaxTitleLen))
	case desc == "":
		return models.Issue{}, invalid("Description is required.")
	case utf8.RuneCountInString(desc) > MaxDescriptionLen:
		return models.Issue{}, invalid(fmt.Sprintf("Description must be at most %d characters.", MaxDescriptionLen))
	case utf8.RuneCountInString(loc) > MaxLocationLen:
		return models.Issue{}, invalid(fmt.Sprintf("Location must be at most %d characters.", MaxLocationLen))
	}

	category := strings.TrimSpace(in.Category)
	if !models.IsValidCategory(category) {
		return models.Issue{}, invalid("Choose a valid category.")
	}
	severity := strings.TrimSpace(in.Severity)
	if severity == "" {
		severity = models.SeverityMedium
	}
	if models.NormalizeSeverity(severity) != severity {
		return models.Issue{}, invalid("Severity must be low, medium or high.")
	}

	issue := models.Issue{
		Title:       title,
		Description: desc,
		Category:    category,
		Severity:    severity,
		Location:    loc,
	}

	if (in.Latitude == nil) != (in.Longitude == nil) {
		return models.Issue{}, invalid("Latitude and longitude must be given together.")
	}
	if in.Latitude != nil {
		p := geo.Point{Lat: *in.Latitude, Lng: *in.Longitude}
		if !p.Valid() {
			return models.Issue{}, invalid("Coordinates are out of range.")
		}
		issue.Latitude, issue.Longitude = in.Latitude, in.Longitude
		if issue.Location == "" {
			issue.Location = fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lng)
		}
	}
	if issue.Location == "" {
		return models.Issue{}, invalid("Location is required.")
	}

	if pid := strings.TrimSpace(in.PlaygroundID); pid != "" {
		oid, err := primitive.ObjectIDFromHex(pid)
		if err != nil {
			return models.Issue{}, invalid("Unknown playground.")
		}
		ok, err := s.playgrounds.Exists(ctx, oid)
		if err != nil {
			return models.Issue{}, errors.Wrap(err, "check playground")
		}
		if !ok {
			return models.Issue{}, invalid("Unknown playground.")
		}
		issue.PlaygroundID = &oid
	}

	if in.Photos == nil {
		in.Photos = []string{}
	}
	if err := photos.Validate(photos.KindReport, in.Photos, s.photos.PublicBase()); err != nil {
		return models.Issue{}, invalid(err.Error())
	}
	issue.PhotoURLs = in.Photos
	return issue, nil
}

func (s *Service) urgentNotes(ctx context.Context, issue models.Issue) []models.Notification {
	admins, err := s.users.ActiveAdminIDs(ctx)
	if err != nil {
		s.log.Warn("list admins for urgent notification failed", zap.Error(err))
		return nil
	}
	out := make([]models.Notification, 0, len(admins))
	for _, id := range admins {
		out = append(out, note(id, models.NotifyUrgent, "Urgent issue reported",
			fmt.Sprintf("%s (%s) at %s needs immediate attention.", issue.Title, issue.ReportCode, issue.Location), issue))
	}
	return out
}
