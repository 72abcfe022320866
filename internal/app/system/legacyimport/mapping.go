// Package legacyimport maps documents from the old Firebase deployment onto
// the current models. The mapping functions are pure; Importer does the
// reading and writing.
package legacyimport

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/playsafe/internal/app/system/identity"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// legacyDateLayout is the DD/MM/YYYY format the old playground records used.
const legacyDateLayout = "02/01/2006"

// isoDateLayout matches playgroundstore.InspectionLayout.
const isoDateLayout = "2006-01-02"

// InspectionDate converts a DD/MM/YYYY inspection date to YYYY-MM-DD.
// Values already in ISO form pass through. Blank input yields "".
func InspectionDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if t, err := time.Parse(isoDateLayout, s); err == nil {
		return t.Format(isoDateLayout), nil
	}
	t, err := time.Parse(legacyDateLayout, s)
	if err != nil {
		return "", fmt.Errorf("inspection date %q: want DD/MM/YYYY", s)
	}
	return t.Format(isoDateLayout), nil
}

// User builds the consolidated user for a resolved legacy principal.
// Legacy password hashes are not portable, so the account starts disabled
// until the owner resets the password.
func User(lu identity.LegacyUser) models.User {
	u := models.User{
		Email:     strings.TrimSpace(lu.Email),
		FirstName: lu.FirstName,
		LastName:  lu.LastName,
		Role:      lu.Role,
		Status:    models.UserDisabled,
		LegacyUID: lu.UID,
	}
	if t, ok := timeOf(lu.Doc, "createdAt"); ok {
		u.CreatedAt = t
	}
	return u
}

// Playground maps a legacy playground document.
func Playground(legacyID string, doc map[string]any) (models.Playground, error) {
	name := strings.TrimSpace(str(doc, "name"))
	if name == "" {
		return models.Playground{}, fmt.Errorf("playground %s: missing name", legacyID)
	}
	inspected, err := InspectionDate(str(doc, "lastInspection"))
	if err != nil {
		return models.Playground{}, fmt.Errorf("playground %s: %w", legacyID, err)
	}

	lat, lng := floatOf(doc, "latitude"), floatOf(doc, "longitude")
	if coords, ok := doc["coordinates"].(map[string]any); ok {
		lat, lng = floatOf(coords, "lat"), floatOf(coords, "lng")
	}

	now := time.Now().UTC()
	return models.Playground{
		Name:           name,
		Address:        strings.TrimSpace(str(doc, "address")),
		Latitude:       lat,
		Longitude:      lng,
		Description:    strings.TrimSpace(str(doc, "description")),
		Amenities:      strSlice(doc, "amenities"),
		Status:         models.NormalizePlaygroundStatus(str(doc, "status")),
		LastInspection: inspected,
		LegacyID:       legacyID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// importedResolutionNote stands in for the notes a direct resolve requires.
const importedResolutionNote = "Resolved before import."

// Links ties a legacy issue to records already imported.
type Links struct {
	// Playgrounds maps legacy playground ids to current ones; unknown ids
	// drop the link.
	Playgrounds map[string]primitive.ObjectID
	// Staff maps lower-cased emails of maintenance users to their ids.
	Staff map[string]primitive.ObjectID
	// ReporterUID is the current user id of the reporter, or "" when the
	// reporter was not imported.
	ReporterUID string
}

// Issue maps a legacy issue document. An assignee that is not a
// maintenance user is dropped, and the issue is moved to the state it
// would be in without one.
func Issue(legacyID string, doc map[string]any, links Links) models.Issue {
	rep, _ := doc["reportedBy"].(map[string]any)
	issue := models.Issue{
		ReportCode:  strings.TrimSpace(str(doc, "reportId")),
		Title:       strings.TrimSpace(str(doc, "title")),
		Description: strings.TrimSpace(str(doc, "description")),
		Category:    strings.TrimSpace(str(doc, "category")),
		Severity:    models.NormalizeSeverity(strings.ToLower(strings.TrimSpace(str(doc, "severity")))),
		Location:    strings.TrimSpace(str(doc, "location")),
		Status:      models.NormalizeStatus(strings.ToLower(strings.TrimSpace(str(doc, "status")))),
		AssignedTo:  strings.ToLower(strings.TrimSpace(str(doc, "assignedTo"))),
		AssignedBy:  strings.TrimSpace(str(doc, "assignedBy")),
		ReportedBy: models.Reporter{
			UID:       links.ReporterUID,
			Email:     strings.TrimSpace(str(rep, "email")),
			FirstName: strings.TrimSpace(str(rep, "firstName")),
			LastName:  strings.TrimSpace(str(rep, "lastName")),
		},
		ResolvedBy:      strings.TrimSpace(str(doc, "resolvedBy")),
		AdminApproved:   boolOf(doc, "adminApproved"),
		PhotoURLs:       strSlice(doc, "photoUrls"),
		CompletionProof: strSlice(doc, "completionProof"),
		CompletionNotes: strings.TrimSpace(str(doc, "completionNotes")),
		LegacyID:        legacyID,
	}
	if !models.IsValidCategory(issue.Category) {
		issue.Category = "other"
	}
	if issue.ReportCode == "" {
		issue.ReportCode = "LEGACY-" + legacyID
	}
	if pid, ok := links.Playgrounds[str(doc, "playgroundId")]; ok {
		issue.PlaygroundID = &pid
	}

	now := time.Now().UTC()
	issue.CreatedAt = now
	if t, ok := timeOf(doc, "createdAt"); ok {
		issue.CreatedAt = t
	}
	issue.UpdatedAt = issue.CreatedAt
	if t, ok := timeOf(doc, "updatedAt"); ok {
		issue.UpdatedAt = t
	}
	if t, ok := timeOf(doc, "assignedAt"); ok {
		issue.AssignedAt = &t
	}
	if t, ok := timeOf(doc, "workCompletedAt"); ok {
		issue.WorkCompletedAt = &t
	}
	if t, ok := timeOf(doc, "resolvedAt"); ok {
		issue.ResolvedAt = &t
	}

	if issue.AssignedTo != "" {
		if id, ok := links.Staff[issue.AssignedTo]; ok {
			issue.AssignedToID = &id
		} else {
			clearAssignee(&issue)
		}
	}

	// An unassigned record cannot sit in a staff-owned state.
	if issue.AssignedToID == nil && (issue.Status == models.StatusAssigned || issue.Status == models.StatusInProgress) {
		issue.Status = models.StatusPending
	}

	switch issue.Status {
	case models.StatusPending:
		clearAssignee(&issue)
		issue.WorkCompletedAt = nil
		issue.ResolvedAt = nil
		issue.AdminApproved = false
	case models.StatusResolved:
		if issue.WorkCompletedAt != nil && issue.AssignedToID != nil {
			issue.ResolutionKind = models.ResolutionCompleted
		} else {
			issue.ResolutionKind = models.ResolutionDirect
			issue.WorkCompletedAt = nil
			issue.AdminApproved = false
			issue.ResolutionNotes = importedResolutionNote
		}
		if issue.ResolvedAt == nil {
			t := issue.UpdatedAt
			issue.ResolvedAt = &t
		}
	default:
		issue.ResolvedAt = nil
		issue.AdminApproved = false
	}
	return issue
}

func clearAssignee(issue *models.Issue) {
	issue.AssignedTo = ""
	issue.AssignedToID = nil
	issue.AssignedAt = nil
	issue.AssignedBy = ""
}

// Assignment maps a legacy assignment document onto the imported issue.
func Assignment(legacyID string, doc map[string]any, issueID primitive.ObjectID) models.Assignment {
	a := models.Assignment{
		IssueID:          issueID,
		IssueTitle:       strings.TrimSpace(str(doc, "issueTitle")),
		IssueLocation:    strings.TrimSpace(str(doc, "issueLocation")),
		IssueSeverity:    models.NormalizeSeverity(strings.ToLower(strings.TrimSpace(str(doc, "issueSeverity")))),
		AssignedTo:       strings.ToLower(strings.TrimSpace(str(doc, "assignedTo"))),
		AssignedToName:   strings.TrimSpace(str(doc, "assignedToName")),
		AssignedBy:       strings.TrimSpace(str(doc, "assignedBy")),
		Status:           strings.ToLower(strings.TrimSpace(str(doc, "status"))),
		NotificationSent: boolOf(doc, "notificationSent"),
		LegacyID:         legacyID,
	}
	switch a.Status {
	case models.AssignmentActive, models.AssignmentCompleted, models.AssignmentReassigned:
	default:
		a.Status = models.AssignmentActive
	}
	a.AssignedAt = time.Now().UTC()
	if t, ok := timeOf(doc, "assignedAt"); ok {
		a.AssignedAt = t
	}
	if t, ok := timeOf(doc, "completedAt"); ok {
		a.CompletedAt = &t
	}
	return a
}

// Settle closes an active legacy assignment that no longer matches its
// imported issue. An assignment stays active only while the issue is with
// the same staff member and not yet approved.
func Settle(a *models.Assignment, issue models.Issue) {
	if a.Status != models.AssignmentActive {
		return
	}
	open := issue.Status == models.StatusAssigned ||
		issue.Status == models.StatusInProgress ||
		(issue.Status == models.StatusResolved && issue.ResolutionKind == models.ResolutionCompleted && !issue.AdminApproved)
	if open && issue.AssignedTo == a.AssignedTo {
		return
	}
	if issue.Status == models.StatusResolved {
		a.Status = models.AssignmentCompleted
		if a.CompletedAt == nil && issue.ResolvedAt != nil {
			t := *issue.ResolvedAt
			a.CompletedAt = &t
		}
		return
	}
	a.Status = models.AssignmentReassigned
}

func str(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

func boolOf(doc map[string]any, key string) bool {
	b, _ := doc[key].(bool)
	return b
}

func floatOf(doc map[string]any, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func strSlice(doc map[string]any, key string) []string {
	out := []string{}
	switch v := doc[key].(type) {
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// timeOf reads a Firestore timestamp. The client decodes timestamps as
// time.Time; exports may carry RFC 3339 strings instead.
func timeOf(doc map[string]any, key string) (time.Time, bool) {
	switch v := doc[key].(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	case string:
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}
