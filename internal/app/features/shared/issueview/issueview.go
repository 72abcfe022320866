// Package issueview projects issues for responses. Anonymous callers and
// unrelated users get the public fields only.
package issueview

import (
	"net/http"
	"time"

	"github.com/dalemusser/playsafe/internal/app/system/authz"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Public is what anyone may see about an issue.
type Public struct {
	ID            primitive.ObjectID  `json:"id"`
	ReportCode    string              `json:"report_code"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Category      string              `json:"category"`
	Severity      string              `json:"severity"`
	Location      string              `json:"location"`
	PlaygroundID  *primitive.ObjectID `json:"playground_id,omitempty"`
	Status        string              `json:"status"`
	AdminApproved bool                `json:"admin_approved"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	ResolvedAt    *time.Time          `json:"resolved_at"`
}

// PublicOf strips reporter contact, staff identity and evidence.
func PublicOf(i models.Issue) Public {
	return Public{
		ID:            i.ID,
		ReportCode:    i.ReportCode,
		Title:         i.Title,
		Description:   i.Description,
		Category:      i.Category,
		Severity:      i.Severity,
		Location:      i.Location,
		PlaygroundID:  i.PlaygroundID,
		Status:        i.Status,
		AdminApproved: i.AdminApproved,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
		ResolvedAt:    i.ResolvedAt,
	}
}

// PublicList projects a slice.
func PublicList(in []models.Issue) []Public {
	out := make([]Public, 0, len(in))
	for _, i := range in {
		out = append(out, PublicOf(i))
	}
	return out
}

// For returns the full issue when the caller may view it, else the public
// projection.
func For(r *http.Request, i models.Issue) any {
	if authz.CanViewIssue(r, i) {
		return i
	}
	return PublicOf(i)
}

// ForList applies For to each issue.
func ForList(r *http.Request, in []models.Issue) []any {
	out := make([]any, 0, len(in))
	for _, i := range in {
		out = append(out, For(r, i))
	}
	return out
}
