// internal/domain/models/issue.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Issue statuses, in lifecycle order.
const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
)

// Severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Resolution kinds recorded when an issue reaches resolved.
const (
	ResolutionCompleted = "completed" // staff submitted completion proof
	ResolutionDirect    = "direct"    // admin closed it without staff work
)

// Categories lists the accepted issue categories.
var Categories = []string{
	"broken-equipment",
	"surface-damage",
	"litter-debris",
	"vandalism",
	"safety-hazard",
	"maintenance-needed",
	"other",
}

// Reporter is a snapshot of the reporting citizen taken at creation time.
// It is never refreshed.
type Reporter struct {
	UID       string `bson:"uid" json:"uid"`
	Email     string `bson:"email" json:"email"`
	FirstName string `bson:"first_name" json:"first_name"`
	LastName  string `bson:"last_name" json:"last_name"`
}

// Issue is a reported playground problem and the workflow state around it.
type Issue struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReportCode string             `bson:"report_code" json:"report_code"`

	Title        string              `bson:"title" json:"title"`
	Description  string              `bson:"description" json:"description"`
	Category     string              `bson:"category" json:"category"`
	Severity     string              `bson:"severity" json:"severity"`
	Location     string              `bson:"location" json:"location"`
	PlaygroundID *primitive.ObjectID `bson:"playground_id,omitempty" json:"playground_id,omitempty"`
	Latitude     *float64            `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude    *float64            `bson:"longitude,omitempty" json:"longitude,omitempty"`

	Status        string              `bson:"status" json:"status"`
	AssignedTo    string              `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"` // staff email
	AssignedToID  *primitive.ObjectID `bson:"assigned_to_id,omitempty" json:"assigned_to_id,omitempty"`
	AssignedBy    string              `bson:"assigned_by,omitempty" json:"assigned_by,omitempty"`
	AssignedAt    *time.Time          `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	AdminApproved bool                `bson:"admin_approved" json:"admin_approved"`

	ReportedBy      Reporter   `bson:"reported_by" json:"reported_by"`
	ResolvedBy      string     `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	ResolutionKind  string     `bson:"resolution_kind,omitempty" json:"resolution_kind,omitempty"`
	ResolutionNotes string     `bson:"resolution_notes,omitempty" json:"resolution_notes,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at" json:"updated_at"`
	WorkCompletedAt *time.Time `bson:"work_completed_at" json:"work_completed_at"`
	ResolvedAt      *time.Time `bson:"resolved_at" json:"resolved_at"`

	PhotoURLs       []string `bson:"photo_urls" json:"photo_urls"`
	CompletionProof []string `bson:"completion_proof" json:"completion_proof"`
	CompletionNotes string   `bson:"completion_notes" json:"completion_notes"`

	// LegacyID is the Firestore document id for imported issues.
	LegacyID string `bson:"legacy_id,omitempty" json:"-"`
}

// Normalize applies read-side defaults for values the store treats as
// open strings, and replaces nil slices with empty ones.
func (i *Issue) Normalize() {
	i.Severity = NormalizeSeverity(i.Severity)
	i.Status = NormalizeStatus(i.Status)
	if i.PhotoURLs == nil {
		i.PhotoURLs = []string{}
	}
	if i.CompletionProof == nil {
		i.CompletionProof = []string{}
	}
}

// AwaitingApproval reports whether staff finished the work and an admin
// has not yet approved it.
func (i Issue) AwaitingApproval() bool {
	return i.Status == StatusResolved && !i.AdminApproved && i.WorkCompletedAt != nil
}

// NormalizeSeverity maps unknown severities to medium.
func NormalizeSeverity(s string) string {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return s
	}
	return SeverityMedium
}

// NormalizeStatus maps unknown statuses to pending.
func NormalizeStatus(s string) string {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusResolved:
		return s
	}
	return StatusPending
}

// IsValidStatus reports whether s is a known issue status.
func IsValidStatus(s string) bool {
	return NormalizeStatus(s) == s
}

// IsValidCategory reports whether c is a known category.
func IsValidCategory(c string) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}
