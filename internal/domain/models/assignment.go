// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment statuses.
const (
	AssignmentActive     = "active"
	AssignmentCompleted  = "completed"
	AssignmentReassigned = "reassigned"
)

// Assignment records one admin-to-staff routing of an issue. The issue
// document stays authoritative for who holds the work.
type Assignment struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IssueID primitive.ObjectID `bson:"issue_id" json:"issue_id"`

	// snapshot at assignment time
	IssueTitle    string `bson:"issue_title" json:"issue_title"`
	IssueLocation string `bson:"issue_location" json:"issue_location"`
	IssueSeverity string `bson:"issue_severity" json:"issue_severity"`

	AssignedTo       string    `bson:"assigned_to" json:"assigned_to"`
	AssignedToName   string    `bson:"assigned_to_name" json:"assigned_to_name"`
	AssignedBy       string    `bson:"assigned_by" json:"assigned_by"`
	AssignedAt       time.Time `bson:"assigned_at" json:"assigned_at"`
	Status           string    `bson:"status" json:"status"`
	NotificationSent bool      `bson:"notification_sent" json:"notification_sent"`

	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`

	LegacyID string `bson:"legacy_id,omitempty" json:"-"`
}
