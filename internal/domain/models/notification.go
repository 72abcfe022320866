// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types.
const (
	NotifyAssignment = "assignment" // staff: an issue was assigned to you
	NotifyCompletion = "completion" // staff: your work was approved
	NotifyRejection  = "rejection"  // staff: your completion was sent back
	NotifyUrgent     = "urgent"     // admins: a high severity issue was reported
	NotifyProgress   = "progress"   // reporter: work started
	NotifyResolution = "resolution" // reporter: the issue was closed
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Type      string              `bson:"type" json:"type"`
	Title     string              `bson:"title" json:"title"`
	Message   string              `bson:"message" json:"message"`
	IssueID   *primitive.ObjectID `bson:"issue_id,omitempty" json:"issue_id,omitempty"`
	Read      bool                `bson:"read" json:"read"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
