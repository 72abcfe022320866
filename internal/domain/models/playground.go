// internal/domain/models/playground.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Playground condition statuses, set by admins.
const (
	PlaygroundGood      = "Good"
	PlaygroundAttention = "Attention"
	PlaygroundUrgent    = "Urgent"
)

// Playground is a physical location issues can be reported against.
type Playground struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Address     string             `bson:"address" json:"address"`
	Latitude    float64            `bson:"latitude" json:"latitude"`
	Longitude   float64            `bson:"longitude" json:"longitude"`
	Description string             `bson:"description" json:"description"`
	Amenities   []string           `bson:"amenities" json:"amenities"`
	Status      string             `bson:"status" json:"status"`

	// ActiveIssues is derived from issues with this playground_id that are
	// not yet resolved. Only the recount path writes it.
	ActiveIssues int `bson:"active_issues" json:"active_issues"`

	LastInspection string `bson:"last_inspection,omitempty" json:"last_inspection,omitempty"` // YYYY-MM-DD

	LegacyID string `bson:"legacy_id,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NormalizePlaygroundStatus maps unknown statuses to Good.
func NormalizePlaygroundStatus(s string) string {
	switch s {
	case PlaygroundGood, PlaygroundAttention, PlaygroundUrgent:
		return s
	}
	return PlaygroundGood
}

// IsValidPlaygroundStatus reports whether s is a known playground status.
func IsValidPlaygroundStatus(s string) bool {
	return NormalizePlaygroundStatus(s) == s
}
