// internal/domain/models/user.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles. A user carries exactly one.
const (
	RoleCitizen     = "citizen"
	RoleAdmin       = "admin"
	RoleMaintenance = "maintenance"
)

// User statuses.
const (
	UserActive   = "active"
	UserDisabled = "disabled"
)

// User is the single identity record for citizens, administrators and
// maintenance staff. Role is a field, not a collection.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"` // case-folded, unique
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	Role         string             `bson:"role" json:"role"`
	Status       string             `bson:"status" json:"status"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`

	// LegacyUID is the identity id the user had in the Firebase deployment.
	LegacyUID string `bson:"legacy_uid,omitempty" json:"legacy_uid,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsValidRole reports whether role is one of the three known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleCitizen, RoleAdmin, RoleMaintenance:
		return true
	}
	return false
}

// RoleHome returns the dashboard path for a role.
func RoleHome(role string) string {
	switch role {
	case RoleAdmin:
		return "/admin"
	case RoleCitizen:
		return "/citizen"
	case RoleMaintenance:
		return "/maintenance"
	default:
		return "/dashboard"
	}
}
