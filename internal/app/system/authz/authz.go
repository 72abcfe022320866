// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false, so ok=true always means a usable id.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// corrupted session; fail closed
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// UserEmail returns the signed-in user's email, or "".
func UserEmail(r *http.Request) string {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return ""
	}
	return user.Email
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsCitizen reports whether the current request's user is a citizen.
func IsCitizen(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleCitizen
}

// IsMaintenance reports whether the current request's user is maintenance staff.
func IsMaintenance(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleMaintenance
}

// CanViewIssue reports whether the user may see an issue's private detail
// (reporter contact, photos, completion proof). Admins see everything,
// citizens see their own reports and staff see work assigned to them.
func CanViewIssue(r *http.Request, issue models.Issue) bool {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return false
	}
	switch strings.ToLower(user.Role) {
	case models.RoleAdmin:
		return true
	case models.RoleCitizen:
		return issue.ReportedBy.UID == user.ID
	case models.RoleMaintenance:
		return issue.AssignedTo != "" && strings.EqualFold(issue.AssignedTo, user.Email)
	}
	return false
}
