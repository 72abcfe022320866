// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"context"
	"net/http"

	notificationstore "github.com/dalemusser/playsafe/internal/app/store/notifications"
	"github.com/dalemusser/playsafe/internal/app/system/authz"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"go.mongodb.org/mongo-driver/mongo"
)

// SiteName is shown by clients in the page header.
const SiteName = "PLAYSAFE"

// BaseVM is embedded in every page response. Clients use it to draw the
// header and navigation.
type BaseVM struct {
	SiteName string `json:"site_name"`

	IsLoggedIn bool   `json:"is_logged_in"`
	Role       string `json:"role"`
	UserName   string `json:"user_name,omitempty"`
	Home       string `json:"home"`

	Title       string `json:"title"`
	BackURL     string `json:"back_url,omitempty"`
	CurrentPath string `json:"current_path"`

	UnreadNotifications int64 `json:"unread_notifications"`
}

// NewBaseVM builds the common page fields. db may be nil, in which case
// the unread count stays zero.
func NewBaseVM(r *http.Request, db *mongo.Database, title, backDefault string) BaseVM {
	role, name, uid, signedIn := authz.UserCtx(r)

	vm := BaseVM{
		SiteName:    SiteName,
		IsLoggedIn:  signedIn,
		Role:        role,
		UserName:    name,
		Home:        authz.Home(r),
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
	}

	if db != nil && signedIn {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		if n, err := notificationstore.New(db).CountUnread(ctx, uid); err == nil {
			vm.UnreadNotifications = n
		}
	}
	return vm
}

// LoadBase is NewBaseVM without a title.
func LoadBase(r *http.Request, db *mongo.Database) BaseVM {
	return NewBaseVM(r, db, "", "")
}
