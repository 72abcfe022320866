package viewdata_test

import (
	"net/http/httptest"
	"testing"

	notificationstore "github.com/dalemusser/playsafe/internal/app/store/notifications"
	"github.com/dalemusser/playsafe/internal/app/system/viewdata"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewBaseVM_Anonymous(t *testing.T) {
	req := httptest.NewRequest("GET", "/issues", nil)
	vm := viewdata.NewBaseVM(req, nil, "Issues", "/")

	if vm.IsLoggedIn {
		t.Error("expected IsLoggedIn=false")
	}
	if vm.Role != "visitor" {
		t.Errorf("Role: got %q, want visitor", vm.Role)
	}
	if vm.Home != "/" {
		t.Errorf("Home: got %q, want /", vm.Home)
	}
	if vm.Title != "Issues" || vm.SiteName != viewdata.SiteName {
		t.Errorf("got %+v", vm)
	}
}

func TestNewBaseVM_UnreadCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := testutil.StaffUser()
	uid, _ := primitive.ObjectIDFromHex(user.ID)
	err := notificationstore.New(db).InsertMany(ctx, []models.Notification{
		{UserID: uid, Type: models.NotifyAssignment, Title: "a"},
		{UserID: uid, Type: models.NotifyRejection, Title: "b"},
	})
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	req := testutil.WithUser(httptest.NewRequest("GET", "/maintenance", nil), user)
	vm := viewdata.NewBaseVM(req, db, "Maintenance", "/")

	if !vm.IsLoggedIn || vm.Role != models.RoleMaintenance {
		t.Errorf("got logged in %v role %q", vm.IsLoggedIn, vm.Role)
	}
	if vm.Home != "/maintenance" {
		t.Errorf("Home: got %q", vm.Home)
	}
	if vm.UnreadNotifications != 2 {
		t.Errorf("UnreadNotifications: got %d, want 2", vm.UnreadNotifications)
	}
}
