package dashboard_test

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/features/dashboard"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(db *mongo.Database) *dashboard.Handler {
	logger := zap.NewNop()
	return dashboard.NewHandler(db, uierrors.NewErrorLogger(logger), logger)
}

func TestServeDashboard_RedirectsToRoleHome(t *testing.T) {
	h := &dashboard.Handler{Log: zap.NewNop()}

	tests := []struct {
		name string
		user *testutil.TestUser
		want string
	}{
		{"anonymous", nil, "/"},
		{"admin", &testutil.TestUser{ID: testutil.AdminUser().ID, Role: models.RoleAdmin}, "/admin"},
		{"citizen", &testutil.TestUser{ID: testutil.CitizenUser().ID, Role: models.RoleCitizen}, "/citizen"},
		{"maintenance", &testutil.TestUser{ID: testutil.StaffUser().ID, Role: models.RoleMaintenance}, "/maintenance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequest(http.MethodGet, "/dashboard")
			if tt.user != nil {
				req = testutil.WithUser(req, *tt.user)
			}
			rec := testutil.NewRecorder()
			h.ServeDashboard(rec, req)
			rec.AssertRedirect(t, tt.want)
		})
	}
}

func TestServeCitizen(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	me := fx.CreateCitizen(ctx, "Kavya", "kavya@example.com")
	other := fx.CreateCitizen(ctx, "Arun", "arun@example.com")
	fx.CreateIssue(ctx, "Mine", me, nil)
	fx.CreateIssue(ctx, "Theirs", other, nil)
	for i, name := range []string{"P1", "P2", "P3", "P4", "P5", "P6"} {
		fx.CreatePlayground(ctx, name, 13.0+float64(i)*0.01, 80.2)
	}
	h := newHandler(db)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/citizen?lat=13.0&lng=80.2", testutil.AsTestUser(me))
	rec := testutil.NewRecorder()
	h.ServeCitizen(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		MyReports []struct {
			Title string `json:"title"`
		} `json:"my_reports"`
		Community []map[string]any `json:"community"`
		Nearby    []struct {
			Name string `json:"name"`
		} `json:"nearby"`
		HasOrigin bool `json:"has_origin"`
	}
	rec.DecodeJSON(t, &body)

	if len(body.MyReports) != 1 || body.MyReports[0].Title != "Mine" {
		t.Errorf("my_reports: got %+v", body.MyReports)
	}
	if len(body.Community) != 2 {
		t.Errorf("community: got %d, want 2", len(body.Community))
	}
	if len(body.Nearby) != 5 || body.Nearby[0].Name != "P1" {
		t.Errorf("nearby: got %+v, want 5 starting with P1", body.Nearby)
	}
	if !body.HasOrigin {
		t.Error("has_origin: got false")
	}
}

func TestServeAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateAdmin(ctx, "Anita", "anita@example.com")
	citizen := fx.CreateCitizen(ctx, "Kavya", "kavya@example.com")
	fx.CreateStaff(ctx, "Murali", "murali@example.com")
	fx.CreatePlayground(ctx, "Marina Beach Play Area", 13.05, 80.28)
	fx.CreateIssue(ctx, "Pending", citizen, nil)
	done := fx.CreateIssue(ctx, "Done by staff", citizen, nil)

	now := time.Now().UTC()
	if _, err := db.Collection("issues").UpdateByID(ctx, done.ID, bson.M{"$set": bson.M{
		"status":            models.StatusResolved,
		"assigned_to":       "murali@example.com",
		"work_completed_at": now,
		"resolved_by":       "murali@example.com",
	}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	h := newHandler(db)
	rec := testutil.NewRecorder()
	h.ServeAdmin(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/admin", testutil.AsTestUser(admin)))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Stats struct {
			Pending     int64  `json:"pending"`
			ActiveStaff int64  `json:"active_staff"`
			AvgResponse string `json:"avg_response"`
		} `json:"stats"`
		Pending          []map[string]any `json:"pending"`
		AwaitingApproval []struct {
			Title string `json:"title"`
		} `json:"awaiting_approval"`
		RecentlyApproved []map[string]any `json:"recently_approved"`
		Staff            []struct {
			Email        string `json:"email"`
			PasswordHash string `json:"password_hash"`
		} `json:"staff"`
		Playgrounds []map[string]any `json:"playgrounds"`
	}
	rec.DecodeJSON(t, &body)

	if body.Stats.Pending != 1 || body.Stats.ActiveStaff != 1 || body.Stats.AvgResponse != "0d" {
		t.Errorf("stats: got %+v", body.Stats)
	}
	if len(body.Pending) != 1 {
		t.Errorf("pending: got %d, want 1", len(body.Pending))
	}
	if len(body.AwaitingApproval) != 1 || body.AwaitingApproval[0].Title != "Done by staff" {
		t.Errorf("awaiting_approval: got %+v", body.AwaitingApproval)
	}
	if len(body.RecentlyApproved) != 0 {
		t.Errorf("recently_approved: got %d, want 0", len(body.RecentlyApproved))
	}
	if len(body.Staff) != 1 || body.Staff[0].Email != "murali@example.com" {
		t.Errorf("staff: got %+v", body.Staff)
	}
	if body.Staff[0].PasswordHash != "" {
		t.Error("password hash must never be serialized")
	}
	if len(body.Playgrounds) != 1 {
		t.Errorf("playgrounds: got %d, want 1", len(body.Playgrounds))
	}
}

func TestServeMaintenance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	staff := fx.CreateStaff(ctx, "Murali", "murali@example.com")
	citizen := fx.CreateCitizen(ctx, "Kavya", "kavya@example.com")
	a := fx.CreateIssue(ctx, "Assigned to me", citizen, nil)
	b := fx.CreateIssue(ctx, "In progress", citizen, nil)
	fx.CreateIssue(ctx, "Unassigned", citizen, nil)

	for id, status := range map[any]string{a.ID: models.StatusAssigned, b.ID: models.StatusInProgress} {
		if _, err := db.Collection("issues").UpdateByID(ctx, id, bson.M{"$set": bson.M{
			"status":      status,
			"assigned_to": staff.Email,
		}}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	h := newHandler(db)
	rec := testutil.NewRecorder()
	h.ServeMaintenance(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/maintenance", testutil.AsTestUser(staff)))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Issues []map[string]any `json:"issues"`
		Counts map[string]int64 `json:"counts"`
	}
	rec.DecodeJSON(t, &body)
	if len(body.Issues) != 2 {
		t.Errorf("issues: got %d, want 2", len(body.Issues))
	}
	if body.Counts[models.StatusAssigned] != 1 || body.Counts[models.StatusInProgress] != 1 || body.Counts[models.StatusPending] != 0 {
		t.Errorf("counts: got %v", body.Counts)
	}
}
