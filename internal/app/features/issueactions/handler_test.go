package issueactions_test

import (
	"encoding/base64"
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/features/issueactions"
	"github.com/dalemusser/playsafe/internal/app/lifecycle"
	assignmentstore "github.com/dalemusser/playsafe/internal/app/store/assignments"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.uber.org/zap"
)

type fixture struct {
	h       *issueactions.Handler
	admin   testutil.TestUser
	staff   testutil.TestUser
	citizen testutil.TestUser
	issue   models.Issue
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := assignmentstore.New(db).EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateAdmin(ctx, "Anita", "anita@example.com")
	staff := fx.CreateStaff(ctx, "Murali", "murali@example.com")
	citizen := fx.CreateCitizen(ctx, "Kavya", "kavya@example.com")
	issue := fx.CreateIssue(ctx, "Broken swing", citizen, nil)

	logger := zap.NewNop()
	svc := lifecycle.New(lifecycle.Deps{Client: db.Client(), DB: db, Logger: logger})
	return fixture{
		h:       issueactions.NewHandler(db, svc, uierrors.NewErrorLogger(logger), logger),
		admin:   testutil.AsTestUser(admin),
		staff:   testutil.AsTestUser(staff),
		citizen: testutil.AsTestUser(citizen),
		issue:   issue,
	}
}

func (f fixture) do(t *testing.T, h http.HandlerFunc, user testutil.TestUser, id string, body any) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.NewRequest(http.MethodPost, "/api/x/"+id)
	if body != nil {
		req = testutil.NewJSONRequest(t, http.MethodPost, "/api/x/"+id, body)
	}
	req = testutil.WithChiURLParam(testutil.WithUser(req, user), "id", id)
	rec := testutil.NewRecorder()
	h(rec, req)
	return rec
}

func TestWorkflow_AssignStartCompleteApprove(t *testing.T) {
	f := setup(t)
	id := f.issue.ID.Hex()

	rec := f.do(t, f.h.HandleAssign, f.admin, id, map[string]string{"staff_email": "Murali@Example.com"})
	rec.AssertStatus(t, http.StatusOK)
	var got models.Issue
	rec.DecodeJSON(t, &got)
	if got.Status != models.StatusAssigned || got.AssignedTo != "murali@example.com" {
		t.Fatalf("after assign: status %q assigned_to %q", got.Status, got.AssignedTo)
	}

	f.do(t, f.h.HandleStart, f.staff, id, nil).AssertStatus(t, http.StatusOK)

	proof := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	rec = f.do(t, f.h.HandleComplete, f.staff, id, map[string]any{"photos": []string{proof}, "notes": "Replaced chain"})
	rec.AssertStatus(t, http.StatusOK)
	got = models.Issue{}
	rec.DecodeJSON(t, &got)
	if got.Status != models.StatusResolved || got.AdminApproved || got.WorkCompletedAt == nil {
		t.Fatalf("after complete: %+v", got)
	}

	rec = f.do(t, f.h.HandleApprove, f.admin, id, nil)
	rec.AssertStatus(t, http.StatusOK)
	got = models.Issue{}
	rec.DecodeJSON(t, &got)
	if !got.AdminApproved {
		t.Error("expected admin_approved after approve")
	}

	// history has the single assignment, now completed
	rec = f.do(t, f.h.ServeAssignments, f.admin, id, nil)
	rec.AssertStatus(t, http.StatusOK)
	var hist struct {
		Assignments []models.Assignment `json:"assignments"`
	}
	rec.DecodeJSON(t, &hist)
	if len(hist.Assignments) != 1 || hist.Assignments[0].Status != models.AssignmentCompleted {
		t.Errorf("assignments: got %+v", hist.Assignments)
	}
}

func TestActions_Refusals(t *testing.T) {
	f := setup(t)
	id := f.issue.ID.Hex()

	tests := []struct {
		name string
		h    http.HandlerFunc
		user testutil.TestUser
		id   string
		body any
		want int
	}{
		{"unknown staff", f.h.HandleAssign, f.admin, id, map[string]string{"staff_email": "ghost@example.com"}, http.StatusUnprocessableEntity},
		{"citizen cannot assign", f.h.HandleAssign, f.citizen, id, map[string]string{"staff_email": "murali@example.com"}, http.StatusForbidden},
		{"approve pending", f.h.HandleApprove, f.admin, id, nil, http.StatusConflict},
		{"start unassigned issue", f.h.HandleStart, f.staff, id, nil, http.StatusForbidden},
		{"resolve without notes", f.h.HandleResolve, f.admin, id, map[string]string{"notes": ""}, http.StatusUnprocessableEntity},
		{"bad id", f.h.HandleApprove, f.admin, "nope", nil, http.StatusNotFound},
		{"missing issue", f.h.HandleApprove, f.admin, "64b7f0c2e4b0a1a2b3c4d5e6", nil, http.StatusNotFound},
		{"unknown field", f.h.HandleReject, f.admin, id, map[string]string{"why": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.do(t, tt.h, tt.user, tt.id, tt.body).AssertStatus(t, tt.want)
		})
	}
}

func TestHandleResolve_Direct(t *testing.T) {
	f := setup(t)
	id := f.issue.ID.Hex()

	rec := f.do(t, f.h.HandleResolve, f.admin, id, map[string]string{"notes": "Fixed during inspection"})
	rec.AssertStatus(t, http.StatusOK)
	var got models.Issue
	rec.DecodeJSON(t, &got)
	if got.Status != models.StatusResolved || got.ResolutionKind != models.ResolutionDirect {
		t.Errorf("got status %q kind %q", got.Status, got.ResolutionKind)
	}

	// direct resolutions have no work to approve
	f.do(t, f.h.HandleApprove, f.admin, id, nil).AssertStatus(t, http.StatusConflict)
}
