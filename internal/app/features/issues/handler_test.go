package issues_test

import (
	"net/http"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/features/issues"
	"github.com/dalemusser/playsafe/internal/app/lifecycle"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(db *mongo.Database) *issues.Handler {
	logger := zap.NewNop()
	svc := lifecycle.New(lifecycle.Deps{Client: db.Client(), DB: db, Logger: logger})
	return issues.NewHandler(db, svc, uierrors.NewErrorLogger(logger), logger)
}

func TestHandleCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	citizen := testutil.NewFixtures(t, db).CreateCitizen(ctx, "Kavya", "kavya@example.com")
	h := newHandler(db)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/issues", map[string]any{
		"title":       "Broken swing chain",
		"description": "The left swing chain has snapped.",
		"category":    "broken-equipment",
		"severity":    "medium",
		"location":    "North corner",
	})
	req = testutil.WithUser(req, testutil.AsTestUser(citizen))
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var got models.Issue
	rec.DecodeJSON(t, &got)
	if got.Status != models.StatusPending {
		t.Errorf("status: got %q, want pending", got.Status)
	}
	if !strings.HasPrefix(got.ReportCode, "PS-") {
		t.Errorf("report code: got %q", got.ReportCode)
	}
	if got.ReportedBy.UID != citizen.ID.Hex() {
		t.Errorf("reporter uid: got %q, want %q", got.ReportedBy.UID, citizen.ID.Hex())
	}
}

func TestHandleCreate_Invalid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	citizen := testutil.NewFixtures(t, db).CreateCitizen(ctx, "Kavya", "kavya@example.com")
	h := newHandler(db)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"unknown field", map[string]any{"title": "x", "priority": 1}, http.StatusBadRequest},
		{"bad category", map[string]any{
			"title": "Loose bolt", "description": "Bolt is loose", "category": "weather",
			"severity": "low", "location": "Gate",
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/issues", tt.body), testutil.AsTestUser(citizen))
			rec := testutil.NewRecorder()
			h.HandleCreate(rec, req)
			rec.AssertStatus(t, tt.status)
		})
	}
}

func TestServeIssue_Projection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	citizen := fx.CreateCitizen(ctx, "Kavya", "kavya@example.com")
	issue := fx.CreateIssue(ctx, "Cracked slide", citizen, nil)
	h := newHandler(db)

	tests := []struct {
		name     string
		user     *testutil.TestUser
		wantFull bool
	}{
		{"anonymous", nil, false},
		{"reporter", ptr(testutil.AsTestUser(citizen)), true},
		{"admin", ptr(testutil.AdminUser()), true},
		{"other citizen", ptr(testutil.CitizenUser()), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithChiURLParam(testutil.NewRequest(http.MethodGet, "/api/issues/"+issue.ID.Hex()), "id", issue.ID.Hex())
			if tt.user != nil {
				req = testutil.WithUser(req, *tt.user)
			}
			rec := testutil.NewRecorder()
			h.ServeIssue(rec, req)
			rec.AssertStatus(t, http.StatusOK)

			hasReporter := strings.Contains(rec.Body.String(), `"reported_by"`)
			if hasReporter != tt.wantFull {
				t.Errorf("reported_by present: got %v, want %v", hasReporter, tt.wantFull)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestServeIssue_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)

	for _, id := range []string{"not-an-id", "64b7f0c2e4b0a1a2b3c4d5e6"} {
		req := testutil.WithChiURLParam(testutil.NewRequest(http.MethodGet, "/api/issues/"+id), "id", id)
		rec := testutil.NewRecorder()
		h.ServeIssue(rec, req)
		rec.AssertStatus(t, http.StatusNotFound)
	}
}

func TestServeList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	citizen := fx.CreateCitizen(ctx, "Kavya", "kavya@example.com")
	fx.CreateIssue(ctx, "Cracked slide", citizen, nil)
	fx.CreateIssue(ctx, "Litter near bench", citizen, nil)
	h := newHandler(db)

	t.Run("all", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeList(rec, testutil.NewRequest(http.MethodGet, "/issues"))
		rec.AssertStatus(t, http.StatusOK)

		var body struct {
			Issues []map[string]any `json:"issues"`
		}
		rec.DecodeJSON(t, &body)
		if len(body.Issues) != 2 {
			t.Fatalf("issues: got %d, want 2", len(body.Issues))
		}
		if _, ok := body.Issues[0]["reported_by"]; ok {
			t.Error("public list must not expose the reporter")
		}
	})

	t.Run("filtered", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeList(rec, testutil.NewRequest(http.MethodGet, "/issues?status=resolved"))
		rec.AssertStatus(t, http.StatusOK)
		var body struct {
			Issues []map[string]any `json:"issues"`
		}
		rec.DecodeJSON(t, &body)
		if len(body.Issues) != 0 {
			t.Errorf("resolved issues: got %d, want 0", len(body.Issues))
		}
	})

	t.Run("bad filter", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeList(rec, testutil.NewRequest(http.MethodGet, "/issues?status=closed"))
		rec.AssertStatus(t, http.StatusBadRequest)
	})
}

func TestServeStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	citizen := fx.CreateCitizen(ctx, "Kavya", "kavya@example.com")
	issue := fx.CreateIssue(ctx, "Cracked slide", citizen, nil)
	h := newHandler(db)
	user := testutil.AsTestUser(citizen)

	t.Run("found", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeStatus(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/status?code="+strings.ToLower(issue.ReportCode), user))
		rec.AssertStatus(t, http.StatusOK)
		var body struct {
			Found  bool `json:"found"`
			Result struct {
				ReportCode string `json:"report_code"`
				Status     string `json:"status"`
			} `json:"result"`
		}
		rec.DecodeJSON(t, &body)
		if !body.Found || body.Result.ReportCode != issue.ReportCode {
			t.Errorf("got %+v, want report %s", body, issue.ReportCode)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeStatus(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/status?code=PS-000000", user))
		rec.AssertStatus(t, http.StatusNotFound)
	})

	t.Run("no code", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeStatus(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/status", user))
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, `"found":false`)
	})
}

func TestServeReportForm(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	testutil.NewFixtures(t, db).CreatePlayground(ctx, "Marina Play Area", 13.05, 80.28)
	h := newHandler(db)

	rec := testutil.NewRecorder()
	h.ServeReportForm(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/report", testutil.CitizenUser()))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Categories  []string `json:"categories"`
		MaxPhotos   int      `json:"max_photos"`
		Playgrounds []struct {
			Name string `json:"name"`
		} `json:"playgrounds"`
	}
	rec.DecodeJSON(t, &body)
	if len(body.Categories) != len(models.Categories) {
		t.Errorf("categories: got %d, want %d", len(body.Categories), len(models.Categories))
	}
	if body.MaxPhotos != 3 {
		t.Errorf("max_photos: got %d, want 3", body.MaxPhotos)
	}
	if len(body.Playgrounds) != 1 || body.Playgrounds[0].Name != "Marina Play Area" {
		t.Errorf("playgrounds: got %+v", body.Playgrounds)
	}
}
