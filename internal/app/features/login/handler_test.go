package login_test

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/features/login"
	"github.com/dalemusser/playsafe/internal/app/store/sessions"
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/app/system/ratelimit"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const sessionKey = "test-session-key-must-be-32-chars-long"

func newHandler(t *testing.T, db *mongo.Database, tokens *auth.TokenIssuer) *login.Handler {
	t.Helper()
	sm, err := auth.NewSessionManager(sessionKey, "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	sm.SetTokenIssuer(tokens)
	logger := zap.NewNop()
	return login.NewHandler(db, sm, uierrors.NewErrorLogger(logger), nil, sessions.New(db), ratelimit.NewLoginLimiter(), logger)
}

func post(t *testing.T, h http.HandlerFunc, target, email, password string) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, target, map[string]string{"email": email, "password": password})
	rec := testutil.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandleLoginPost_Success(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	u := fx.CreateCitizen(ctx, "Kavya", "kavya@example.com")
	h := newHandler(t, db, nil)

	rec := post(t, h.HandleLoginPost, "/login", "Kavya@Example.com", testutil.TestPassword)
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Redirect string `json:"redirect"`
		Role     string `json:"role"`
	}
	rec.DecodeJSON(t, &body)
	if body.Redirect != "/citizen" {
		t.Errorf("redirect: got %q, want /citizen", body.Redirect)
	}
	if body.Role != models.RoleCitizen {
		t.Errorf("role: got %q", body.Role)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie")
	}

	n, err := db.Collection("sessions").CountDocuments(ctx, bson.M{"user_id": u.ID})
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if n != 1 {
		t.Errorf("session records: got %d, want 1", n)
	}
}

func TestHandleLoginPost_Redirect(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	testutil.NewFixtures(t, db).CreateAdmin(ctx, "Anita", "anita@example.com")
	h := newHandler(t, db, nil)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"local path kept", "/login?redirect=%2Freport", "/report"},
		{"external host dropped", "/login?redirect=https%3A%2F%2Fevil.example%2F", "/admin"},
		{"no redirect", "/login", "/admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h.HandleLoginPost, tt.target, "anita@example.com", testutil.TestPassword)
			rec.AssertStatus(t, http.StatusOK)
			var body struct {
				Redirect string `json:"redirect"`
			}
			rec.DecodeJSON(t, &body)
			if body.Redirect != tt.want {
				t.Errorf("redirect: got %q, want %q", body.Redirect, tt.want)
			}
		})
	}
}

func TestHandleLoginPost_Failures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	fx.CreateStaff(ctx, "Murali", "murali@example.com")
	fx.CreateDisabledUser(ctx, "gone@example.com", models.RoleCitizen)
	h := newHandler(t, db, nil)

	tests := []struct {
		name     string
		email    string
		password string
		status   int
		msg      string
	}{
		{"unknown account", "nobody@example.com", testutil.TestPassword, http.StatusUnauthorized, "No account found with this email address."},
		{"wrong password", "murali@example.com", "nope-nope", http.StatusUnauthorized, "Incorrect password."},
		{"invalid email", "not-an-email", testutil.TestPassword, http.StatusUnprocessableEntity, "Invalid email address."},
		{"disabled", "gone@example.com", testutil.TestPassword, http.StatusForbidden, "This account has been disabled."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h.HandleLoginPost, "/login", tt.email, tt.password)
			rec.AssertStatus(t, tt.status)
			var body struct {
				Error string `json:"error"`
			}
			rec.DecodeJSON(t, &body)
			if body.Error != tt.msg {
				t.Errorf("error: got %q, want %q", body.Error, tt.msg)
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Error("no cookie expected on failure")
			}
		})
	}
}

func TestHandleLoginPost_RateLimited(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	testutil.NewFixtures(t, db).CreateCitizen(ctx, "Ravi", "ravi@example.com")
	h := newHandler(t, db, nil)

	// five attempts per email are allowed
	for i := 0; i < 5; i++ {
		rec := post(t, h.HandleLoginPost, "/login", "ravi@example.com", "wrong-password")
		rec.AssertStatus(t, http.StatusUnauthorized)
	}
	rec := post(t, h.HandleLoginPost, "/login", "ravi@example.com", testutil.TestPassword)
	rec.AssertStatus(t, http.StatusTooManyRequests)
}

func TestHandleLoginPost_BadBody(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/login", map[string]string{"username": "x"})
	rec := testutil.NewRecorder()
	h.HandleLoginPost(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := testutil.NewFixtures(t, db).CreateStaff(ctx, "Selvi", "selvi@example.com")

	t.Run("disabled without secret", func(t *testing.T) {
		h := newHandler(t, db, nil)
		rec := post(t, h.HandleToken, "/api/token", "selvi@example.com", testutil.TestPassword)
		rec.AssertStatus(t, http.StatusNotImplemented)
	})

	t.Run("issues token", func(t *testing.T) {
		issuer := auth.NewTokenIssuer("jwt-test-secret", time.Hour)
		h := newHandler(t, db, issuer)
		rec := post(t, h.HandleToken, "/api/token", "selvi@example.com", testutil.TestPassword)
		rec.AssertStatus(t, http.StatusOK)

		var body struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
		}
		rec.DecodeJSON(t, &body)
		sub, sid, err := issuer.Parse(body.Token)
		if err != nil {
			t.Fatalf("parse token: %v", err)
		}
		if sub != u.ID.Hex() {
			t.Errorf("subject: got %q, want %q", sub, u.ID.Hex())
		}
		active, err := sessions.New(db).Active(ctx, sid, sub)
		if err != nil {
			t.Fatalf("Active: %v", err)
		}
		if !active {
			t.Error("token should be backed by a live session record")
		}
		if !body.ExpiresAt.After(time.Now()) {
			t.Errorf("expires_at should be in the future, got %v", body.ExpiresAt)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		h := newHandler(t, db, auth.NewTokenIssuer("jwt-test-secret", time.Hour))
		rec := post(t, h.HandleToken, "/api/token", "selvi@example.com", "bad-password")
		rec.AssertStatus(t, http.StatusUnauthorized)
	})
}

func TestServeLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)
	rec := testutil.NewRecorder()
	h.ServeLogin(rec, testutil.NewRequest(http.MethodGet, "/login?redirect=%2Freport"))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		ReturnURL string `json:"return_url"`
	}
	rec.DecodeJSON(t, &body)
	if body.ReturnURL != "/report" {
		t.Errorf("return_url: got %q", body.ReturnURL)
	}
}
