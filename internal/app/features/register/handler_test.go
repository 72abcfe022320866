package register_test

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/features/register"
	"github.com/dalemusser/playsafe/internal/app/store/sessions"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newHandler(t *testing.T, db *mongo.Database) *register.Handler {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := userstore.New(db).EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return register.NewHandler(db, sm, uierrors.NewErrorLogger(zap.NewNop()), nil, sessions.New(db), zap.NewNop())
}

func TestHandleRegisterPost_CreatesCitizen(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHandler(t, db)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/register", map[string]string{
		"first_name": "Priya",
		"last_name":  "Raman",
		"email":      "Priya@Example.com",
		"password":   "secret1",
	})
	rec := testutil.NewRecorder()
	h.HandleRegisterPost(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var body struct {
		Redirect string `json:"redirect"`
	}
	rec.DecodeJSON(t, &body)
	if body.Redirect != "/citizen" {
		t.Errorf("redirect: got %q, want /citizen", body.Redirect)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected the new account to be signed in")
	}

	u, err := userstore.New(db).GetByEmail(ctx, "priya@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.Role != models.RoleCitizen || u.Status != models.UserActive {
		t.Errorf("got role %q status %q, want active citizen", u.Role, u.Status)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) != nil {
		t.Error("stored hash does not match password")
	}
}

func TestHandleRegisterPost_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	base := map[string]string{
		"first_name": "Priya",
		"last_name":  "Raman",
		"email":      "priya@example.com",
		"password":   "secret1",
	}
	with := func(k, v string) map[string]string {
		m := make(map[string]string, len(base)+1)
		for bk, bv := range base {
			m[bk] = bv
		}
		m[k] = v
		return m
	}

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing name", with("last_name", ""), "Please enter your full name."},
		{"missing email", with("email", " "), "Please enter your email address."},
		{"bad email", with("email", "priya@"), "Invalid email address."},
		{"short password", with("password", "12345"), "Password must be at least 6 characters."},
		{"mismatch", with("confirm_password", "other12"), "Passwords do not match."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleRegisterPost(rec, testutil.NewJSONRequest(t, http.MethodPost, "/register", tt.body))
			rec.AssertStatus(t, http.StatusUnprocessableEntity)
			var body struct {
				Error string `json:"error"`
			}
			rec.DecodeJSON(t, &body)
			if body.Error != tt.want {
				t.Errorf("error: got %q, want %q", body.Error, tt.want)
			}
		})
	}
}

func TestHandleRegisterPost_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHandler(t, db)
	testutil.NewFixtures(t, db).CreateCitizen(ctx, "Priya", "priya@example.com")

	rec := testutil.NewRecorder()
	h.HandleRegisterPost(rec, testutil.NewJSONRequest(t, http.MethodPost, "/register", map[string]string{
		"first_name": "Another",
		"last_name":  "Priya",
		"email":      "PRIYA@example.com",
		"password":   "secret1",
	}))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "An account with this email already exists.")
}

func TestHandleRegisterPost_RoleFieldRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	rec := testutil.NewRecorder()
	h.HandleRegisterPost(rec, testutil.NewJSONRequest(t, http.MethodPost, "/register", map[string]string{
		"first_name": "Sneaky",
		"last_name":  "Admin",
		"email":      "sneaky@example.com",
		"password":   "secret1",
		"role":       "admin",
	}))
	rec.AssertStatus(t, http.StatusBadRequest)
}
