package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the password every fixture user is created with.
const TestPassword = "playsafe-test"

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active user with TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, first, last, email, role string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, first, last, email, role, models.UserActive)
}

// CreateCitizen creates a test citizen.
func (f *Fixtures) CreateCitizen(ctx context.Context, first, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, first, "Citizen", email, models.RoleCitizen)
}

// CreateAdmin creates a test admin.
func (f *Fixtures) CreateAdmin(ctx context.Context, first, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, first, "Admin", email, models.RoleAdmin)
}

// CreateStaff creates an active maintenance user.
func (f *Fixtures) CreateStaff(ctx context.Context, first, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, first, "Staff", email, models.RoleMaintenance)
}

// CreateDisabledUser creates a user with disabled status.
func (f *Fixtures) CreateDisabledUser(ctx context.Context, email, role string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, "Disabled", "User", email, role, models.UserDisabled)
}

func (f *Fixtures) insertUser(ctx context.Context, first, last, email, role, status string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Email:        text.Fold(email),
		FirstName:    first,
		LastName:     last,
		Role:         role,
		Status:       status,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreatePlayground inserts a playground in Good condition.
func (f *Fixtures) CreatePlayground(ctx context.Context, name string, lat, lng float64) models.Playground {
	f.t.Helper()

	now := time.Now().UTC()
	pg := models.Playground{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Address:   name + " Road, Chennai",
		Latitude:  lat,
		Longitude: lng,
		Amenities: []string{"Swings"},
		Status:    models.PlaygroundGood,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("playgrounds").InsertOne(ctx, pg); err != nil {
		f.t.Fatalf("failed to create test playground: %v", err)
	}
	return pg
}

// CreateIssue inserts a pending issue reported by reporter. Callers can
// adjust the returned value and re-insert through their own store if they
// need a different starting state.
func (f *Fixtures) CreateIssue(ctx context.Context, title string, reporter models.User, playgroundID *primitive.ObjectID) models.Issue {
	f.t.Helper()

	now := time.Now().UTC()
	issue := models.Issue{
		ID:           primitive.NewObjectID(),
		Title:        title,
		Description:  title + " needs attention",
		Category:     "broken-equipment",
		Severity:     models.SeverityMedium,
		Location:     "Near the gate",
		PlaygroundID: playgroundID,
		Status:       models.StatusPending,
		ReportedBy: models.Reporter{
			UID:       reporter.ID.Hex(),
			Email:     reporter.Email,
			FirstName: reporter.FirstName,
			LastName:  reporter.LastName,
		},
		PhotoURLs:       []string{},
		CompletionProof: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	// report_code is unique; the id's counter bytes keep fixtures distinct
	issue.ReportCode = "PS-" + issue.ID.Hex()[18:]
	if _, err := f.db.Collection("issues").InsertOne(ctx, issue); err != nil {
		f.t.Fatalf("failed to create test issue: %v", err)
	}
	return issue
}
