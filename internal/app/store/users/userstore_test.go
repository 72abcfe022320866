package userstore_test

import (
	"context"
	"errors"
	"testing"

	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newStore(t *testing.T) (*userstore.Store, *testutil.Fixtures, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	return store, testutil.NewFixtures(t, db), ctx
}

func TestStore_Create_Citizen(t *testing.T) {
	store, _, ctx := newStore(t)

	created, err := store.Create(ctx, models.User{
		FirstName:    "  Priya ",
		LastName:     "Natarajan",
		Email:        "Priya@Example.COM",
		Role:         models.RoleCitizen,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Email != "priya@example.com" {
		t.Errorf("Email: got %q, want folded", created.Email)
	}
	if created.FirstName != "Priya" {
		t.Errorf("FirstName: got %q", created.FirstName)
	}
	if created.Status != models.UserActive {
		t.Errorf("expected status 'active', got %q", created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.GetByEmail(ctx, "PRIYA@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail: got %v, want %v", got.ID, created.ID)
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	store, _, ctx := newStore(t)

	u := models.User{FirstName: "A", Email: "dup@example.com", Role: models.RoleCitizen}
	if _, err := store.Create(ctx, u); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	u.Email = "DUP@example.com"
	if _, err := store.Create(ctx, u); !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("second Create: got %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_Create_Invalid(t *testing.T) {
	store, _, ctx := newStore(t)

	tests := []struct {
		name string
		user models.User
	}{
		{"bad role", models.User{Email: "a@x.com", Role: "superadmin"}},
		{"bad status", models.User{Email: "b@x.com", Role: models.RoleCitizen, Status: "pending"}},
		{"no email", models.User{Role: models.RoleCitizen}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.user); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	store, _, ctx := newStore(t)
	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestStore_Staff(t *testing.T) {
	store, fx, ctx := newStore(t)

	fx.CreateStaff(ctx, "Ravi", "ravi@city.gov")
	fx.CreateStaff(ctx, "Anand", "anand@city.gov")
	fx.CreateDisabledUser(ctx, "gone@city.gov", models.RoleMaintenance)
	fx.CreateAdmin(ctx, "Meena", "meena@city.gov")
	fx.CreateCitizen(ctx, "Kumar", "kumar@example.com")

	staff, err := store.ListActiveStaff(ctx)
	if err != nil {
		t.Fatalf("ListActiveStaff: %v", err)
	}
	if len(staff) != 2 || staff[0].FirstName != "Anand" || staff[1].FirstName != "Ravi" {
		t.Errorf("ListActiveStaff: got %+v", staff)
	}

	n, err := store.CountActiveStaff(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountActiveStaff: got %d, %v; want 2", n, err)
	}

	if _, err := store.GetActiveStaff(ctx, "RAVI@city.gov"); err != nil {
		t.Errorf("GetActiveStaff(ravi): %v", err)
	}
	for _, email := range []string{"gone@city.gov", "meena@city.gov", "kumar@example.com", "nobody@x.com"} {
		if _, err := store.GetActiveStaff(ctx, email); !errors.Is(err, userstore.ErrNotFound) {
			t.Errorf("GetActiveStaff(%s): got %v, want ErrNotFound", email, err)
		}
	}

	admins, err := store.ActiveAdminIDs(ctx)
	if err != nil || len(admins) != 1 {
		t.Errorf("ActiveAdminIDs: got %v, %v", admins, err)
	}
}

func TestStore_UpsertLegacy_Idempotent(t *testing.T) {
	store, _, ctx := newStore(t)

	u := models.User{
		Email:     "legacy@example.com",
		FirstName: "Old",
		Role:      models.RoleCitizen,
		Status:    models.UserDisabled,
		LegacyUID: "fb-uid-1",
	}
	id1, created, err := store.UpsertLegacy(ctx, u)
	if err != nil || !created {
		t.Fatalf("first UpsertLegacy: id=%v created=%v err=%v", id1, created, err)
	}
	id2, created, err := store.UpsertLegacy(ctx, u)
	if err != nil || created {
		t.Fatalf("second UpsertLegacy: created=%v err=%v", created, err)
	}
	if id1 != id2 {
		t.Errorf("ids differ: %v vs %v", id1, id2)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	_, fx, ctx := newStore(t)
	f := userstore.NewFetcher(fx.DB())

	admin := fx.CreateAdmin(ctx, "Meena", "meena@city.gov")
	disabled := fx.CreateDisabledUser(ctx, "off@city.gov", models.RoleAdmin)

	su := f.FetchUser(ctx, admin.ID.Hex())
	if su == nil {
		t.Fatal("expected user")
	}
	if su.Role != models.RoleAdmin || su.Email != "meena@city.gov" || su.Name != "Meena Admin" {
		t.Errorf("unexpected session user %+v", su)
	}

	if f.FetchUser(ctx, disabled.ID.Hex()) != nil {
		t.Error("disabled user should not resolve")
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("missing user should not resolve")
	}
	if f.FetchUser(ctx, "not-an-id") != nil {
		t.Error("malformed id should not resolve")
	}
}
