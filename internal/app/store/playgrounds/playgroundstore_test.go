package playgroundstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newStore(t *testing.T) (*playgroundstore.Store, *testutil.Fixtures, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := playgroundstore.New(db)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	return store, testutil.NewFixtures(t, db), ctx
}

func TestStore_ListAndGet(t *testing.T) {
	store, fixtures, ctx := newStore(t)
	a := fixtures.CreatePlayground(ctx, "Marina Play Area", 13.05, 80.28)
	b := fixtures.CreatePlayground(ctx, "Semmozhi Poonga", 13.05, 80.25)

	if _, err := fixtures.DB().Collection("playgrounds").UpdateOne(ctx,
		bson.M{"_id": b.ID}, bson.M{"$set": bson.M{"status": "Closed"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID {
		t.Fatalf("List: got %d playgrounds", len(list))
	}
	if list[1].Status != models.PlaygroundGood {
		t.Errorf("unknown status: got %q, want %q", list[1].Status, models.PlaygroundGood)
	}

	got, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Marina Play Area" {
		t.Errorf("Name: got %q", got.Name)
	}
	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, playgroundstore.ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}

	ok, err := store.Exists(ctx, a.ID)
	if err != nil || !ok {
		t.Errorf("Exists: got %v, %v", ok, err)
	}
	ok, _ = store.Exists(ctx, primitive.NewObjectID())
	if ok {
		t.Error("Exists: want false for unknown id")
	}
}

func TestStore_SetStatus(t *testing.T) {
	store, fixtures, ctx := newStore(t)
	pg := fixtures.CreatePlayground(ctx, "Anna Nagar Tower Park", 13.08, 80.21)

	now := time.Date(2026, 3, 9, 15, 4, 0, 0, time.Local)
	got, err := store.SetStatus(ctx, pg.ID, models.PlaygroundUrgent, now)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.Status != models.PlaygroundUrgent {
		t.Errorf("Status: got %q", got.Status)
	}
	if got.LastInspection != "2026-03-09" {
		t.Errorf("LastInspection: got %q, want 2026-03-09", got.LastInspection)
	}

	if _, err := store.SetStatus(ctx, primitive.NewObjectID(), models.PlaygroundGood, now); !errors.Is(err, playgroundstore.ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
}

func TestStore_SetActiveIssues(t *testing.T) {
	store, fixtures, ctx := newStore(t)
	pg := fixtures.CreatePlayground(ctx, "Guindy Park", 13.00, 80.22)

	if err := store.SetActiveIssues(ctx, pg.ID, 3); err != nil {
		t.Fatalf("SetActiveIssues: %v", err)
	}
	// unchanged value is a no-op, not an error
	if err := store.SetActiveIssues(ctx, pg.ID, 3); err != nil {
		t.Fatalf("SetActiveIssues repeat: %v", err)
	}
	got, _ := store.GetByID(ctx, pg.ID)
	if got.ActiveIssues != 3 {
		t.Errorf("ActiveIssues: got %d, want 3", got.ActiveIssues)
	}
}

func TestStore_ReplaceAll(t *testing.T) {
	store, fixtures, ctx := newStore(t)
	fixtures.CreatePlayground(ctx, "Old", 0, 0)

	n, err := store.ReplaceAll(ctx, []models.Playground{
		{Name: "One", Status: models.PlaygroundGood},
		{Name: "Two", Status: models.PlaygroundAttention},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted: got %d, want 2", n)
	}
	list, _ := store.List(ctx)
	if len(list) != 2 {
		t.Fatalf("List: got %d, want 2", len(list))
	}
	for _, pg := range list {
		if pg.Name == "Old" {
			t.Error("expected old playgrounds to be removed")
		}
	}
}

func TestStore_UpsertLegacy(t *testing.T) {
	store, _, ctx := newStore(t)
	pg := models.Playground{Name: "Imported", LegacyID: "fs-pg-1", Status: models.PlaygroundGood}

	id, created, err := store.UpsertLegacy(ctx, pg)
	if err != nil || !created {
		t.Fatalf("first UpsertLegacy: created=%v err=%v", created, err)
	}
	again, created, err := store.UpsertLegacy(ctx, pg)
	if err != nil {
		t.Fatalf("second UpsertLegacy: %v", err)
	}
	if created || again != id {
		t.Errorf("second UpsertLegacy: created=%v id=%v, want false %v", created, again, id)
	}
}
