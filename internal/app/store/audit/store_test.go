package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/playsafe/internal/app/store/audit"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	userID := primitive.NewObjectID()
	issueID := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)

	events := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &userID, Success: true, CreatedAt: base},
		{Category: audit.CategoryIssue, EventType: audit.EventIssueReported, IssueID: &issueID, Success: true, CreatedAt: base.Add(time.Minute)},
		{Category: audit.CategoryIssue, EventType: audit.EventIssueAssigned, IssueID: &issueID, Success: true, CreatedAt: base.Add(2 * time.Minute)},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, UserID: &userID, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, ev := range events {
		if err := store.Log(ctx, ev); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	byUser, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if len(byUser) != 2 || byUser[0].EventType != audit.EventLoginFailedWrongPassword {
		t.Errorf("GetByUser: expected newest first, got %+v", byUser)
	}

	history, err := store.IssueHistory(ctx, issueID)
	if err != nil {
		t.Fatalf("IssueHistory: %v", err)
	}
	if len(history) != 2 || history[0].EventType != audit.EventIssueReported || history[1].EventType != audit.EventIssueAssigned {
		t.Errorf("IssueHistory: expected oldest first, got %+v", history)
	}

	failed, err := store.GetFailedLogins(ctx, base, 10)
	if err != nil {
		t.Fatalf("GetFailedLogins: %v", err)
	}
	if len(failed) != 1 {
		t.Errorf("GetFailedLogins: got %d, want 1", len(failed))
	}
}

func TestStore_Log_DefaultsTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	if err := store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLogout, UserID: &userID}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	got, _ := store.GetByUser(ctx, userID, 1)
	if len(got) != 1 || got[0].CreatedAt.IsZero() || got[0].ID.IsZero() {
		t.Errorf("expected id and created_at defaults, got %+v", got)
	}
}
