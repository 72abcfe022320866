package notifications_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/features/notifications"
	notificationstore "github.com/dalemusser/playsafe/internal/app/store/notifications"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type inbox struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

func TestNotifications(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	staff := testutil.AsTestUser(fx.CreateStaff(ctx, "Ravi", "ravi@example.com"))
	other := testutil.AsTestUser(fx.CreateStaff(ctx, "Meena", "meena@example.com"))
	staffID, _ := primitive.ObjectIDFromHex(staff.ID)
	otherID, _ := primitive.ObjectIDFromHex(other.ID)

	store := notificationstore.New(db)
	seed := []models.Notification{
		{UserID: staffID, Type: models.NotifyAssignment, Title: "New assignment"},
		{UserID: staffID, Type: models.NotifyRejection, Title: "Work sent back"},
		{UserID: otherID, Type: models.NotifyAssignment, Title: "New assignment"},
	}
	if err := store.InsertMany(ctx, seed); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	logger := zap.NewNop()
	h := notifications.NewHandler(db, uierrors.NewErrorLogger(logger), logger)

	list := func(t *testing.T) inbox {
		t.Helper()
		rec := testutil.NewRecorder()
		h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/notifications", staff))
		rec.AssertStatus(t, http.StatusOK)
		var body inbox
		rec.DecodeJSON(t, &body)
		return body
	}

	t.Run("list", func(t *testing.T) {
		body := list(t)
		if len(body.Notifications) != 2 {
			t.Errorf("notifications: got %d, want 2", len(body.Notifications))
		}
		if body.Unread != 2 {
			t.Errorf("unread: got %d, want 2", body.Unread)
		}
	})

	t.Run("mark read", func(t *testing.T) {
		req := testutil.NewAuthenticatedRequest(http.MethodPost, "/api/notifications/x/read", staff)
		req = testutil.WithChiURLParam(req, "id", seed[0].ID.Hex())
		rec := testutil.NewRecorder()
		h.HandleMarkRead(rec, req)
		rec.AssertStatus(t, http.StatusOK)

		if got := list(t).Unread; got != 1 {
			t.Errorf("unread: got %d, want 1", got)
		}
	})

	t.Run("cannot mark someone else's", func(t *testing.T) {
		req := testutil.NewAuthenticatedRequest(http.MethodPost, "/api/notifications/x/read", staff)
		req = testutil.WithChiURLParam(req, "id", seed[2].ID.Hex())
		rec := testutil.NewRecorder()
		h.HandleMarkRead(rec, req)
		rec.AssertStatus(t, http.StatusNotFound)
	})

	t.Run("bad id", func(t *testing.T) {
		req := testutil.NewAuthenticatedRequest(http.MethodPost, "/api/notifications/x/read", staff)
		req = testutil.WithChiURLParam(req, "id", "nope")
		rec := testutil.NewRecorder()
		h.HandleMarkRead(rec, req)
		rec.AssertStatus(t, http.StatusNotFound)
	})

	t.Run("mark all read", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleMarkAllRead(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/api/notifications/read-all", staff))
		rec.AssertStatus(t, http.StatusOK)

		var body struct {
			Updated int64 `json:"updated"`
		}
		rec.DecodeJSON(t, &body)
		if body.Updated != 1 {
			t.Errorf("updated: got %d, want 1", body.Updated)
		}
		if got := list(t).Unread; got != 0 {
			t.Errorf("unread: got %d, want 0", got)
		}

		n, err := store.CountUnread(ctx, otherID)
		if err != nil {
			t.Fatalf("CountUnread: %v", err)
		}
		if n != 1 {
			t.Errorf("other user's unread: got %d, want 1", n)
		}
	})
}

func TestNotifications_Anonymous(t *testing.T) {
	h := &notifications.Handler{Log: zap.NewNop()}

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest(http.MethodGet, "/notifications"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	h.HandleMarkAllRead(rec, testutil.NewRequest(http.MethodPost, "/api/notifications/read-all"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
