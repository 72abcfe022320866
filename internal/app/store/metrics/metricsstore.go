package metricsstore

import (
	"context"
	"fmt"
	"time"

	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// AdminStats is the headline row of the admin dashboard.
type AdminStats struct {
	Pending       int64  `json:"pending"`
	ActiveStaff   int64  `json:"active_staff"`
	ResolvedToday int64  `json:"resolved_today"`
	AvgResponse   string `json:"avg_response"`
}

// FetchAdminStats returns the admin dashboard counters. It is tolerant:
// a failing counter reads as zero so one slow query does not blank the
// whole dashboard.
func FetchAdminStats(ctx context.Context, db *mongo.Database, now time.Time) AdminStats {
	issues := issuestore.New(db)
	out := AdminStats{AvgResponse: FormatDays(0, 0)}

	if counts, err := issues.CountByStatus(ctx, ""); err == nil {
		out.Pending = counts[models.StatusPending]
	}
	if n, err := userstore.New(db).CountActiveStaff(ctx); err == nil {
		out.ActiveStaff = n
	}
	if n, err := issues.CountResolvedSince(ctx, Midnight(now)); err == nil {
		out.ResolvedToday = n
	}
	if avg, n, err := issues.AverageResolution(ctx); err == nil {
		out.AvgResponse = FormatDays(avg, n)
	}
	return out
}

// Midnight is the start of t's day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormatDays renders an average duration as days with one decimal, e.g.
// "2.5d". No samples reads "0d".
func FormatDays(avg time.Duration, samples int64) string {
	if samples == 0 {
		return "0d"
	}
	return fmt.Sprintf("%.1fd", avg.Hours()/24)
}
