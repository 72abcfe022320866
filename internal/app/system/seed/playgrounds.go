// Package seed holds the fixed demonstration data set.
package seed

import (
	"context"
	"fmt"
	"time"

	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	"github.com/dalemusser/playsafe/internal/app/system/legacyimport"
	"github.com/dalemusser/playsafe/internal/app/system/workers"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type chennaiPlayground struct {
	name        string
	address     string
	lat, lng    float64
	description string
	amenities   []string
	status      string
	inspected   string // DD/MM/YYYY
}

var chennai = []chennaiPlayground{
	{
		name:        "Nehru Park",
		address:     "Kamarajar Salai, Triplicane, Chennai, Tamil Nadu 600005",
		lat:         13.0569,
		lng:         80.2844,
		description: "Large park with playground facilities and sports courts",
		amenities:   []string{"Swings", "Slides", "Basketball Court", "Walking Track"},
		status:      models.PlaygroundGood,
		inspected:   "25/08/2025",
	},
	{
		name:        "Nandanam Children's Park",
		address:     "Nandanam, Chennai, Tamil Nadu 600035",
		lat:         13.0338,
		lng:         80.2340,
		description: "Dedicated children's park with modern play equipment",
		amenities:   []string{"Swings", "Slides", "Seesaw", "Sandbox", "Climbing Wall"},
		status:      models.PlaygroundGood,
		inspected:   "28/08/2025",
	},
	{
		name:        "Semmozhi Poonga",
		address:     "Cathedral Rd, Gopalapuram, Chennai, Tamil Nadu 600086",
		lat:         13.0569,
		lng:         80.2472,
		description: "Botanical garden with children's play area",
		amenities:   []string{"Nature Trail", "Slides", "Swings", "Garden"},
		status:      models.PlaygroundGood,
		inspected:   "27/08/2025",
	},
	{
		name:        "Elliot's Beach Playground",
		address:     "Besant Nagar, Chennai, Tamil Nadu 600090",
		lat:         12.9988,
		lng:         80.2669,
		description: "Beachside playground with ocean views",
		amenities:   []string{"Swings", "Slides", "Beach Access", "Walking Path"},
		status:      models.PlaygroundAttention,
		inspected:   "20/08/2025",
	},
	{
		name:        "Anna Nagar Tower Park",
		address:     "2nd Ave, Anna Nagar, Chennai, Tamil Nadu 600040",
		lat:         13.0878,
		lng:         80.2085,
		description: "Popular park with well-maintained playground facilities",
		amenities:   []string{"Swings", "Slides", "Monkey Bars", "Basketball Court"},
		status:      models.PlaygroundGood,
		inspected:   "29/08/2025",
	},
	{
		name:        "Guindy National Park Children's Area",
		address:     "Guindy, Chennai, Tamil Nadu 600025",
		lat:         13.0067,
		lng:         80.2206,
		description: "Nature park with dedicated children's play zone",
		amenities:   []string{"Nature Trail", "Swings", "Slides", "Wildlife Viewing"},
		status:      models.PlaygroundGood,
		inspected:   "26/08/2025",
	},
	{
		name:        "Adyar Eco Park",
		address:     "Adyar, Chennai, Tamil Nadu 600020",
		lat:         13.0067,
		lng:         80.2572,
		description: "Eco-friendly park with modern playground equipment",
		amenities:   []string{"Swings", "Slides", "Climbing Frame", "Eco Trail"},
		status:      models.PlaygroundGood,
		inspected:   "28/08/2025",
	},
	{
		name:        "Velachery Lake Park",
		address:     "Velachery, Chennai, Tamil Nadu 600042",
		lat:         12.9756,
		lng:         80.2206,
		description: "Lakeside park with children's recreational facilities",
		amenities:   []string{"Swings", "Slides", "Lake View", "Jogging Track"},
		status:      models.PlaygroundAttention,
		inspected:   "22/08/2025",
	},
	{
		name:        "Nungambakkam YMCA Playground",
		address:     "Nungambakkam High Rd, Chennai, Tamil Nadu 600034",
		lat:         13.0569,
		lng:         80.2392,
		description: "Well-equipped playground with sports facilities",
		amenities:   []string{"Swings", "Slides", "Basketball Court", "Tennis Court"},
		status:      models.PlaygroundGood,
		inspected:   "27/08/2025",
	},
	{
		name:        "Kotturpuram Playground",
		address:     "Kotturpuram, Chennai, Tamil Nadu 600085",
		lat:         13.0206,
		lng:         80.2411,
		description: "Community playground with basic facilities",
		amenities:   []string{"Swings", "Slides", "Seesaw"},
		status:      models.PlaygroundUrgent,
		inspected:   "15/08/2025",
	},
}

// Playgrounds returns the ten Chennai playgrounds ready to insert.
// active_issues starts at zero; the recount after insert fills it in.
func Playgrounds(now time.Time) ([]models.Playground, error) {
	out := make([]models.Playground, 0, len(chennai))
	for _, c := range chennai {
		inspected, err := legacyimport.InspectionDate(c.inspected)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		out = append(out, models.Playground{
			Name:           c.name,
			Address:        c.address,
			Latitude:       c.lat,
			Longitude:      c.lng,
			Description:    c.description,
			Amenities:      append([]string(nil), c.amenities...),
			Status:         c.status,
			LastInspection: inspected,
			CreatedAt:      now.UTC(),
			UpdatedAt:      now.UTC(),
		})
	}
	return out, nil
}

// Run wipes the playgrounds collection, inserts the fixed set and recounts
// active issues. It returns how many playgrounds were inserted.
func Run(ctx context.Context, db *mongo.Database, logger *zap.Logger) (int, error) {
	pgs, err := Playgrounds(time.Now())
	if err != nil {
		return 0, err
	}
	store := playgroundstore.New(db)
	n, err := store.ReplaceAll(ctx, pgs)
	if err != nil {
		return 0, fmt.Errorf("replace playgrounds: %w", err)
	}
	for _, pg := range pgs {
		logger.Info("added playground", zap.String("name", pg.Name))
	}

	rec := workers.NewPlaygroundReconciler(store, issuestore.New(db), logger, 0)
	if _, err := rec.Reconcile(ctx); err != nil {
		return n, fmt.Errorf("recount active issues: %w", err)
	}
	return n, nil
}
