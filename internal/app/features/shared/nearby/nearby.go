// Package nearby orders playgrounds by distance from a caller-supplied
// origin (?lat=&lng=).
package nearby

import (
	"net/http"

	"github.com/dalemusser/playsafe/internal/app/system/geo"
	"github.com/dalemusser/playsafe/internal/domain/models"
)

// Entry is a playground annotated with its distance, when known.
type Entry struct {
	models.Playground
	Miles    *float64 `json:"miles,omitempty"`
	Distance string   `json:"distance,omitempty"`
}

type located struct{ models.Playground }

func (l located) Position() geo.Point {
	return geo.Point{Lat: l.Latitude, Lng: l.Longitude}
}

// Origin reads lat/lng from the query string.
func Origin(r *http.Request) (geo.Point, bool) {
	q := r.URL.Query()
	return geo.ParsePoint(q.Get("lat"), q.Get("lng"))
}

// Rank returns the n nearest playgrounds to origin (n <= 0 for all).
// Without an origin it keeps store order and omits distances.
func Rank(origin geo.Point, hasOrigin bool, pgs []models.Playground, n int) []Entry {
	if !hasOrigin {
		if n > 0 && len(pgs) > n {
			pgs = pgs[:n]
		}
		out := make([]Entry, 0, len(pgs))
		for _, pg := range pgs {
			out = append(out, Entry{Playground: pg})
		}
		return out
	}

	items := make([]located, 0, len(pgs))
	for _, pg := range pgs {
		items = append(items, located{pg})
	}
	ranked := geo.Nearest(origin, items, n)
	out := make([]Entry, 0, len(ranked))
	for _, rk := range ranked {
		miles := rk.Miles
		out = append(out, Entry{Playground: rk.Item.Playground, Miles: &miles, Distance: rk.Distance})
	}
	return out
}
