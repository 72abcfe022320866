// Package geo computes great-circle distances between playgrounds and a
// user's position and orders playgrounds by proximity.
package geo

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// EarthRadiusMiles is the mean Earth radius used by Distance.
const EarthRadiusMiles = 3959.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the point lies within coordinate bounds.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the haversine distance between a and b in miles.
func Distance(a, b Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMiles * c
}

// Format renders a distance for display: "< 0.1 mi" below a tenth of a
// mile, otherwise one decimal place with halves rounded up (1.25 is
// "1.3 mi").
func Format(miles float64) string {
	if miles < 0.1 {
		return "< 0.1 mi"
	}
	return fmt.Sprintf("%.1f mi", math.Round(miles*10)/10)
}

// Located is anything with a position.
type Located interface {
	Position() Point
}

// Ranked pairs an item with its distance from the origin.
type Ranked[T Located] struct {
	Item     T
	Miles    float64
	Distance string
}

// Nearest sorts items by distance from origin and returns the first n.
// n <= 0 returns the whole sorted list. The sort is stable so equal
// distances keep their input order.
func Nearest[T Located](origin Point, items []T, n int) []Ranked[T] {
	out := make([]Ranked[T], 0, len(items))
	for _, it := range items {
		d := Distance(origin, it.Position())
		out = append(out, Ranked[T]{Item: it, Miles: d, Distance: Format(d)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Miles < out[j].Miles })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ParsePoint reads a lat/lng pair from query string values. ok is false
// when either value is missing, unparsable or out of range.
func ParsePoint(lat, lng string) (Point, bool) {
	if lat == "" || lng == "" {
		return Point{}, false
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Point{}, false
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return Point{}, false
	}
	p := Point{Lat: la, Lng: ln}
	return p, p.Valid()
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
