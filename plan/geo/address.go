// Package geo resolves shipping addresses to coordinates and builds the
// travel matrices the route solver consumes. Providers and caches are
// interfaces so the live Google stack, the offline haversine estimator, and
// the SQLite-backed caches compose freely.
package geo

import (
	"regexp"
	"strconv"
	"strings"
)

// Address is a shipping destination as it appears on an order line.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func scrub(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// Key is the canonical cache identity of the address. Case, punctuation,
// and whitespace differences between source rows collapse to one key.
func (a Address) Key() string {
	return strings.Join([]string{
		scrub(a.Street),
		scrub(a.City),
		strings.ToUpper(scrub(a.State)),
		scrub(a.Zip),
		scrub(a.Country),
	}, "|")
}

// Query renders the address as a single free-form geocoding query.
func (a Address) Query() string {
	parts := make([]string, 0, 4)
	if s := strings.TrimSpace(a.Street); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(a.City); s != "" {
		parts = append(parts, s)
	}
	stateZip := strings.TrimSpace(strings.TrimSpace(a.State) + " " + strings.TrimSpace(a.Zip))
	if stateZip != "" {
		parts = append(parts, stateZip)
	}
	if s := strings.TrimSpace(a.Country); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// CoordKey renders the point at six decimal places, the resolution the
// distance cache keys on. About 11 cm at the equator, far below road
// distance noise.
func (p Point) CoordKey() string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}

// AddressRecord is a resolved address: the source parts plus the location
// and how confidently the provider matched it.
type AddressRecord struct {
	Key        string  `json:"key"`
	Address    Address `json:"address"`
	Query      string  `json:"query"`
	Point      Point   `json:"point"`
	Confidence float64 `json:"confidence"`
	Provider   string  `json:"provider"`
}

// Leg is one directed origin-to-destination measurement.
type Leg struct {
	Miles   float64 `json:"miles"`
	Minutes float64 `json:"minutes"`
}

// PairKey identifies a directed coordinate pair at CoordKey resolution.
type PairKey struct {
	From string
	To   string
}

func (k PairKey) String() string {
	return k.From + ">" + k.To
}
