// Offline distance estimation: great-circle miles scaled by a road detour
// factor, drive time from an average highway speed.

package geo

import (
	"context"
	"math"
)

const (
	earthRadiusKm = 6371.0088
	kmPerMile     = 0.621371

	// DefaultDetourFactor scales straight-line distance up to a road
	// distance estimate.
	DefaultDetourFactor = 1.25

	// DefaultSpeedMph converts estimated miles to drive minutes.
	DefaultSpeedMph = 45.0

	minSpeedMph = 10.0
	maxSpeedMph = 75.0
)

// Haversine estimates road legs without any external service. It is a full
// DistanceProvider; the matrix builder falls back to it when the live
// provider is unavailable or the stop count makes API pricing unreasonable.
type Haversine struct {
	// DetourFactor defaults to DefaultDetourFactor when zero.
	DetourFactor float64

	// SpeedMph defaults to DefaultSpeedMph when zero and is clamped to a
	// plausible highway range either way.
	SpeedMph float64
}

func (h Haversine) Name() string { return "haversine" }

func (h Haversine) detour() float64 {
	if h.DetourFactor <= 0 {
		return DefaultDetourFactor
	}
	return h.DetourFactor
}

func (h Haversine) speed() float64 {
	s := h.SpeedMph
	if s == 0 {
		s = DefaultSpeedMph
	}
	return math.Min(maxSpeedMph, math.Max(minSpeedMph, s))
}

func (h Haversine) leg(from, to Point) Leg {
	miles := GreatCircleMiles(from, to) * h.detour()
	return Leg{Miles: miles, Minutes: miles / h.speed() * 60}
}

func (h Haversine) Distance(_ context.Context, from, to Point) (Leg, error) {
	return h.leg(from, to), nil
}

func (h Haversine) Matrix(_ context.Context, origins, dests []Point) ([][]Leg, error) {
	out := make([][]Leg, len(origins))
	for i, from := range origins {
		row := make([]Leg, len(dests))
		for j, to := range dests {
			if from == to {
				continue
			}
			row[j] = h.leg(from, to)
		}
		out[i] = row
	}
	return out, nil
}

// GreatCircleMiles is the haversine distance between two points in miles.
func GreatCircleMiles(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	km := 2 * earthRadiusKm * math.Asin(math.Sqrt(s))
	return km * kmPerMile
}
