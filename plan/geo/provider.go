package geo

import "context"

// GeocodeProvider resolves a free-form address query to a location.
type GeocodeProvider interface {
	// Geocode returns the best match for the query. The error is per-query;
	// callers decide whether one bad address fails the batch.
	Geocode(ctx context.Context, query string) (Point, float64, error)

	// Name tags cached results with their origin.
	Name() string
}

// DistanceProvider measures road distance and drive time between points.
// The haversine estimator implements this interface the same way the live
// API client does; the matrix builder does not care which it has.
type DistanceProvider interface {
	// Distance measures a single directed pair.
	Distance(ctx context.Context, from, to Point) (Leg, error)

	// Matrix measures every origin-destination combination in one shot.
	// The result is indexed [origin][destination].
	Matrix(ctx context.Context, origins, dests []Point) ([][]Leg, error)

	// Name tags cached results with their origin.
	Name() string
}

// AddressCache persists geocode results across runs.
type AddressCache interface {
	// GetMany returns the cached records for whichever keys are present.
	// Missing keys are simply absent from the result.
	GetMany(ctx context.Context, keys []string) (map[string]AddressRecord, error)

	// UpsertMany stores or refreshes the given records.
	UpsertMany(ctx context.Context, recs []AddressRecord) error
}

// DistanceCache persists origin-destination legs across runs.
type DistanceCache interface {
	GetMany(ctx context.Context, keys []PairKey) (map[PairKey]Leg, error)
	UpsertMany(ctx context.Context, legs map[PairKey]Leg) error
}
