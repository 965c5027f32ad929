// Travel matrix assembly: cache first, live provider second, offline
// estimation last. The solver only ever sees a complete matrix.

package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMatrixTimeout caps each live provider call.
	DefaultMatrixTimeout = 20 * time.Second

	// DefaultHaversineCutoff is the point count beyond which the live
	// provider is skipped outright. An NxN matrix call above this size
	// costs more than the estimate is worth.
	DefaultHaversineCutoff = 100
)

// TravelMatrix holds the pairwise road legs for an ordered point set.
// Index 0 is the depot by convention of the caller.
type TravelMatrix struct {
	Points  []Point
	Miles   [][]float64
	Minutes [][]float64
}

// MatrixReport describes where the matrix legs came from.
type MatrixReport struct {
	Pairs     int
	CacheHits int
	Fetched   int
	Estimated int
	// Fallback is the reason the offline estimator was used, empty when
	// every leg came from cache or the live provider.
	Fallback string
	// CacheWarnings records distance cache failures the build survived.
	CacheWarnings []string
}

// MatrixBuilder assembles travel matrices. With no live provider it runs
// fully offline; with one it spends API calls only on cache misses.
type MatrixBuilder struct {
	Provider DistanceProvider // live provider; nil means offline only
	Fallback DistanceProvider // offline estimator; Haversine{} when nil
	Cache    DistanceCache
	Timeout  time.Duration
	Cutoff   int // point count limit for the live provider
}

func (b *MatrixBuilder) fallback() DistanceProvider {
	if b.Fallback != nil {
		return b.Fallback
	}
	return Haversine{}
}

func (b *MatrixBuilder) timeout() time.Duration {
	if b.Timeout <= 0 {
		return DefaultMatrixTimeout
	}
	return b.Timeout
}

func (b *MatrixBuilder) cutoff() int {
	if b.Cutoff <= 0 {
		return DefaultHaversineCutoff
	}
	return b.Cutoff
}

type pairIndex struct{ i, j int }

// Build assembles the full matrix for the given points.
func (b *MatrixBuilder) Build(ctx context.Context, points []Point) (*TravelMatrix, MatrixReport, error) {
	n := len(points)
	m := &TravelMatrix{Points: points, Miles: newSquare(n), Minutes: newSquare(n)}
	report := MatrixReport{}

	coords := make([]string, n)
	for i, p := range points {
		coords[i] = p.CoordKey()
	}

	// Same-coordinate pairs are zero legs; everything else needs data.
	pairs := make(map[PairKey][]pairIndex)
	keys := make([]PairKey, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || coords[i] == coords[j] {
				continue
			}
			k := PairKey{From: coords[i], To: coords[j]}
			if _, ok := pairs[k]; !ok {
				keys = append(keys, k)
			}
			pairs[k] = append(pairs[k], pairIndex{i, j})
		}
	}
	report.Pairs = len(keys)

	resolved := make(map[PairKey]Leg, len(keys))
	if b.Cache != nil {
		hits, err := b.Cache.GetMany(ctx, keys)
		if err != nil {
			logrus.Warnf("distance cache read failed, treating all as misses: %v", err)
			report.CacheWarnings = append(report.CacheWarnings,
				fmt.Sprintf("distance cache read failed: %v", err))
		}
		for k, l := range hits {
			resolved[k] = l
		}
		report.CacheHits = len(resolved)
	}

	missing := make([]PairKey, 0, len(keys)-len(resolved))
	for _, k := range keys {
		if _, ok := resolved[k]; !ok {
			missing = append(missing, k)
		}
	}

	fresh := make(map[PairKey]Leg)
	switch {
	case len(missing) == 0:

	case b.Provider == nil:
		b.estimate(ctx, points, pairs, missing, resolved, &report, "no live distance provider configured")

	case n > b.cutoff():
		b.estimate(ctx, points, pairs, missing, resolved, &report,
			fmt.Sprintf("%d stops exceed the live provider cutoff of %d", n, b.cutoff()))

	case len(missing)*2 > len(keys):
		b.fetchFullMatrix(ctx, points, pairs, missing, resolved, fresh, &report)

	default:
		b.fetchPairs(ctx, points, pairs, missing, resolved, fresh, &report)
	}

	if len(fresh) > 0 && b.Cache != nil {
		if err := b.Cache.UpsertMany(ctx, fresh); err != nil {
			logrus.Warnf("distance cache write failed: %v", err)
			report.CacheWarnings = append(report.CacheWarnings,
				fmt.Sprintf("distance cache write failed: %v", err))
		}
	}

	for k, locs := range pairs {
		leg, ok := resolved[k]
		if !ok {
			continue
		}
		for _, at := range locs {
			m.Miles[at.i][at.j] = leg.Miles
			m.Minutes[at.i][at.j] = leg.Minutes
		}
	}
	logrus.Debugf("travel matrix: %d points, %d pairs (%d cached, %d fetched, %d estimated)",
		n, report.Pairs, report.CacheHits, report.Fetched, report.Estimated)
	return m, report, nil
}

// fetchFullMatrix refreshes everything in one provider call and keeps the
// fresh legs for the missing pairs. A provider failure downgrades the whole
// remainder to the offline estimator.
func (b *MatrixBuilder) fetchFullMatrix(ctx context.Context, points []Point,
	pairs map[PairKey][]pairIndex, missing []PairKey, resolved, fresh map[PairKey]Leg, report *MatrixReport) {

	tctx, cancel := context.WithTimeout(ctx, b.timeout())
	defer cancel()
	legs, err := b.Provider.Matrix(tctx, points, points)
	if err != nil {
		b.estimate(ctx, points, pairs, missing, resolved, report, fmt.Sprintf("matrix call failed: %v", err))
		return
	}
	for _, k := range missing {
		at := pairs[k][0]
		resolved[k] = legs[at.i][at.j]
		fresh[k] = legs[at.i][at.j]
	}
	report.Fetched = len(missing)
}

// fetchPairs measures each missing pair individually. The first provider
// failure downgrades the remaining pairs to the offline estimator.
func (b *MatrixBuilder) fetchPairs(ctx context.Context, points []Point,
	pairs map[PairKey][]pairIndex, missing []PairKey, resolved, fresh map[PairKey]Leg, report *MatrixReport) {

	for idx, k := range missing {
		at := pairs[k][0]
		tctx, cancel := context.WithTimeout(ctx, b.timeout())
		leg, err := b.Provider.Distance(tctx, points[at.i], points[at.j])
		cancel()
		if err != nil {
			b.estimate(ctx, points, pairs, missing[idx:], resolved, report,
				fmt.Sprintf("distance call failed: %v", err))
			return
		}
		resolved[k] = leg
		fresh[k] = leg
		report.Fetched++
	}
}

// estimate fills the given pairs from the offline estimator.
func (b *MatrixBuilder) estimate(ctx context.Context, points []Point,
	pairs map[PairKey][]pairIndex, missing []PairKey, resolved map[PairKey]Leg, report *MatrixReport, reason string) {

	est := b.fallback()
	for _, k := range missing {
		at := pairs[k][0]
		leg, err := est.Distance(ctx, points[at.i], points[at.j])
		if err != nil {
			continue
		}
		resolved[k] = leg
		report.Estimated++
	}
	if report.Fallback == "" {
		report.Fallback = reason
	}
	logrus.Warnf("distance matrix degraded to %s for %d pairs: %s", est.Name(), len(missing), reason)
}

func newSquare(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	return out
}
