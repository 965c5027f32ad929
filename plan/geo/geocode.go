// Cache-first address resolution with a bounded provider fan-out.

package geo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultGeocodeWorkers bounds the provider fan-out width.
	DefaultGeocodeWorkers = 10

	// DefaultGeocodeTimeout caps each individual provider lookup.
	DefaultGeocodeTimeout = 12 * time.Second
)

// Failure records one address that stayed unresolved.
type Failure struct {
	Key   string
	Query string
	Err   error
}

// Geocoder resolves addresses cache-first and fans provider lookups for the
// misses through a bounded worker pool. Failures never abort the batch; the
// caller decides what an unresolved address means.
type Geocoder struct {
	Provider GeocodeProvider
	Cache    AddressCache
	Workers  int
	Timeout  time.Duration
}

// ResolveAll resolves every unique address in the slice. The result is
// keyed by Address.Key; failures are sorted by key for stable reporting.
func (g *Geocoder) ResolveAll(ctx context.Context, addrs []Address) (map[string]AddressRecord, []Failure) {
	unique := make([]Address, 0, len(addrs))
	keys := make([]string, 0, len(addrs))
	seen := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		k := a.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, a)
		keys = append(keys, k)
	}

	resolved := make(map[string]AddressRecord, len(unique))
	if g.Cache != nil {
		hits, err := g.Cache.GetMany(ctx, keys)
		if err != nil {
			logrus.Warnf("address cache read failed, treating all as misses: %v", err)
		}
		for k, r := range hits {
			resolved[k] = r
		}
	}

	misses := make([]Address, 0, len(unique)-len(resolved))
	for _, a := range unique {
		if _, ok := resolved[a.Key()]; !ok {
			misses = append(misses, a)
		}
	}

	var failures []Failure
	if g.Provider == nil {
		for _, a := range misses {
			failures = append(failures, Failure{Key: a.Key(), Query: a.Query(), Err: errors.New("no geocode provider configured")})
		}
		sortFailures(failures)
		return resolved, failures
	}

	workers := g.Workers
	if workers <= 0 {
		workers = DefaultGeocodeWorkers
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultGeocodeTimeout
	}

	var (
		mu    sync.Mutex
		fresh []AddressRecord
		wg    sync.WaitGroup
		sem   = make(chan struct{}, workers)
	)
	for _, a := range misses {
		a := a
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			pt, conf, err := g.Provider.Geocode(cctx, a.Query())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, Failure{Key: a.Key(), Query: a.Query(), Err: err})
				return
			}
			rec := AddressRecord{
				Key:        a.Key(),
				Address:    a,
				Query:      a.Query(),
				Point:      pt,
				Confidence: conf,
				Provider:   g.Provider.Name(),
			}
			fresh = append(fresh, rec)
			resolved[rec.Key] = rec
		}()
	}
	wg.Wait()

	if len(fresh) > 0 && g.Cache != nil {
		if err := g.Cache.UpsertMany(ctx, fresh); err != nil {
			logrus.Warnf("address cache write failed: %v", err)
		}
	}
	sortFailures(failures)
	logrus.Debugf("geocoder: %d unique, %d from cache, %d fetched, %d failed",
		len(unique), len(unique)-len(misses), len(fresh), len(failures))
	return resolved, failures
}

func sortFailures(failures []Failure) {
	sort.Slice(failures, func(i, j int) bool { return failures[i].Key < failures[j].Key })
}
