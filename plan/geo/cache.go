// In-process TTL cache tiers and the two-tier wrapper that layers them over
// a persistent store. A broken back tier degrades to cache-miss behavior,
// never to a failed job.

package geo

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultMemoryTTL is how long in-process cache entries live. Long enough
// to carry a day of replanning, short enough that stale geocodes age out.
const DefaultMemoryTTL = 24 * time.Hour

// MemoryAddressCache is the in-process front tier for geocode results.
type MemoryAddressCache struct {
	c *gocache.Cache
}

// NewMemoryAddressCache returns a TTL-bounded in-process address cache.
func NewMemoryAddressCache(ttl time.Duration) *MemoryAddressCache {
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &MemoryAddressCache{c: gocache.New(ttl, ttl/4)}
}

func (m *MemoryAddressCache) GetMany(_ context.Context, keys []string) (map[string]AddressRecord, error) {
	out := make(map[string]AddressRecord, len(keys))
	for _, k := range keys {
		if v, ok := m.c.Get(k); ok {
			out[k] = v.(AddressRecord)
		}
	}
	return out, nil
}

func (m *MemoryAddressCache) UpsertMany(_ context.Context, recs []AddressRecord) error {
	for _, r := range recs {
		m.c.Set(r.Key, r, gocache.DefaultExpiration)
	}
	return nil
}

// MemoryDistanceCache is the in-process front tier for distance legs.
type MemoryDistanceCache struct {
	c *gocache.Cache
}

// NewMemoryDistanceCache returns a TTL-bounded in-process distance cache.
func NewMemoryDistanceCache(ttl time.Duration) *MemoryDistanceCache {
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &MemoryDistanceCache{c: gocache.New(ttl, ttl/4)}
}

func (m *MemoryDistanceCache) GetMany(_ context.Context, keys []PairKey) (map[PairKey]Leg, error) {
	out := make(map[PairKey]Leg, len(keys))
	for _, k := range keys {
		if v, ok := m.c.Get(k.String()); ok {
			out[k] = v.(Leg)
		}
	}
	return out, nil
}

func (m *MemoryDistanceCache) UpsertMany(_ context.Context, legs map[PairKey]Leg) error {
	for k, l := range legs {
		m.c.Set(k.String(), l, gocache.DefaultExpiration)
	}
	return nil
}

// TieredAddressCache reads through a fast front tier to a persistent back
// tier. Back-tier errors are reported through warn and treated as misses.
type TieredAddressCache struct {
	Front AddressCache
	Back  AddressCache
	Warn  func(error)
}

func (t *TieredAddressCache) warn(err error) {
	if t.Warn != nil && err != nil {
		t.Warn(err)
	}
}

func (t *TieredAddressCache) GetMany(ctx context.Context, keys []string) (map[string]AddressRecord, error) {
	out, _ := t.Front.GetMany(ctx, keys)
	if len(out) == len(keys) || t.Back == nil {
		return out, nil
	}

	missing := make([]string, 0, len(keys)-len(out))
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}
	fromBack, err := t.Back.GetMany(ctx, missing)
	if err != nil {
		t.warn(err)
		return out, nil
	}
	if len(fromBack) > 0 {
		promote := make([]AddressRecord, 0, len(fromBack))
		for k, r := range fromBack {
			out[k] = r
			promote = append(promote, r)
		}
		_ = t.Front.UpsertMany(ctx, promote)
	}
	return out, nil
}

func (t *TieredAddressCache) UpsertMany(ctx context.Context, recs []AddressRecord) error {
	_ = t.Front.UpsertMany(ctx, recs)
	if t.Back != nil {
		if err := t.Back.UpsertMany(ctx, recs); err != nil {
			t.warn(err)
		}
	}
	return nil
}

// TieredDistanceCache reads through a fast front tier to a persistent back
// tier, with the same degradation contract as TieredAddressCache.
type TieredDistanceCache struct {
	Front DistanceCache
	Back  DistanceCache
	Warn  func(error)
}

func (t *TieredDistanceCache) warn(err error) {
	if t.Warn != nil && err != nil {
		t.Warn(err)
	}
}

func (t *TieredDistanceCache) GetMany(ctx context.Context, keys []PairKey) (map[PairKey]Leg, error) {
	out, _ := t.Front.GetMany(ctx, keys)
	if len(out) == len(keys) || t.Back == nil {
		return out, nil
	}

	missing := make([]PairKey, 0, len(keys)-len(out))
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}
	fromBack, err := t.Back.GetMany(ctx, missing)
	if err != nil {
		t.warn(err)
		return out, nil
	}
	if len(fromBack) > 0 {
		for k, l := range fromBack {
			out[k] = l
		}
		_ = t.Front.UpsertMany(ctx, fromBack)
	}
	return out, nil
}

func (t *TieredDistanceCache) UpsertMany(ctx context.Context, legs map[PairKey]Leg) error {
	_ = t.Front.UpsertMany(ctx, legs)
	if t.Back != nil {
		if err := t.Back.UpsertMany(ctx, legs); err != nil {
			t.warn(err)
		}
	}
	return nil
}
