package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// failingAddressCache errors on every call.
type failingAddressCache struct{}

func (failingAddressCache) GetMany(context.Context, []string) (map[string]AddressRecord, error) {
	return nil, errors.New("database locked")
}
func (failingAddressCache) UpsertMany(context.Context, []AddressRecord) error {
	return errors.New("database locked")
}

func rec(key string, lat, lng float64) AddressRecord {
	return AddressRecord{Key: key, Point: Point{Lat: lat, Lng: lng}, Confidence: 0.9, Provider: "test"}
}

func TestMemoryAddressCache_Roundtrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryAddressCache(time.Minute)

	assert.NoError(t, c.UpsertMany(ctx, []AddressRecord{rec("a", 1, 2), rec("b", 3, 4)}))

	got, err := c.GetMany(ctx, []string{"a", "b", "missing"})
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, Point{Lat: 1, Lng: 2}, got["a"].Point)
	_, ok := got["missing"]
	assert.False(t, ok)
}

func TestMemoryDistanceCache_KeysAreDirected(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryDistanceCache(time.Minute)

	forward := PairKey{From: "x", To: "y"}
	assert.NoError(t, c.UpsertMany(ctx, map[PairKey]Leg{forward: {Miles: 10, Minutes: 15}}))

	got, err := c.GetMany(ctx, []PairKey{forward, {From: "y", To: "x"}})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, Leg{Miles: 10, Minutes: 15}, got[forward])
}

func TestTieredAddressCache_BackHitPromotesToFront(t *testing.T) {
	ctx := context.Background()
	front := NewMemoryAddressCache(time.Minute)
	back := NewMemoryAddressCache(time.Minute)
	assert.NoError(t, back.UpsertMany(ctx, []AddressRecord{rec("a", 1, 2)}))

	tiered := &TieredAddressCache{Front: front, Back: back}

	got, err := tiered.GetMany(ctx, []string{"a"})
	assert.NoError(t, err)
	assert.Len(t, got, 1)

	// The promoted record now serves from the front tier directly.
	fromFront, _ := front.GetMany(ctx, []string{"a"})
	assert.Len(t, fromFront, 1)
}

func TestTieredAddressCache_BackFailureDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	var warned error
	tiered := &TieredAddressCache{
		Front: NewMemoryAddressCache(time.Minute),
		Back:  failingAddressCache{},
		Warn:  func(err error) { warned = err },
	}

	got, err := tiered.GetMany(ctx, []string{"a"})
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.Error(t, warned)

	// Writes still succeed against the front tier alone.
	warned = nil
	assert.NoError(t, tiered.UpsertMany(ctx, []AddressRecord{rec("a", 1, 2)}))
	assert.Error(t, warned)

	fromFront, _ := tiered.Front.GetMany(ctx, []string{"a"})
	assert.Len(t, fromFront, 1)
}

func TestTieredAddressCache_UpsertWritesBothTiers(t *testing.T) {
	ctx := context.Background()
	front := NewMemoryAddressCache(time.Minute)
	back := NewMemoryAddressCache(time.Minute)
	tiered := &TieredAddressCache{Front: front, Back: back}

	assert.NoError(t, tiered.UpsertMany(ctx, []AddressRecord{rec("a", 1, 2)}))

	fromFront, _ := front.GetMany(ctx, []string{"a"})
	fromBack, _ := back.GetMany(ctx, []string{"a"})
	assert.Len(t, fromFront, 1)
	assert.Len(t, fromBack, 1)
}

func TestTieredDistanceCache_FrontHitSkipsBack(t *testing.T) {
	ctx := context.Background()
	front := NewMemoryDistanceCache(time.Minute)
	k := PairKey{From: "x", To: "y"}
	assert.NoError(t, front.UpsertMany(ctx, map[PairKey]Leg{k: {Miles: 5, Minutes: 7}}))

	// A nil back tier would panic if consulted on a full front hit.
	tiered := &TieredDistanceCache{Front: front}
	got, err := tiered.GetMany(ctx, []PairKey{k})
	assert.NoError(t, err)
	assert.Equal(t, Leg{Miles: 5, Minutes: 7}, got[k])
}
