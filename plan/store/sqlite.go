// Package store persists the geocode and distance caches in a local SQLite
// database so repeat planning runs spend no API quota on known addresses.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/truckplan/truckplan/plan/geo"
)

// SQLite's parameter ceiling is 999 by default; chunk sizes keep every
// generated query safely under it.
const (
	addressChunk  = 900
	distanceChunk = 400 // three params per pair plus the provider
)

const schema = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_key TEXT PRIMARY KEY,
	query       TEXT NOT NULL,
	street      TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	zip         TEXT NOT NULL DEFAULT '',
	country     TEXT NOT NULL DEFAULT '',
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	confidence  REAL NOT NULL,
	provider    TEXT NOT NULL,
	updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS distance_cache (
	origin_key  TEXT NOT NULL,
	dest_key    TEXT NOT NULL,
	provider    TEXT NOT NULL,
	miles       REAL NOT NULL,
	minutes     REAL NOT NULL,
	updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (origin_key, dest_key, provider)
);`

// Store owns the cache database. One Store serves a whole process; the
// connection pool is capped at one because SQLite allows a single writer.
type Store struct {
	db *sql.DB
}

// Open opens the cache database at path, creating the schema if needed.
// ":memory:" gives a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	logrus.Debugf("cache store open at %s", path)
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Addresses returns the geocode side of the store as a geo.AddressCache.
func (s *Store) Addresses() geo.AddressCache {
	return addressStore{db: s.db}
}

// Distances returns the distance side of the store, bound to one provider
// name, as a geo.DistanceCache.
func (s *Store) Distances(provider string) geo.DistanceCache {
	return distanceStore{db: s.db, provider: provider}
}

type addressStore struct {
	db *sql.DB
}

func (a addressStore) GetMany(ctx context.Context, keys []string) (map[string]geo.AddressRecord, error) {
	out := make(map[string]geo.AddressRecord, len(keys))
	for _, chunk := range lo.Chunk(keys, addressChunk) {
		if err := a.getChunk(ctx, chunk, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a addressStore) getChunk(ctx context.Context, keys []string, out map[string]geo.AddressRecord) error {
	query := fmt.Sprintf(`SELECT address_key, query, street, city, state, zip, country,
		latitude, longitude, confidence, provider
		FROM geocode_cache WHERE address_key IN (%s)`, placeholders(len(keys)))
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("geocode cache read: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r geo.AddressRecord
		if err := rows.Scan(&r.Key, &r.Query,
			&r.Address.Street, &r.Address.City, &r.Address.State, &r.Address.Zip, &r.Address.Country,
			&r.Point.Lat, &r.Point.Lng, &r.Confidence, &r.Provider); err != nil {
			return fmt.Errorf("geocode cache scan: %w", err)
		}
		out[r.Key] = r
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("geocode cache read: %w", err)
	}
	return nil
}

func (a addressStore) UpsertMany(ctx context.Context, recs []geo.AddressRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("geocode cache write: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO geocode_cache
		(address_key, query, street, city, state, zip, country, latitude, longitude, confidence, provider)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address_key) DO UPDATE SET
			query = excluded.query,
			street = excluded.street, city = excluded.city, state = excluded.state,
			zip = excluded.zip, country = excluded.country,
			latitude = excluded.latitude, longitude = excluded.longitude,
			confidence = excluded.confidence, provider = excluded.provider,
			updated_at = datetime('now')`)
	if err != nil {
		return fmt.Errorf("geocode cache write: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.Key, r.Query,
			r.Address.Street, r.Address.City, r.Address.State, r.Address.Zip, r.Address.Country,
			r.Point.Lat, r.Point.Lng, r.Confidence, r.Provider); err != nil {
			return fmt.Errorf("geocode cache write %s: %w", r.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("geocode cache commit: %w", err)
	}
	return nil
}

type distanceStore struct {
	db       *sql.DB
	provider string
}

func (d distanceStore) GetMany(ctx context.Context, keys []geo.PairKey) (map[geo.PairKey]geo.Leg, error) {
	out := make(map[geo.PairKey]geo.Leg, len(keys))
	for _, chunk := range lo.Chunk(keys, distanceChunk) {
		if err := d.getChunk(ctx, chunk, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d distanceStore) getChunk(ctx context.Context, keys []geo.PairKey, out map[geo.PairKey]geo.Leg) error {
	pairs := make([]string, len(keys))
	args := make([]any, 0, len(keys)*2+1)
	args = append(args, d.provider)
	for i, k := range keys {
		pairs[i] = "(?, ?)"
		args = append(args, k.From, k.To)
	}
	query := fmt.Sprintf(`SELECT origin_key, dest_key, miles, minutes
		FROM distance_cache WHERE provider = ? AND (origin_key, dest_key) IN (VALUES %s)`,
		strings.Join(pairs, ", "))
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("distance cache read: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k geo.PairKey
		var l geo.Leg
		if err := rows.Scan(&k.From, &k.To, &l.Miles, &l.Minutes); err != nil {
			return fmt.Errorf("distance cache scan: %w", err)
		}
		out[k] = l
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("distance cache read: %w", err)
	}
	return nil
}

func (d distanceStore) UpsertMany(ctx context.Context, legs map[geo.PairKey]geo.Leg) error {
	if len(legs) == 0 {
		return nil
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("distance cache write: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO distance_cache
		(origin_key, dest_key, provider, miles, minutes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(origin_key, dest_key, provider) DO UPDATE SET
			miles = excluded.miles,
			minutes = excluded.minutes,
			updated_at = datetime('now')`)
	if err != nil {
		return fmt.Errorf("distance cache write: %w", err)
	}
	defer stmt.Close()

	for k, l := range legs {
		if _, err := stmt.ExecContext(ctx, k.From, k.To, d.provider, l.Miles, l.Minutes); err != nil {
			return fmt.Errorf("distance cache write %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("distance cache commit: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
