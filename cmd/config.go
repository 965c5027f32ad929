package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/truckplan/truckplan/plan"
	"github.com/truckplan/truckplan/plan/geo"
	"github.com/truckplan/truckplan/plan/store"
)

// Distance and geocode providers the CLI knows how to wire.
const (
	ProviderGoogle    = "google"
	ProviderHaversine = "haversine"
)

var validProviders = map[string]bool{
	ProviderGoogle:    true,
	ProviderHaversine: true,
}

// googleAPIKeyEnv is consulted when the config file carries no key.
const googleAPIKeyEnv = "GOOGLE_MAPS_API_KEY"

// DepotConfig locates the yard every route starts and ends at.
type DepotConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Name      string  `yaml:"name"`
}

// FileConfig is the YAML configuration file. Every section is optional;
// zero values fall back to operational defaults.
type FileConfig struct {
	Planner      plan.Config        `yaml:"planner"`
	Routing      plan.RoutingParams `yaml:"routing"`
	Provider     string             `yaml:"provider"` // google | haversine
	GoogleAPIKey string             `yaml:"google_api_key"`
	CacheDB      string             `yaml:"cache_db"`
	Depot        *DepotConfig       `yaml:"depot"`
}

// Normalize fills defaults: offline estimation unless a live provider is
// configured, and the API key from the environment when the file has none.
func (c FileConfig) Normalize() FileConfig {
	if c.Provider == "" {
		c.Provider = ProviderHaversine
	}
	if c.GoogleAPIKey == "" {
		c.GoogleAPIKey = os.Getenv(googleAPIKeyEnv)
	}
	return c
}

// Validate checks the provider selection and its prerequisites.
func (c FileConfig) Validate() error {
	if !validProviders[c.Provider] {
		names := make([]string, 0, len(validProviders))
		for p := range validProviders {
			names = append(names, p)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown provider %q, valid providers: %s", c.Provider, strings.Join(names, ", "))
	}
	if c.Provider == ProviderGoogle && c.GoogleAPIKey == "" {
		return fmt.Errorf("provider %q requires google_api_key in the config file or %s in the environment",
			ProviderGoogle, googleAPIKeyEnv)
	}
	return nil
}

// parseFileConfig decodes YAML with strict field checking so a typo in a
// key fails loudly instead of silently using a default.
func parseFileConfig(data []byte) (FileConfig, error) {
	var cfg FileConfig
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg.Normalize(), nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFileConfig reads the config file at path; an empty path means all
// defaults.
func loadFileConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}.Normalize(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config file: %w", err)
	}
	return parseFileConfig(data)
}

// depot converts the optional depot section, falling back to the yard.
func (c FileConfig) depot() plan.Depot {
	if c.Depot == nil {
		return plan.DefaultDepot()
	}
	return plan.Depot{
		Point: geo.Point{Lat: c.Depot.Latitude, Lng: c.Depot.Longitude},
		Name:  c.Depot.Name,
	}
}

// buildRouter wires the geocoder, distance provider, and cache tiers the
// config asks for. The returned closer releases the cache store, if any.
func buildRouter(cfg FileConfig) (*plan.Router, func(), error) {
	addrCache := geo.AddressCache(geo.NewMemoryAddressCache(0))
	distCache := geo.DistanceCache(geo.NewMemoryDistanceCache(0))
	closer := func() {}

	if cfg.CacheDB != "" {
		st, err := store.Open(cfg.CacheDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache db: %w", err)
		}
		var degraded sync.Once
		warn := func(err error) {
			degraded.Do(func() { logrus.Warnf("cache store degraded, continuing without persistence: %v", err) })
		}
		addrCache = &geo.TieredAddressCache{Front: addrCache, Back: st.Addresses(), Warn: warn}
		distCache = &geo.TieredDistanceCache{Front: distCache, Back: st.Distances(cfg.Provider), Warn: warn}
		closer = func() { _ = st.Close() }
	}

	geocoder := &geo.Geocoder{Cache: addrCache}
	matrix := &geo.MatrixBuilder{Cache: distCache}
	if cfg.Provider == ProviderGoogle {
		client := &geo.GoogleClient{APIKey: cfg.GoogleAPIKey}
		geocoder.Provider = client
		matrix.Provider = client
	}

	return &plan.Router{Geocoder: geocoder, Matrix: matrix, Depot: cfg.depot()}, closer, nil
}
