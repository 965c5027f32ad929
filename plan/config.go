package plan

import (
	"fmt"
	"strings"
	"time"
)

// WeightConfig holds the per-jurisdiction truck weight bands in lbs.
// Texas allows heavier gross loads than the surrounding states, so the band
// is selected per destination state at packing time.
type WeightConfig struct {
	TexasMin float64 `yaml:"texas_min" json:"texasMin"` // Topper fill target for TX trucks
	TexasMax float64 `yaml:"texas_max" json:"texasMax"` // hard ceiling for TX trucks
	OtherMin float64 `yaml:"other_min" json:"otherMin"` // Topper fill target elsewhere
	OtherMax float64 `yaml:"other_max" json:"otherMax"` // hard ceiling elsewhere
}

// DefaultWeightConfig returns the operational weight bands.
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		TexasMin: 47000,
		TexasMax: 52000,
		OtherMin: 44000,
		OtherMax: 48000,
	}
}

// BandFor selects the (min, max) weight band for a destination state.
func (w WeightConfig) BandFor(state string) (minWeight, maxWeight float64) {
	if IsTexas(state) {
		return w.TexasMin, w.TexasMax
	}
	return w.OtherMin, w.OtherMax
}

// IsTexas matches the destination states that use the Texas weight band.
func IsTexas(state string) bool {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "TX", "TEXAS":
		return true
	}
	return false
}

// Validate checks the bands are positive and ordered.
func (w WeightConfig) Validate() error {
	if w.TexasMin <= 0 || w.TexasMax <= 0 || w.OtherMin <= 0 || w.OtherMax <= 0 {
		return fmt.Errorf("weight config values must be positive, got %+v", w)
	}
	if w.TexasMin > w.TexasMax {
		return fmt.Errorf("texas_min %.0f exceeds texas_max %.0f", w.TexasMin, w.TexasMax)
	}
	if w.OtherMin > w.OtherMax {
		return fmt.Errorf("other_min %.0f exceeds other_max %.0f", w.OtherMin, w.OtherMax)
	}
	return nil
}

const (
	// DefaultSoftFullRatio is the fraction of maxWeight at which an open
	// truck finalizes even though more pieces might still fit.
	DefaultSoftFullRatio = 0.98

	// CapacityEpsilon is the relative floating tolerance on the max-weight
	// ceiling. A truck at maxWeight*(1+CapacityEpsilon) is still legal.
	CapacityEpsilon = 1e-4

	// DefaultMaxRemainderIterations bounds the remainder worklist drain.
	DefaultMaxRemainderIterations = 100

	// OverwidthInches is the width above which a line counts as overwidth.
	OverwidthInches = 96.0

	// DefaultPlanningWarehouse is the allow-list applied when the caller
	// does not pick warehouses. Rows from other warehouses are planned
	// elsewhere.
	DefaultPlanningWarehouse = "ZAC"
)

// Config carries everything one load-planning job needs. Zero values are
// filled by Normalize; callers usually start from DefaultConfig.
type Config struct {
	Weights       WeightConfig `yaml:"weight_config" json:"weightConfig"`
	SoftFullRatio float64      `yaml:"soft_full_ratio" json:"softFullRatio"` // finalize threshold as fraction of maxWeight
	MaxRemainder  int          `yaml:"max_remainder_iterations" json:"maxRemainderIterations"`

	// PlanningWhse keeps only rows whose planning warehouse matches
	// (case-insensitive). Nil means the operational default; an explicit
	// empty list disables warehouse filtering.
	PlanningWhse []string `yaml:"planning_whse" json:"planningWhse"`

	// NoMultiStop overrides the process-wide no-multi-stop customer set for
	// this job only. Nil means use the registry default.
	NoMultiStop []string `yaml:"no_multi_stop_customers" json:"noMultiStopCustomers"`

	// Today is the planning date as a UTC midnight. The zero value means
	// "current UTC date"; pin it for reproducible runs.
	Today time.Time `yaml:"-" json:"-"`
}

// DefaultConfig returns a job config with operational defaults and the
// current UTC date as the planning date.
func DefaultConfig() Config {
	return Config{
		Weights:       DefaultWeightConfig(),
		SoftFullRatio: DefaultSoftFullRatio,
		MaxRemainder:  DefaultMaxRemainderIterations,
		PlanningWhse:  []string{DefaultPlanningWarehouse},
	}
}

// Normalize fills zero-valued fields with defaults and resolves the planning
// date. Returns the effective config; the receiver is not modified.
func (c Config) Normalize() Config {
	if c.Weights == (WeightConfig{}) {
		c.Weights = DefaultWeightConfig()
	}
	if c.SoftFullRatio == 0 {
		c.SoftFullRatio = DefaultSoftFullRatio
	}
	if c.MaxRemainder == 0 {
		c.MaxRemainder = DefaultMaxRemainderIterations
	}
	if c.PlanningWhse == nil {
		c.PlanningWhse = []string{DefaultPlanningWarehouse}
	}
	if c.Today.IsZero() {
		c.Today = Midnight(time.Now().UTC())
	} else {
		c.Today = Midnight(c.Today)
	}
	return c
}

// Validate checks the effective config.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.SoftFullRatio <= 0 || c.SoftFullRatio > 1 {
		return fmt.Errorf("soft_full_ratio must be in (0, 1], got %f", c.SoftFullRatio)
	}
	if c.MaxRemainder < 1 {
		return fmt.Errorf("max_remainder_iterations must be at least 1, got %d", c.MaxRemainder)
	}
	return nil
}

// Midnight truncates an instant to UTC midnight. All due-date comparisons in
// the engine happen between midnights, so "≤ today" means "on or before
// today's date" regardless of wall-clock time.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
