// Per-job diagnostics: every non-fatal problem a planning run hits is
// accumulated here and surfaced in the response instead of aborting.

package plan

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Fatal error kinds. Everything else accumulates in Diagnostics.
var (
	// ErrInvalidInput marks a malformed table or missing required column.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRoutingInfeasible marks a route request the solver could not
	// satisfy within its time budget.
	ErrRoutingInfeasible = errors.New("routing infeasible")
)

// ReasonPieceWeightExceedsCapacity tags lines whose single-piece weight no
// truck can carry.
const ReasonPieceWeightExceedsCapacity = "piece_weight_exceeds_truck_capacity"

// RowIssue records one unparseable input row.
type RowIssue struct {
	RowIndex int    `json:"rowIndex"` // 0-based position in the input table
	Message  string `json:"message"`
}

// UnroutableLine records a line excluded from packing with its reason.
type UnroutableLine struct {
	SO             string  `json:"so"`
	Line           string  `json:"line"`
	Reason         string  `json:"reason"`
	WeightPerPiece float64 `json:"weightPerPiece"`
}

// GeocodeIssue records one address that could not be resolved.
type GeocodeIssue struct {
	Key     string `json:"key"`
	Query   string `json:"query"`
	Message string `json:"message"`
}

// Diagnostics accumulates the non-fatal problems of one planning job.
// Owned by a single job; not goroutine-safe.
type Diagnostics struct {
	InvalidRows       []RowIssue       `json:"invalidRows,omitempty"`
	Unroutable        []UnroutableLine `json:"unroutable,omitempty"`
	GeocodeFailures   []GeocodeIssue   `json:"geocodeFailed,omitempty"`
	ProviderFallbacks []string         `json:"providerFallbacks,omitempty"`
	CacheWarnings     []string         `json:"cacheWarnings,omitempty"`

	errs error
}

// AddInvalidRow records a row-level parse failure.
func (d *Diagnostics) AddInvalidRow(rowIndex int, err error) {
	d.InvalidRows = append(d.InvalidRows, RowIssue{RowIndex: rowIndex, Message: err.Error()})
	d.errs = multierr.Append(d.errs, fmt.Errorf("row %d: %w", rowIndex, err))
}

// AddUnroutable records a line excluded from packing.
func (d *Diagnostics) AddUnroutable(line *OrderLine, reason string) {
	d.Unroutable = append(d.Unroutable, UnroutableLine{
		SO:             line.SO,
		Line:           line.Line,
		Reason:         reason,
		WeightPerPiece: line.WeightPerPiece,
	})
	d.errs = multierr.Append(d.errs, fmt.Errorf("line %s-%s unroutable: %s", line.SO, line.Line, reason))
}

// AddGeocodeFailure records an address excluded from routing.
func (d *Diagnostics) AddGeocodeFailure(key, query string, err error) {
	d.GeocodeFailures = append(d.GeocodeFailures, GeocodeIssue{Key: key, Query: query, Message: err.Error()})
	d.errs = multierr.Append(d.errs, fmt.Errorf("geocode %q: %w", query, err))
}

// AddProviderFallback records a provider failure the job worked around.
func (d *Diagnostics) AddProviderFallback(msg string) {
	d.ProviderFallbacks = append(d.ProviderFallbacks, msg)
	d.errs = multierr.Append(d.errs, errors.New(msg))
}

// AddCacheWarning records a cache layer the job had to bypass.
func (d *Diagnostics) AddCacheWarning(msg string) {
	d.CacheWarnings = append(d.CacheWarnings, msg)
	d.errs = multierr.Append(d.errs, errors.New(msg))
}

// Err returns the combined non-fatal errors, nil when the job was clean.
func (d *Diagnostics) Err() error {
	return d.errs
}

// Empty reports whether the job accumulated no diagnostics at all.
func (d *Diagnostics) Empty() bool {
	return d.errs == nil
}
