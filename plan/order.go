// Defines the OrderLine struct that models one open order line awaiting
// shipment, and the priority bucket derived from its latest due date.

package plan

import (
	"encoding/json"
	"fmt"
	"time"
)

// Row is one raw input record after upstream column mapping: logical column
// name to cell text. Cells arrive untyped; the Normalizer owns coercion.
type Row map[string]string

// PriorityBucket ranks an order line's urgency from its latest due date.
// Lower values are more urgent and pack first.
type PriorityBucket int

const (
	BucketLate         PriorityBucket = iota // latest due date already passed
	BucketNearDue                            // due within 3 days
	BucketWithinWindow                       // due beyond 3 days
	BucketNotDue                             // no latest due date on the line
)

// nearDueDays is the inclusive day span that makes a line NearDue.
const nearDueDays = 3

func (b PriorityBucket) String() string {
	switch b {
	case BucketLate:
		return "Late"
	case BucketNearDue:
		return "NearDue"
	case BucketWithinWindow:
		return "WithinWindow"
	case BucketNotDue:
		return "NotDue"
	}
	return fmt.Sprintf("PriorityBucket(%d)", int(b))
}

// MarshalJSON renders the bucket by name so responses carry "Late", not 0.
func (b PriorityBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// BucketFor computes the priority bucket for a latest due date against the
// planning date. Both instants must be UTC midnights (see Normalizer).
func BucketFor(latestDue *time.Time, today time.Time) PriorityBucket {
	if latestDue == nil {
		return BucketNotDue
	}
	if latestDue.Before(today) {
		return BucketLate
	}
	days := int(latestDue.Sub(today).Hours() / 24)
	if days <= nearDueDays {
		return BucketNearDue
	}
	return BucketWithinWindow
}

// OrderLine is one canonicalized input row.
// Fresh lines come out of the Normalizer; remainder lines are derived copies
// the packer enqueues when a truck fills mid-line (Suffix and ParentLine set).
type OrderLine struct {
	SO   string // sales order number
	Line string // line number within the sales order

	Customer string
	Street   string
	City     string
	State    string
	Zip      string
	Country  string // derived from State: "Mexico" for Mexican state codes, else "USA"

	Zone  string // optional grouping attribute
	Route string // optional grouping attribute

	ReadyPieces    int
	ReadyWeight    float64 // lbs
	WeightPerPiece float64 // lbs; ReadyWeight / ReadyPieces, division-guarded
	Width          float64 // inches
	Grade          string
	Size           string

	EarliestDue *time.Time // UTC midnight; nil when absent
	LatestDue   *time.Time // UTC midnight; nil when absent

	IsLate      bool // LatestDue < today
	IsOverwidth bool // Width > 96 in
	Bucket      PriorityBucket

	Iteration  int    // remainder depth; 0 for fresh lines
	Suffix     string // remainder iteration tag "-R1", "-R2", ...; empty for fresh lines
	ParentLine string // "SO-Line" of the originating line; empty for fresh lines
}

// LineID is the stable identity of the source line, without remainder suffix.
func (l *OrderLine) LineID() string {
	if l.ParentLine != "" {
		return l.ParentLine
	}
	return l.SO + "-" + l.Line
}

// LineLabel is the display name carried on assignments: the line number plus
// any remainder suffix.
func (l *OrderLine) LineLabel() string {
	return l.Line + l.Suffix
}

// EarliestDueOnOrBefore reports whether the line's earliest due date is on or
// before the given day. Lines without an earliest due date pass: nothing
// forbids shipping them early.
func (l *OrderLine) EarliestDueOnOrBefore(day time.Time) bool {
	if l.EarliestDue == nil {
		return true
	}
	return !l.EarliestDue.After(day)
}

func (l *OrderLine) String() string {
	return fmt.Sprintf("OrderLine(%s-%s%s: %d pcs, %.0f lb, %s, %s %s)",
		l.SO, l.Line, l.Suffix, l.ReadyPieces, l.ReadyWeight, l.Bucket, l.City, l.State)
}
