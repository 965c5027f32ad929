// Defines the Truck and Assignment structs that make up a load plan, and the
// summary rebuild the Topper relies on after moving assignments around.

package plan

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Assignment commits a specific number of pieces of one order line to one
// truck. Immutable after creation except for TruckNumber, which the Topper
// rewrites when it moves the assignment to another truck.
type Assignment struct {
	TruckNumber       int     `json:"truckNumber"`
	SO                string  `json:"so"`
	Line              string  `json:"line"` // line number plus any remainder suffix
	CustomerName      string  `json:"customerName"`
	CustomerCity      string  `json:"customerCity"`
	CustomerState     string  `json:"customerState"`
	PiecesOnTransport int     `json:"piecesOnTransport"`
	TotalReadyPieces  int     `json:"totalReadyPieces"` // ready pieces of the source line
	WeightPerPiece    float64 `json:"weightPerPiece"`
	TotalWeight       float64 `json:"totalWeight"`
	Width             float64 `json:"width"`
	IsOverwidth       bool    `json:"isOverwidth"`
	IsLate            bool    `json:"isLate"`
	IsPartial         bool    `json:"isPartial"`
	IsRemainder       bool    `json:"isRemainder"`
	ParentLine        string  `json:"parentLine,omitempty"` // "SO-Line" of the source line for remainders

	BaseLine    string         `json:"-"` // line number without remainder suffix
	Grade       string         `json:"-"`
	Size        string         `json:"-"`
	EarliestDue *time.Time     `json:"-"`
	LatestDue   *time.Time     `json:"-"`
	Bucket      PriorityBucket `json:"-"`
	Key         GroupKey       `json:"-"`
}

// LineID is the stable identity of the source line, remainder suffix
// excluded. Remainder assignments resolve to their parent.
func (a *Assignment) LineID() string {
	if a.ParentLine != "" {
		return a.ParentLine
	}
	return a.SO + "-" + a.BaseLine
}

// EarliestDueOnOrBefore reports whether the assignment may ship on the given
// day. Assignments without an earliest due date always may.
func (a *Assignment) EarliestDueOnOrBefore(day time.Time) bool {
	if a.EarliestDue == nil {
		return true
	}
	return !a.EarliestDue.After(day)
}

// Truck is one planned load: a numbered, destination-bound set of
// assignments under a jurisdiction weight band.
type Truck struct {
	TruckNumber      int            `json:"truckNumber"`
	CustomerName     string         `json:"customerName"`
	CustomerCity     string         `json:"customerCity"`
	CustomerState    string         `json:"customerState"`
	Zone             string         `json:"zone,omitempty"`
	Route            string         `json:"route,omitempty"`
	TotalWeight      float64        `json:"totalWeight"`
	MinWeight        float64        `json:"minWeight"`
	MaxWeight        float64        `json:"maxWeight"`
	TotalOrders      int            `json:"totalOrders"` // distinct SOs
	TotalLines       int            `json:"totalLines"`
	TotalPieces      int            `json:"totalPieces"`
	MaxWidth         float64        `json:"maxWidth"`
	PercentOverwidth float64        `json:"percentOverwidth"` // weight-weighted
	ContainsLate     bool           `json:"containsLate"`
	Bucket           PriorityBucket `json:"priorityBucket"`

	Key         GroupKey      `json:"-"`
	Assignments []*Assignment `json:"-"` // flattened separately in responses
}

// EarliestDue is the minimum earliest due date across the truck's
// assignments, nil when none carries one.
func (t *Truck) EarliestDue() *time.Time {
	var min *time.Time
	for _, a := range t.Assignments {
		if a.EarliestDue == nil {
			continue
		}
		if min == nil || a.EarliestDue.Before(*min) {
			min = a.EarliestDue
		}
	}
	return min
}

// RebuildSummary recomputes every derived total from the truck's current
// assignments. The Topper calls this on both sides of every move so no
// denormalized figure can drift from the authoritative per-truck sums.
func (t *Truck) RebuildSummary() {
	t.TotalWeight = 0
	t.TotalPieces = 0
	t.TotalLines = len(t.Assignments)
	t.MaxWidth = 0
	t.ContainsLate = false
	hasNearDue := false
	overwidthWeight := 0.0

	for _, a := range t.Assignments {
		t.TotalWeight += a.TotalWeight
		t.TotalPieces += a.PiecesOnTransport
		if a.Width > t.MaxWidth {
			t.MaxWidth = a.Width
		}
		if a.IsOverwidth {
			overwidthWeight += a.TotalWeight
		}
		if a.IsLate {
			t.ContainsLate = true
		}
		if a.Bucket == BucketNearDue {
			hasNearDue = true
		}
	}

	t.TotalOrders = len(lo.UniqBy(t.Assignments, func(a *Assignment) string { return a.SO }))
	if t.TotalWeight > 0 {
		t.PercentOverwidth = overwidthWeight / t.TotalWeight * 100
	} else {
		t.PercentOverwidth = 0
	}
	t.Bucket = bucketForTruck(t.ContainsLate, hasNearDue)
}

// bucketForTruck derives a truck's bucket from its contents: Late wins,
// then NearDue, else WithinWindow.
func bucketForTruck(containsLate, hasNearDue bool) PriorityBucket {
	switch {
	case containsLate:
		return BucketLate
	case hasNearDue:
		return BucketNearDue
	default:
		return BucketWithinWindow
	}
}

func (t *Truck) String() string {
	return fmt.Sprintf("Truck %d (%s, %s %s): %.0f/%.0f lb, %d pcs, %d lines, %s",
		t.TruckNumber, t.CustomerName, t.CustomerCity, t.CustomerState,
		t.TotalWeight, t.MaxWeight, t.TotalPieces, t.TotalLines, t.Bucket)
}
