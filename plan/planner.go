// The load-planning facade: wires the filter, packer, and topper into the
// single entry point external callers use.

package plan

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// LoadPlan is the load-planning response: the trucks, the flattened
// assignments, and the bucket sections, plus what the pipeline dropped.
type LoadPlan struct {
	Trucks      []*Truck         `json:"trucks"`
	Assignments []*Assignment    `json:"assignments"`
	Sections    map[string][]int `json:"sections"` // bucket name -> truck numbers
	Stats       FilterStats      `json:"stats"`
	Diagnostics *Diagnostics     `json:"diagnostics,omitempty"`
}

// ValidateTable checks that the canonical required columns are present.
// Row-level problems are not table problems; only a missing column is fatal.
func ValidateTable(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	for _, col := range RequiredColumns {
		if _, ok := rows[0][col]; !ok {
			return fmt.Errorf("%w: required column %q missing", ErrInvalidInput, col)
		}
	}
	return nil
}

// PlanLoads runs the full load-planning pipeline: normalize and filter the
// rows, group them, pack each group in a stable order, then top off
// high-priority trucks from lower-priority donors. The only fatal error is
// a malformed table; everything else lands in the plan's diagnostics.
func PlanLoads(rows []Row, cfg Config) (*LoadPlan, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := ValidateTable(rows); err != nil {
		return nil, err
	}

	diags := &Diagnostics{}
	lines, stats := PrepareRows(rows, cfg, diags)
	logrus.Infof("planning %d lines for %s", len(lines), cfg.Today.Format("2006-01-02"))

	packer := NewPacker(cfg, diags)
	groups := lo.GroupBy(lines, func(l *OrderLine) GroupKey { return KeyFor(l) })
	for _, key := range orderedGroupKeys(groups) {
		packer.PackGroup(key, groups[key])
	}

	trucks := NewTopper(cfg).Run(packer.Trucks())

	p := &LoadPlan{
		Trucks:      trucks,
		Assignments: flattenAssignments(trucks),
		Sections:    buildSections(trucks),
		Stats:       stats,
	}
	if !diags.Empty() {
		p.Diagnostics = diags
	}
	logrus.Infof("planned %d trucks, %d assignments", len(p.Trucks), len(p.Assignments))
	return p, nil
}

// orderedGroupKeys fixes the group iteration order truck numbering depends
// on: most urgent group first (best bucket among its lines), ties in group
// key order.
func orderedGroupKeys(groups map[GroupKey][]*OrderLine) []GroupKey {
	rank := make(map[GroupKey]PriorityBucket, len(groups))
	for key, lines := range groups {
		best := BucketNotDue
		for _, l := range lines {
			if l.Bucket < best {
				best = l.Bucket
			}
		}
		rank[key] = best
	}
	keys := lo.Keys(groups)
	slices.SortFunc(keys, func(a, b GroupKey) int {
		if rank[a] != rank[b] {
			return int(rank[a]) - int(rank[b])
		}
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	return keys
}

// flattenAssignments lists every truck's assignments in truck order.
func flattenAssignments(trucks []*Truck) []*Assignment {
	out := make([]*Assignment, 0, len(trucks))
	for _, t := range trucks {
		out = append(out, t.Assignments...)
	}
	return out
}

// buildSections maps each bucket name to its truck numbers. All four bucket
// keys are always present so the response shape is stable.
func buildSections(trucks []*Truck) map[string][]int {
	sections := map[string][]int{
		BucketLate.String():         {},
		BucketNearDue.String():      {},
		BucketWithinWindow.String(): {},
		BucketNotDue.String():       {},
	}
	for _, t := range trucks {
		name := t.Bucket.String()
		sections[name] = append(sections[name], t.TruckNumber)
	}
	return sections
}
