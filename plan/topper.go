// The cross-bucket redistribution pass: after packing, under-filled
// higher-priority trucks absorb whole assignments from lower-priority
// donors headed to the same destination.

package plan

import (
	"slices"

	"github.com/sirupsen/logrus"
)

// Topper tops off under-filled high-priority trucks from lower-priority
// donors sharing the exact group key. It is the only mechanism that lets a
// Late truck absorb spare weight from a WithinWindow truck headed to the
// same destination; the packer itself is single-pass and group-local.
type Topper struct {
	cfg Config

	moves int
}

// NewTopper creates a topper for one job. cfg must already be normalized.
func NewTopper(cfg Config) *Topper {
	return &Topper{cfg: cfg}
}

// Run applies both redistribution passes and returns the surviving trucks:
// Late targets first (NearDue and WithinWindow donors), then NearDue targets
// (WithinWindow donors). Donors emptied by the moves are dropped; truck
// numbers are not reassigned. Running it again on its own output is a no-op.
func (tp *Topper) Run(trucks []*Truck) []*Truck {
	tp.pass(trucks, BucketLate, []PriorityBucket{BucketNearDue, BucketWithinWindow})
	tp.pass(trucks, BucketNearDue, []PriorityBucket{BucketWithinWindow})

	kept := make([]*Truck, 0, len(trucks))
	for _, t := range trucks {
		if len(t.Assignments) == 0 {
			logrus.Debugf("topper: dropping emptied truck %d", t.TruckNumber)
			continue
		}
		kept = append(kept, t)
	}
	if tp.moves > 0 {
		logrus.Infof("topper: moved %d assignments, %d trucks remain", tp.moves, len(kept))
	}
	return kept
}

// filled reports whether a target truck has reached its fill goal: minWeight
// or the soft-full threshold, whichever comes first.
func (tp *Topper) filled(t *Truck) bool {
	return t.TotalWeight >= t.MinWeight || t.TotalWeight >= t.MaxWeight*tp.cfg.SoftFullRatio
}

func (tp *Topper) pass(trucks []*Truck, target PriorityBucket, donorBuckets []PriorityBucket) {
	var targets []*Truck
	donorsByKey := make(map[GroupKey][]*Truck)
	for _, t := range trucks {
		if len(t.Assignments) == 0 {
			continue
		}
		switch {
		case t.Bucket == target && !tp.filled(t):
			targets = append(targets, t)
		case slices.Contains(donorBuckets, t.Bucket):
			donorsByKey[t.Key] = append(donorsByKey[t.Key], t)
		}
	}

	// Moves are applied in (target, donor, assignment) order sorted by
	// (truckNumber, SO, Line) so two runs on identical input agree.
	slices.SortFunc(targets, func(a, b *Truck) int { return a.TruckNumber - b.TruckNumber })
	for _, donors := range donorsByKey {
		slices.SortFunc(donors, func(a, b *Truck) int { return a.TruckNumber - b.TruckNumber })
	}

	affected := make(map[*Truck]bool)
	for _, tgt := range targets {
		limit := tgt.MaxWeight * (1 + CapacityEpsilon)
		for _, donor := range donorsByKey[tgt.Key] {
			if tp.filled(tgt) {
				break
			}
			for _, a := range sortedAssignments(donor) {
				if tp.filled(tgt) {
					break
				}
				if tgt.TotalWeight+a.TotalWeight > limit {
					continue
				}
				if target == BucketLate && !a.EarliestDueOnOrBefore(tp.cfg.Today) {
					continue
				}
				tp.move(a, donor, tgt)
				affected[tgt], affected[donor] = true, true
			}
		}
	}

	for t := range affected {
		t.RebuildSummary()
	}
}

// move reassigns one whole assignment from donor to target. Weights are
// updated live so the capacity and fill checks stay accurate mid-pass; the
// full summaries are rebuilt once the pass completes.
func (tp *Topper) move(a *Assignment, donor, tgt *Truck) {
	donor.Assignments = slices.DeleteFunc(donor.Assignments, func(x *Assignment) bool { return x == a })
	a.TruckNumber = tgt.TruckNumber
	tgt.Assignments = append(tgt.Assignments, a)
	tgt.TotalWeight += a.TotalWeight
	donor.TotalWeight -= a.TotalWeight
	tp.moves++
	logrus.Debugf("topper: moved %s-%s (%.0f lb) from truck %d to truck %d",
		a.SO, a.Line, a.TotalWeight, donor.TruckNumber, tgt.TruckNumber)
}

// sortedAssignments snapshots a donor's assignments in (SO, Line) order.
// A fresh snapshot per pairing keeps iteration safe across removals.
func sortedAssignments(t *Truck) []*Assignment {
	out := slices.Clone(t.Assignments)
	slices.SortFunc(out, func(a, b *Assignment) int {
		if a.SO != b.SO {
			if a.SO < b.SO {
				return -1
			}
			return 1
		}
		if a.Line != b.Line {
			if a.Line < b.Line {
				return -1
			}
			return 1
		}
		return 0
	})
	return out
}
