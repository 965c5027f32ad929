// The per-group packing state machine: first-fit with piece-level splits,
// the late-mixing precheck, soft-full finalize, and the remainder worklist.

package plan

import (
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

// OpenTruck is the packer's working state for the truck currently filling.
// Only the fields the packing loop reads live here; every derived total is
// recomputed by Truck.RebuildSummary at finalize so nothing can drift.
type OpenTruck struct {
	Weight       float64
	ContainsLate bool
	EarliestDue  *time.Time // min earliest due across pending assignments
	Pending      []*Assignment
}

func newOpenTruck() *OpenTruck {
	return &OpenTruck{}
}

// Empty reports whether nothing has been committed to the open truck yet.
func (o *OpenTruck) Empty() bool {
	return o.Weight == 0
}

func (o *OpenTruck) earliestDueOnOrBefore(day time.Time) bool {
	if o.EarliestDue == nil {
		return true
	}
	return !o.EarliestDue.After(day)
}

// Packer turns grouped order lines into finalized trucks. One Packer serves
// one planning job; truck numbers are assigned in finalize order across all
// groups, so callers must feed groups in a stable order.
type Packer struct {
	cfg   Config
	diags *Diagnostics

	nextTruck int
	trucks    []*Truck
}

// NewPacker creates a packer for one job. cfg must already be normalized.
func NewPacker(cfg Config, diags *Diagnostics) *Packer {
	return &Packer{cfg: cfg, diags: diags}
}

// Trucks returns every truck finalized so far, in numbering order.
func (p *Packer) Trucks() []*Truck {
	return p.trucks
}

// groupState carries the per-group working set through the packing phases.
type groupState struct {
	key       GroupKey
	minWeight float64
	maxWeight float64
	softFull  float64
	open      *OpenTruck
	queue     []*OrderLine // remainder worklist
}

// PackGroup packs one group's lines into trucks: fresh lines in priority
// order, then the remainder worklist to fixed point or the safety bound.
// Lines whose single piece outweighs the truck ceiling are diagnosed as
// unroutable and skipped.
func (p *Packer) PackGroup(key GroupKey, lines []*OrderLine) {
	minW, maxW := p.cfg.Weights.BandFor(key.State)
	g := &groupState{
		key:       key,
		minWeight: minW,
		maxWeight: maxW,
		softFull:  maxW * p.cfg.SoftFullRatio,
		open:      newOpenTruck(),
	}

	fresh := make([]*OrderLine, 0, len(lines))
	for _, line := range lines {
		if line.WeightPerPiece > g.maxWeight {
			p.diags.AddUnroutable(line, ReasonPieceWeightExceedsCapacity)
			continue
		}
		fresh = append(fresh, line)
	}
	sortForPacking(fresh)
	for _, line := range fresh {
		p.packLine(g, line)
	}

	for iter := 1; len(g.queue) > 0; iter++ {
		if iter > p.cfg.MaxRemainder {
			logrus.Warnf("group %s: remainder worklist not drained after %d iterations, %d lines left",
				g.key, p.cfg.MaxRemainder, len(g.queue))
			break
		}
		batch := g.queue
		g.queue = nil
		sortForPacking(batch)
		for _, line := range batch {
			p.packLine(g, line)
		}
	}

	p.finalizeOpen(g)
}

// packLine runs the per-line packing step: late-mixing precheck, take
// computation, commit, residual enqueue, soft-full finalize.
func (p *Packer) packLine(g *groupState, line *OrderLine) {
	if p.mixBlocked(g.open, line) {
		p.finalizeOpen(g)
	}

	pieces := line.ReadyPieces
	wpp := line.WeightPerPiece
	for {
		capacity := g.maxWeight - g.open.Weight
		take := pieces
		if float64(pieces)*wpp > capacity {
			take = int(capacity / wpp)
		}
		if take == 0 && !g.open.Empty() {
			p.finalizeOpen(g)
			continue
		}
		if take > 0 {
			p.commit(g, line, take)
			if rest := pieces - take; rest > 0 {
				g.queue = append(g.queue, residualOf(line, rest))
			}
		}
		break
	}

	if g.open.Weight >= g.softFull {
		p.finalizeOpen(g)
	}
}

// mixBlocked applies the late-mixing rule to a line against the open truck:
// a non-late line may join a late truck only when it is already shippable
// (earliest due on or before today), and a late line may join a non-late
// truck only when everything on it is already shippable.
func (p *Packer) mixBlocked(o *OpenTruck, line *OrderLine) bool {
	if o.Empty() {
		return false
	}
	if !line.IsLate && o.ContainsLate {
		return !line.EarliestDueOnOrBefore(p.cfg.Today)
	}
	if line.IsLate && !o.ContainsLate {
		return !o.earliestDueOnOrBefore(p.cfg.Today)
	}
	return false
}

// commit appends an assignment for take pieces of the line to the open truck.
func (p *Packer) commit(g *groupState, line *OrderLine, take int) {
	a := &Assignment{
		SO:                line.SO,
		Line:              line.LineLabel(),
		CustomerName:      line.Customer,
		CustomerCity:      line.City,
		CustomerState:     line.State,
		PiecesOnTransport: take,
		TotalReadyPieces:  line.ReadyPieces,
		WeightPerPiece:    line.WeightPerPiece,
		TotalWeight:       float64(take) * line.WeightPerPiece,
		Width:             line.Width,
		IsOverwidth:       line.IsOverwidth,
		IsLate:            line.IsLate,
		IsPartial:         take < line.ReadyPieces,
		IsRemainder:       line.Suffix != "",
		ParentLine:        line.ParentLine,
		BaseLine:          line.Line,
		Grade:             line.Grade,
		Size:              line.Size,
		EarliestDue:       line.EarliestDue,
		LatestDue:         line.LatestDue,
		Bucket:            line.Bucket,
		Key:               g.key,
	}

	o := g.open
	o.Weight += a.TotalWeight
	if a.IsLate {
		o.ContainsLate = true
	}
	if a.EarliestDue != nil && (o.EarliestDue == nil || a.EarliestDue.Before(*o.EarliestDue)) {
		o.EarliestDue = a.EarliestDue
	}
	o.Pending = append(o.Pending, a)
}

// residualOf derives the remainder line for the pieces that did not fit.
func residualOf(line *OrderLine, rest int) *OrderLine {
	rem := *line
	rem.ReadyPieces = rest
	rem.ReadyWeight = float64(rest) * line.WeightPerPiece
	rem.Iteration = line.Iteration + 1
	rem.Suffix = fmt.Sprintf("-R%d", rem.Iteration)
	rem.ParentLine = line.LineID()
	return &rem
}

// finalizeOpen numbers the open truck, stamps its assignments, derives the
// summary, and resets the group's open state. Empty trucks are not emitted.
func (p *Packer) finalizeOpen(g *groupState) {
	o := g.open
	if o.Empty() {
		return
	}
	p.nextTruck++
	t := &Truck{
		TruckNumber:   p.nextTruck,
		CustomerName:  g.key.Customer,
		CustomerCity:  g.key.City,
		CustomerState: g.key.State,
		Zone:          g.key.Zone,
		Route:         g.key.Route,
		MinWeight:     g.minWeight,
		MaxWeight:     g.maxWeight,
		Key:           g.key,
		Assignments:   o.Pending,
	}
	for _, a := range t.Assignments {
		a.TruckNumber = t.TruckNumber
	}
	t.RebuildSummary()
	p.trucks = append(p.trucks, t)
	logrus.Debugf("finalized %s", t)
	g.open = newOpenTruck()
}

// sortForPacking orders lines for presentation to the packer: priority rank
// ascending, ties broken by (SO, Line) lexical order. Stable so remainder
// batches keep their enqueue order on full ties.
func sortForPacking(lines []*OrderLine) {
	slices.SortStableFunc(lines, func(a, b *OrderLine) int {
		if a.Bucket != b.Bucket {
			return int(a.Bucket) - int(b.Bucket)
		}
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
}
