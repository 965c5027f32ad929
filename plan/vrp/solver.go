// Deterministic VRP heuristic: feasibility prechecks, cheapest-arc
// insertion, then relocate and 2-opt improvement under a wall-clock budget.
// Route sizes are capped low so the exhaustive neighborhood scans stay
// cheap.

package vrp

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

const maxImprovePasses = 25

// Solve routes the problem's stops. The returned solution is deterministic
// for a given problem as long as the search converges inside the budget.
func Solve(p *Problem) (*Solution, error) {
	n := len(p.Stops)
	if len(p.Minutes) != n+1 || len(p.Miles) != n+1 {
		return nil, fmt.Errorf("travel matrix is %dx%d, want %d stops plus depot", len(p.Minutes), len(p.Minutes), n)
	}
	for i := range p.Minutes {
		if len(p.Minutes[i]) != n+1 || len(p.Miles[i]) != n+1 {
			return nil, fmt.Errorf("travel matrix row %d is not %d wide", i, n+1)
		}
	}

	budget := p.TimeBudget
	if budget <= 0 {
		budget = DefaultTimeBudget
	}
	s := &solver{p: p, n: n, deadline: time.Now().Add(budget)}

	feasible := s.precheck()
	vehicles := p.Vehicles
	if vehicles <= 0 || vehicles > len(feasible) {
		vehicles = len(feasible)
	}
	s.routes = make([][]int, vehicles)

	s.insertAll(feasible)
	s.improve()
	s.rescue()
	for _, k := range s.unrouted {
		s.dropped = append(s.dropped, DroppedStop{Stop: k, Reason: ReasonNotRouted})
	}

	sol := s.extract()
	penalty := p.DropPenalty
	if penalty <= 0 {
		penalty = DefaultDropPenalty
	}
	logrus.Debugf("vrp: %d stops, %d routes, %d dropped, objective %.1f",
		n, len(sol.Routes), len(sol.Dropped), sol.Objective(penalty))
	return sol, nil
}

type solver struct {
	p        *Problem
	n        int
	routes   [][]int // stop indices per vehicle, visit order
	unrouted []int
	dropped  []DroppedStop
	deadline time.Time
}

// precheck weeds out stops no route could ever serve, with the reason.
func (s *solver) precheck() []int {
	feasible := make([]int, 0, s.n)
	for k := 0; k < s.n; k++ {
		node := k + 1
		switch {
		case s.p.Capacity > 0 && s.p.Stops[k].Weight > s.p.Capacity:
			s.dropped = append(s.dropped, DroppedStop{Stop: k, Reason: ReasonStopTooHeavy})
		case s.p.Minutes[0][node] < 0 || s.p.Minutes[node][0] < 0:
			s.dropped = append(s.dropped, DroppedStop{Stop: k, Reason: ReasonNoTravelData})
		case s.p.MaxRouteTime > 0 && s.p.Minutes[0][node]+s.p.Minutes[node][0]+s.p.ServiceTime > s.p.MaxRouteTime:
			s.dropped = append(s.dropped, DroppedStop{Stop: k, Reason: ReasonRoundtripTooLong})
		default:
			feasible = append(feasible, k)
		}
	}
	return feasible
}

// insertAll places stops by repeated cheapest feasible insertion. Stops
// that fit nowhere go to the unrouted list.
func (s *solver) insertAll(stops []int) {
	remaining := slices.Clone(stops)
	for len(remaining) > 0 {
		bestStop, bestRoute, bestPos := -1, -1, -1
		bestCost := math.Inf(1)
		for _, k := range remaining {
			for r := range s.routes {
				for pos := 0; pos <= len(s.routes[r]); pos++ {
					cost, ok := s.insertionCost(r, pos, k)
					if ok && cost < bestCost {
						bestCost, bestStop, bestRoute, bestPos = cost, k, r, pos
					}
				}
			}
		}
		if bestStop < 0 {
			s.unrouted = append(s.unrouted, remaining...)
			return
		}
		s.routes[bestRoute] = slices.Insert(s.routes[bestRoute], bestPos, bestStop)
		remaining = slices.DeleteFunc(remaining, func(k int) bool { return k == bestStop })
	}
}

// insertionCost is the drive-minute delta of inserting stop k at pos in
// route r, or ok=false when the insertion would break a constraint.
func (s *solver) insertionCost(r, pos, k int) (float64, bool) {
	route := s.routes[r]
	if s.p.MaxStops > 0 && len(route) >= s.p.MaxStops {
		return 0, false
	}
	if s.p.Capacity > 0 && s.routeWeight(route)+s.p.Stops[k].Weight > s.p.Capacity {
		return 0, false
	}
	node := k + 1
	prev, next := 0, 0
	if pos > 0 {
		prev = route[pos-1] + 1
	}
	if pos < len(route) {
		next = route[pos] + 1
	}
	if s.p.Minutes[prev][node] < 0 || s.p.Minutes[node][next] < 0 {
		return 0, false
	}
	delta := s.p.Minutes[prev][node] + s.p.Minutes[node][next] - s.p.Minutes[prev][next]
	if s.p.MaxRouteTime > 0 {
		total := s.routeDrive(route) + delta + s.p.ServiceTime*float64(len(route)+1)
		if total > s.p.MaxRouteTime {
			return 0, false
		}
	}
	return delta, true
}

// improve alternates relocate and 2-opt passes until neither finds a move
// or the wall clock runs out.
func (s *solver) improve() {
	for pass := 0; pass < maxImprovePasses; pass++ {
		if time.Now().After(s.deadline) {
			logrus.Debugf("vrp: search budget exhausted after %d passes", pass)
			return
		}
		improved := s.relocatePass()
		if s.twoOptPass() {
			improved = true
		}
		if !improved {
			return
		}
	}
}

// twoOptPass reverses route segments that shorten the drive. Deltas are
// full recomputes because the matrices are asymmetric.
func (s *solver) twoOptPass() bool {
	improved := false
	for r := range s.routes {
		route := s.routes[r]
		if len(route) < 2 {
			continue
		}
		for {
			if time.Now().After(s.deadline) {
				return improved
			}
			base := s.routeDrive(route)
			bestDelta := -1e-9
			bi, bj := -1, -1
			for i := 0; i < len(route)-1; i++ {
				for j := i + 1; j < len(route); j++ {
					trial := slices.Clone(route)
					slices.Reverse(trial[i : j+1])
					if d := s.routeDrive(trial) - base; d < bestDelta {
						bestDelta, bi, bj = d, i, j
					}
				}
			}
			if bi < 0 {
				break
			}
			slices.Reverse(route[bi : bj+1])
			improved = true
		}
	}
	return improved
}

// relocatePass moves single stops between (or within) routes while the
// total drive improves and the receiving route stays feasible.
func (s *solver) relocatePass() bool {
	improved := false
	for {
		if time.Now().After(s.deadline) {
			return improved
		}
		bestDelta := -1e-9
		bestFrom, bestAt, bestTo, bestPos := -1, -1, -1, -1
		for from := range s.routes {
			for at := range s.routes[from] {
				for to := range s.routes {
					for pos := 0; pos <= len(s.routes[to]); pos++ {
						if from == to && (pos == at || pos == at+1) {
							continue
						}
						delta, ok := s.relocateDelta(from, at, to, pos)
						if ok && delta < bestDelta {
							bestDelta = delta
							bestFrom, bestAt, bestTo, bestPos = from, at, to, pos
						}
					}
				}
			}
		}
		if bestFrom < 0 {
			break
		}
		s.applyRelocate(bestFrom, bestAt, bestTo, bestPos)
		improved = true
	}
	return improved
}

func (s *solver) relocateDelta(from, at, to, pos int) (float64, bool) {
	k := s.routes[from][at]
	src := slices.Delete(slices.Clone(s.routes[from]), at, at+1)

	var dst []int
	if from == to {
		dst = src
		if pos > at {
			pos--
		}
	} else {
		dst = slices.Clone(s.routes[to])
	}
	if s.p.MaxStops > 0 && len(dst) >= s.p.MaxStops {
		return 0, false
	}
	if s.p.Capacity > 0 && s.routeWeight(dst)+s.p.Stops[k].Weight > s.p.Capacity {
		return 0, false
	}
	dst = slices.Insert(dst, pos, k)
	if s.p.MaxRouteTime > 0 {
		if s.routeDrive(dst)+s.p.ServiceTime*float64(len(dst)) > s.p.MaxRouteTime {
			return 0, false
		}
	}

	before := s.routeDrive(s.routes[from])
	after := s.routeDrive(dst)
	if from != to {
		before += s.routeDrive(s.routes[to])
		after += s.routeDrive(src)
	}
	return after - before, true
}

func (s *solver) applyRelocate(from, at, to, pos int) {
	k := s.routes[from][at]
	s.routes[from] = slices.Delete(s.routes[from], at, at+1)
	if from == to && pos > at {
		pos--
	}
	s.routes[to] = slices.Insert(s.routes[to], pos, k)
}

// rescue retries the unrouted stops once after improvement has freed up
// capacity and time.
func (s *solver) rescue() {
	if len(s.unrouted) == 0 {
		return
	}
	pending := s.unrouted
	s.unrouted = nil
	s.insertAll(pending)
}

func (s *solver) routeWeight(route []int) float64 {
	total := 0.0
	for _, k := range route {
		total += s.p.Stops[k].Weight
	}
	return total
}

// routeDrive is the depot-to-depot drive time of a route, service excluded.
func (s *solver) routeDrive(route []int) float64 {
	if len(route) == 0 {
		return 0
	}
	total := s.p.Minutes[0][route[0]+1]
	for i := 1; i < len(route); i++ {
		total += s.p.Minutes[route[i-1]+1][route[i]+1]
	}
	return total + s.p.Minutes[route[len(route)-1]+1][0]
}

func (s *solver) routeMiles(route []int) float64 {
	if len(route) == 0 {
		return 0
	}
	total := s.p.Miles[0][route[0]+1]
	for i := 1; i < len(route); i++ {
		total += s.p.Miles[route[i-1]+1][route[i]+1]
	}
	return total + s.p.Miles[route[len(route)-1]+1][0]
}

// extract renders the surviving routes with 1-based vehicle numbers and
// service time folded into the totals.
func (s *solver) extract() *Solution {
	sol := &Solution{Dropped: s.dropped}
	vehicle := 0
	for _, route := range s.routes {
		if len(route) == 0 {
			continue
		}
		vehicle++
		r := Route{
			Vehicle: vehicle,
			Stops:   slices.Clone(route),
			Miles:   s.routeMiles(route),
			Minutes: s.routeDrive(route) + s.p.ServiceTime*float64(len(route)),
		}
		for _, k := range route {
			r.Weight += s.p.Stops[k].Weight
			r.Pieces += s.p.Stops[k].Pieces
		}
		sol.Routes = append(sol.Routes, r)
	}
	slices.SortFunc(sol.Dropped, func(a, b DroppedStop) int { return a.Stop - b.Stop })
	return sol
}
