// Package vrp solves the small capacitated vehicle routing problems the
// route planner produces: minimize total drive time under per-truck weight,
// stop-count, and drive-time limits, dropping stops only under constraint
// pressure.
package vrp

import "time"

// DefaultTimeBudget bounds the local search wall clock.
const DefaultTimeBudget = 30 * time.Second

// DefaultDropPenalty prices an unrouted stop. It dwarfs any realistic route
// cost so the solver drops stops only when no feasible placement exists.
const DefaultDropPenalty = 100000.0

// Drop reasons.
const (
	ReasonStopTooHeavy     = "stop_weight_exceeds_truck_capacity"
	ReasonRoundtripTooLong = "roundtrip_time_exceeds_limit"
	ReasonNoTravelData     = "no_distance_time_available"
	ReasonNotRouted        = "not_routed_under_constraints"
)

// Stop is one routable destination with its aggregated demand.
type Stop struct {
	ID     string
	Name   string
	Weight float64 // lbs
	Pieces int
}

// Problem is one solver input. Matrix index 0 is the depot; stop k maps to
// matrix index k+1. Negative minutes mark pairs with no travel data.
type Problem struct {
	Stops   []Stop
	Minutes [][]float64
	Miles   [][]float64

	Capacity     float64 // per-vehicle weight limit, 0 = unbounded
	MaxRouteTime float64 // drive plus service minutes per vehicle, 0 = unbounded
	ServiceTime  float64 // minutes spent at each stop
	MaxStops     int     // per-route stop ceiling, 0 = unbounded
	Vehicles     int     // fleet size, 0 = one per stop
	DropPenalty  float64 // cost of leaving a stop unrouted

	TimeBudget time.Duration // local search wall clock, 0 = DefaultTimeBudget
}

// Route is one used vehicle: the visit order plus its totals. Minutes
// includes the per-stop service time.
type Route struct {
	Vehicle int
	Stops   []int // indices into Problem.Stops in visit order
	Miles   float64
	Minutes float64
	Weight  float64
	Pieces  int
}

// DroppedStop explains why a stop was left unrouted.
type DroppedStop struct {
	Stop   int
	Reason string
}

// Solution is the solver output.
type Solution struct {
	Routes  []Route
	Dropped []DroppedStop
}

// Objective is the solver cost of the solution: total route minutes plus
// the given penalty per dropped stop.
func (s *Solution) Objective(penalty float64) float64 {
	total := 0.0
	for _, r := range s.Routes {
		total += r.Minutes
	}
	return total + penalty*float64(len(s.Dropped))
}
