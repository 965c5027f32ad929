// The route-planning facade: filtered lines are aggregated into per-address
// stops, geocoded, measured, and handed to the VRP solver.

package plan

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/truckplan/truckplan/plan/geo"
	"github.com/truckplan/truckplan/plan/vrp"
)

// RoutingParams bounds the route solver.
type RoutingParams struct {
	MaxWeightPerTruck         float64 `yaml:"max_weight_per_truck" json:"maxWeightPerTruck"`
	MaxDriveTimeMinutes       float64 `yaml:"max_drive_time_minutes" json:"maxDriveTimeMinutes"`
	ServiceTimePerStopMinutes float64 `yaml:"service_time_per_stop_minutes" json:"serviceTimePerStopMinutes"`
	MaxStopsPerTruck          int     `yaml:"max_stops_per_truck" json:"maxStopsPerTruck"`
	MaxTrucks                 int     `yaml:"max_trucks" json:"maxTrucks"`
}

// DefaultRoutingParams returns the operational routing limits.
func DefaultRoutingParams() RoutingParams {
	return RoutingParams{
		MaxWeightPerTruck:         52000,
		MaxDriveTimeMinutes:       720,
		ServiceTimePerStopMinutes: 30,
		MaxStopsPerTruck:          5,
		MaxTrucks:                 50,
	}
}

// Normalize fills zero-valued fields with defaults.
func (p RoutingParams) Normalize() RoutingParams {
	def := DefaultRoutingParams()
	if p.MaxWeightPerTruck == 0 {
		p.MaxWeightPerTruck = def.MaxWeightPerTruck
	}
	if p.MaxDriveTimeMinutes == 0 {
		p.MaxDriveTimeMinutes = def.MaxDriveTimeMinutes
	}
	if p.ServiceTimePerStopMinutes == 0 {
		p.ServiceTimePerStopMinutes = def.ServiceTimePerStopMinutes
	}
	if p.MaxStopsPerTruck == 0 {
		p.MaxStopsPerTruck = def.MaxStopsPerTruck
	}
	if p.MaxTrucks == 0 {
		p.MaxTrucks = def.MaxTrucks
	}
	return p
}

// Validate checks the effective params.
func (p RoutingParams) Validate() error {
	if p.MaxWeightPerTruck <= 0 {
		return fmt.Errorf("max_weight_per_truck must be positive, got %f", p.MaxWeightPerTruck)
	}
	if p.MaxDriveTimeMinutes <= 0 {
		return fmt.Errorf("max_drive_time_minutes must be positive, got %f", p.MaxDriveTimeMinutes)
	}
	if p.ServiceTimePerStopMinutes < 0 {
		return fmt.Errorf("service_time_per_stop_minutes must not be negative, got %f", p.ServiceTimePerStopMinutes)
	}
	if p.MaxStopsPerTruck < 1 {
		return fmt.Errorf("max_stops_per_truck must be at least 1, got %d", p.MaxStopsPerTruck)
	}
	if p.MaxTrucks < 1 {
		return fmt.Errorf("max_trucks must be at least 1, got %d", p.MaxTrucks)
	}
	return nil
}

// Depot is where every route starts and ends.
type Depot struct {
	geo.Point
	Name string `json:"name"`
}

// DefaultDepot is the Fort Worth yard.
func DefaultDepot() Depot {
	return Depot{Point: geo.Point{Lat: 32.7555, Lng: -97.3308}, Name: "Fort Worth, TX"}
}

// RouteStop is one aggregated destination on a route. Lines shipping to the
// same address fold into a single stop; customers in the no-multi-stop set
// keep a stop of their own even at a shared address.
type RouteStop struct {
	StopSequence  int      `json:"stopSequence"`
	CustomerName  string   `json:"customerName"`
	CustomerCity  string   `json:"customerCity"`
	CustomerState string   `json:"customerState"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	TotalWeight   float64  `json:"totalWeight"`
	TotalPieces   int      `json:"totalPieces"`
	Orders        []string `json:"orders"`
}

// TruckRoute is one planned vehicle route with service time folded in.
type TruckRoute struct {
	TruckID      int         `json:"truckId"`
	Stops        []RouteStop `json:"stops"`
	TotalMiles   float64     `json:"totalMiles"`
	TotalMinutes float64     `json:"totalMinutes"`
	TotalWeight  float64     `json:"totalWeight"`
	TotalPieces  int         `json:"totalPieces"`
}

// DroppedRouteStop explains a destination left off every route.
type DroppedRouteStop struct {
	CustomerName  string  `json:"customerName"`
	CustomerCity  string  `json:"customerCity"`
	CustomerState string  `json:"customerState"`
	TotalWeight   float64 `json:"totalWeight"`
	Reason        string  `json:"reason"`
}

// RouteTotals summarizes a route plan.
type RouteTotals struct {
	Trucks int     `json:"trucks"`
	Stops  int     `json:"stops"`
	Weight float64 `json:"totalWeight"`
}

// RoutePlan is the route-planning response.
type RoutePlan struct {
	Routes       []TruckRoute       `json:"routes"`
	DroppedStops []DroppedRouteStop `json:"droppedStops"`
	Depot        Depot              `json:"depot"`
	Totals       RouteTotals        `json:"totals"`
	Diagnostics  *Diagnostics       `json:"diagnostics,omitempty"`
}

// Router carries the external dependencies route planning needs. The zero
// Router plans fully offline: no geocode provider, so only cached addresses
// resolve, and haversine distances.
type Router struct {
	Geocoder *geo.Geocoder
	Matrix   *geo.MatrixBuilder
	Depot    Depot
}

func (r *Router) geocoder() *geo.Geocoder {
	if r.Geocoder != nil {
		return r.Geocoder
	}
	return &geo.Geocoder{}
}

func (r *Router) matrixBuilder() *geo.MatrixBuilder {
	if r.Matrix != nil {
		return r.Matrix
	}
	return &geo.MatrixBuilder{}
}

func (r *Router) depot() Depot {
	if r.Depot != (Depot{}) {
		return r.Depot
	}
	return DefaultDepot()
}

// PlanRoutes filters the rows, aggregates them into per-address stops, and
// solves the routing problem. Unresolvable addresses and infeasible stops
// are dropped with reasons, never fatal; only a malformed table or a broken
// travel matrix fails the call.
func (r *Router) PlanRoutes(ctx context.Context, rows []Row, cfg Config, params RoutingParams) (*RoutePlan, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	params = params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := ValidateTable(rows); err != nil {
		return nil, err
	}

	diags := &Diagnostics{}
	lines, _ := PrepareRows(rows, cfg, diags)
	stops := buildStops(lines, noMultiStopSet(cfg))
	out := &RoutePlan{Routes: []TruckRoute{}, DroppedStops: []DroppedRouteStop{}, Depot: r.depot()}
	logrus.Infof("routing %d lines across %d stops", len(lines), len(stops))
	if len(stops) == 0 {
		if !diags.Empty() {
			out.Diagnostics = diags
		}
		return out, nil
	}

	addrs := make([]geo.Address, len(stops))
	for i, s := range stops {
		addrs[i] = s.addr
	}
	resolved, failures := r.geocoder().ResolveAll(ctx, addrs)
	for _, f := range failures {
		diags.AddGeocodeFailure(f.Key, f.Query, f.Err)
	}

	located := make([]*routeStop, 0, len(stops))
	for _, s := range stops {
		rec, ok := resolved[s.addr.Key()]
		if !ok {
			out.DroppedStops = append(out.DroppedStops, s.dropped(vrp.ReasonNoTravelData))
			continue
		}
		s.point = rec.Point
		located = append(located, s)
	}
	if len(located) == 0 {
		if !diags.Empty() {
			out.Diagnostics = diags
		}
		return out, nil
	}

	points := make([]geo.Point, 0, len(located)+1)
	points = append(points, out.Depot.Point)
	for _, s := range located {
		points = append(points, s.point)
	}
	matrix, report, err := r.matrixBuilder().Build(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoutingInfeasible, err)
	}
	if report.Fallback != "" {
		diags.AddProviderFallback(report.Fallback)
	}
	for _, warning := range report.CacheWarnings {
		diags.AddCacheWarning(warning)
	}

	// No-multi-stop customers must not share a truck, so their stops are
	// routed as dedicated round trips outside the shared solve.
	var pooled, solo []int
	for i, s := range located {
		if s.isolated {
			solo = append(solo, i)
		} else {
			pooled = append(pooled, i)
		}
	}

	truckID := 0
	if len(pooled) > 0 {
		prob := subProblem(matrix, located, pooled, params)
		prob.Vehicles = min(params.MaxTrucks, len(pooled))
		sol, err := vrp.Solve(prob)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRoutingInfeasible, err)
		}
		for _, rt := range sol.Routes {
			truckID++
			out.Routes = append(out.Routes, renderRoute(truckID, rt, located, pooled))
		}
		for _, d := range sol.Dropped {
			out.DroppedStops = append(out.DroppedStops, located[pooled[d.Stop]].dropped(d.Reason))
		}
	}
	for _, si := range solo {
		prob := subProblem(matrix, located, []int{si}, params)
		prob.Vehicles = 1
		sol, err := vrp.Solve(prob)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRoutingInfeasible, err)
		}
		switch {
		case len(sol.Routes) == 0:
			out.DroppedStops = append(out.DroppedStops, located[si].dropped(sol.Dropped[0].Reason))
		case truckID >= params.MaxTrucks:
			out.DroppedStops = append(out.DroppedStops, located[si].dropped(vrp.ReasonNotRouted))
		default:
			truckID++
			out.Routes = append(out.Routes, renderRoute(truckID, sol.Routes[0], located, []int{si}))
		}
	}

	for _, rt := range out.Routes {
		out.Totals.Trucks++
		out.Totals.Stops += len(rt.Stops)
		out.Totals.Weight += rt.TotalWeight
	}
	if !diags.Empty() {
		out.Diagnostics = diags
	}
	logrus.Infof("routed %d stops onto %d trucks, %d dropped",
		out.Totals.Stops, out.Totals.Trucks, len(out.DroppedStops))
	return out, nil
}

// routeStop is the aggregation unit behind RouteStop.
type routeStop struct {
	addr      geo.Address
	point     geo.Point
	isolated  bool
	customers map[string]bool
	orders    map[string]bool
	weight    float64
	pieces    int

	// First-seen display values.
	customer string
	city     string
	state    string
}

func (s *routeStop) customerDisplay() string {
	if len(s.customers) <= 1 {
		return s.customer
	}
	return fmt.Sprintf("Multi-Stop (%d customers)", len(s.customers))
}

func (s *routeStop) dropped(reason string) DroppedRouteStop {
	return DroppedRouteStop{
		CustomerName:  s.customerDisplay(),
		CustomerCity:  s.city,
		CustomerState: s.state,
		TotalWeight:   s.weight,
		Reason:        reason,
	}
}

// buildStops folds lines into per-address stops, ordered by address key.
func buildStops(lines []*OrderLine, noMulti *CustomerRegistry) []*routeStop {
	byKey := make(map[string]*routeStop)
	for _, l := range lines {
		addr := geo.Address{Street: l.Street, City: l.City, State: l.State, Zip: l.Zip, Country: l.Country}
		key := addr.Key()
		isolated := noMulti.Contains(l.Customer)
		if isolated {
			key += "|" + canonicalCustomer(l.Customer)
		}
		s, ok := byKey[key]
		if !ok {
			s = &routeStop{
				addr:      addr,
				isolated:  isolated,
				customers: make(map[string]bool),
				orders:    make(map[string]bool),
				customer:  l.Customer,
				city:      l.City,
				state:     l.State,
			}
			byKey[key] = s
		}
		s.customers[canonicalCustomer(l.Customer)] = true
		s.orders[l.SO] = true
		s.weight += l.ReadyWeight
		s.pieces += l.ReadyPieces
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*routeStop, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}

// subProblem carves the solver input for a subset of the located stops.
// Full-matrix index of located stop i is i+1; the depot stays at 0.
func subProblem(m *geo.TravelMatrix, located []*routeStop, idx []int, params RoutingParams) *vrp.Problem {
	n := len(idx)
	stops := make([]vrp.Stop, n)
	for i, li := range idx {
		s := located[li]
		stops[i] = vrp.Stop{
			ID:     s.addr.Key(),
			Name:   s.customerDisplay(),
			Weight: s.weight,
			Pieces: s.pieces,
		}
	}
	minutes := make([][]float64, n+1)
	miles := make([][]float64, n+1)
	for i := 0; i <= n; i++ {
		minutes[i] = make([]float64, n+1)
		miles[i] = make([]float64, n+1)
		fi := 0
		if i > 0 {
			fi = idx[i-1] + 1
		}
		for j := 0; j <= n; j++ {
			fj := 0
			if j > 0 {
				fj = idx[j-1] + 1
			}
			minutes[i][j] = m.Minutes[fi][fj]
			miles[i][j] = m.Miles[fi][fj]
		}
	}
	return &vrp.Problem{
		Stops:        stops,
		Minutes:      minutes,
		Miles:        miles,
		Capacity:     params.MaxWeightPerTruck,
		MaxRouteTime: params.MaxDriveTimeMinutes,
		ServiceTime:  params.ServiceTimePerStopMinutes,
		MaxStops:     params.MaxStopsPerTruck,
		DropPenalty:  vrp.DefaultDropPenalty,
	}
}

// renderRoute maps a solver route back onto the located stops.
func renderRoute(truckID int, rt vrp.Route, located []*routeStop, idx []int) TruckRoute {
	out := TruckRoute{
		TruckID:      truckID,
		Stops:        make([]RouteStop, len(rt.Stops)),
		TotalMiles:   rt.Miles,
		TotalMinutes: rt.Minutes,
		TotalWeight:  rt.Weight,
		TotalPieces:  rt.Pieces,
	}
	for seq, k := range rt.Stops {
		s := located[idx[k]]
		orders := make([]string, 0, len(s.orders))
		for so := range s.orders {
			orders = append(orders, so)
		}
		sort.Strings(orders)
		out.Stops[seq] = RouteStop{
			StopSequence:  seq + 1,
			CustomerName:  s.customerDisplay(),
			CustomerCity:  s.city,
			CustomerState: s.state,
			Latitude:      s.point.Lat,
			Longitude:     s.point.Lng,
			TotalWeight:   s.weight,
			TotalPieces:   s.pieces,
			Orders:        orders,
		}
	}
	return out
}
