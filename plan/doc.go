// Package plan provides the load-planning engine for daily outbound trucks.
//
// # Reading Guide
//
// Start with these three files to understand the planning kernel:
//   - order.go: OrderLine input model and the priority bucket derivation
//   - packer.go: per-group first-fit packing with piece-level splits and
//     the remainder worklist
//   - topper.go: the cross-bucket redistribution pass over finalized trucks
//
// # Architecture
//
// The plan package owns the deterministic pipeline; external concerns live
// in sub-packages:
//   - plan/geo/: address normalization, geocoding, distance matrices
//   - plan/vrp/: the capacitated route solver with drop penalties
//   - plan/store/: SQLite-backed persistent address/distance caches
//
// A planning job flows Normalize → Filter → group → pack → drain remainders
// → top off, all sequential and ordering-sensitive. Only the geo layer fans
// out (bounded worker pool); see PlanLoads and Router.PlanRoutes.
//
// # Key Interfaces
//
// The extension points are small interfaces in plan/geo:
//   - geo.GeocodeProvider: resolve one address query to a location
//   - geo.DistanceProvider: produce miles/minutes matrices for point lists
//   - geo.AddressCache, geo.DistanceCache: batched cache lookups and upserts
package plan
