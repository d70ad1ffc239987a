// Package placement implements capacity-aware replica-set selection for the
// repstore cluster.
//
// # Selection Policy
//
// Given a file size, the engine filters to active, non-excluded nodes, ranks
// them by descending remaining capacity (ties keep registry order), and takes
// up to the replication factor of nodes whose remaining capacity covers the
// per-replica footprint. The footprint divides the file's size across the
// intended replica count, not the count finally achieved.
//
// When no node can take a full footprint, the engine falls back to the
// top-ranked active nodes regardless of sufficiency, overcommitting their
// capacity. Overcommit is accepted by the model: a node's UsedMB staying
// below CapacityMB is a soft target, not an invariant.
//
// ErrNoCapacity is returned only when no active candidate exists at all.
// A replica set shorter than the target is a normal outcome of low node
// availability, not an error.
//
// Decisions are deterministic for a given health/capacity snapshot; the
// engine never retries and holds no state of its own.
package placement
