// Package recovery implements the self-healing pass of the repstore cluster.
//
// After every health refresh, Reconcile scans all files in insertion order
// and repairs replication shortfalls: failed replica holders are dropped from
// the file's replica set and replacements are sourced from the placement
// engine, excluding every node the file already lists.
//
// Two deliberate approximations of the model live here:
//
//   - Capacity reserved on a node that fails is not released when the node is
//     dropped from a replica set. The failed node is simply excluded from
//     selection while down.
//   - A node returning to active keeps its stale UsedMB; it is never
//     recomputed from actual occupancy.
//
// Both match the modeled system's observed behavior and are covered by tests.
package recovery
