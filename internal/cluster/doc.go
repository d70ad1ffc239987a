// Package cluster implements the facade for the repstore simulation: the
// single entry point through which files are uploaded, downloaded, and
// deleted, and through which the periodic health/recovery cycle runs.
//
// # Overview
//
// The simulation models a replicated object-storage cluster. Each uploaded
// file is placed on a replica set of storage nodes chosen by remaining
// capacity; nodes fail and recover at random on every tick; a recovery pass
// re-replicates files that fall below the replication target.
//
// # Architecture
//
//	┌───────────────────────────────────────────┐
//	│               Cluster (facade)            │
//	│         one mutex, all operations         │
//	├───────────────────────────────────────────┤
//	│                                           │
//	│  Upload ───► PlacementEngine ──► Catalog  │
//	│  Download ─► Catalog + NodeRegistry       │
//	│  Delete ───► Catalog (release capacity)   │
//	│                                           │
//	│  Tick ───► NodeRegistry.RefreshHealth     │
//	│        └─► RecoveryLoop.Reconcile         │
//	│               └─► PlacementEngine         │
//	│                                           │
//	└───────────────────────────────────────────┘
//
// # Core Components
//
// NodeRegistry (internal/registry): Fixed node set with capacity and health
//   - Random health transitions on every tick
//   - Guarantees at least one node stays active
//   - Capacity bookkeeping with a zero floor and no ceiling
//
// PlacementEngine (internal/placement): Replica-set selection
//   - Ranks active nodes by remaining capacity
//   - Falls back to overcommitting under capacity pressure
//   - Deterministic given a health/capacity snapshot
//
// FileCatalog (internal/catalog): Authoritative file metadata + content
//   - Create/read/delete lifecycle with capacity accounting
//   - Insertion-order iteration for listing and reconcile
//
// RecoveryLoop (internal/recovery): Self-healing under churn
//   - Detects replication shortfalls after each health refresh
//   - Sources replacement replicas from the placement engine
//
// # Concurrency Model
//
// A single logical actor owns the cluster state. Every mutating operation
// (upload, delete, tick) and every read (download, status) acquires the
// facade's mutex, so no operation observes a partially-updated node or file
// set and the tick cycle never overlaps an in-flight upload or delete. The
// inner packages are deliberately not self-locking; the facade is the single
// mutation point.
//
// The only step that may block on external input is reading upload content,
// and it completes (or fails) before the state lock is taken.
//
// # Error Taxonomy
//
//   - placement.ErrNoCapacity: no active node exists to place any replica
//   - catalog.ErrPlacementFailed: wraps a placement error during upload
//   - catalog.ErrFileNotFound: unknown file ID
//   - ErrAllReplicasDown: every replica-holding node currently failed
//   - ErrContentUnavailable: content blob missing (defensive)
//   - ErrContentRead: upload content could not be read
//
// None of these are retried internally; retry is caller policy. A download
// that fails with ErrAllReplicasDown may succeed after the next tick once
// recovery has run. Delete never errors.
//
// # Simulation Boundaries
//
// A "node" here is a resource-accounting record, not a network peer: there
// are no cross-node calls, so no timeouts or retries are modeled. State is
// process-lifetime only; nothing persists across restarts.
package cluster
