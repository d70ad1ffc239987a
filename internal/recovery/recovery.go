package recovery

import (
	"errors"

	"github.com/dreamware/repstore/internal/catalog"
	"github.com/dreamware/repstore/internal/placement"
	"github.com/dreamware/repstore/internal/registry"
)

// Repair records the reconcile action taken for one under-replicated file.
type Repair struct {
	FileID  string   // The repaired file
	Dropped []string // Failed nodes removed from the replica set
	Added   []string // Healthy nodes the file was re-replicated onto
}

// Loop detects under-replicated files and re-replicates them onto healthy
// nodes. It runs once per health-check tick, synchronously after the
// registry's health refresh.
type Loop struct {
	registry *registry.Registry
	catalog  *catalog.Catalog
	engine   *placement.Engine
}

// NewLoop creates a recovery loop over the given cluster state.
func NewLoop(reg *registry.Registry, cat *catalog.Catalog, engine *placement.Engine) *Loop {
	return &Loop{
		registry: reg,
		catalog:  cat,
		engine:   engine,
	}
}

// Reconcile scans every file in insertion order and repairs replication
// shortfalls: for each file with fewer active replicas than the replication
// target, it sources replacement nodes (excluding every node already in the
// replica set, failed holders included), reserves the per-replica footprint
// on each, and rewrites the replica set to the surviving replicas plus the
// new ones.
//
// Failed holders are dropped without releasing their reservation; a node that
// later recovers carries its stale UsedMB forward. That is an accepted
// approximation of the model, not corrected here.
//
// Finding no candidate nodes is not an error: the file simply stays below
// target until capacity returns.
func (l *Loop) Reconcile() []Repair {
	var repairs []Repair

	target := l.engine.ReplicationFactor()
	for _, f := range l.catalog.Files() {
		active, err := l.catalog.ReadableReplicas(f.ID)
		if err != nil {
			continue // deleted between snapshot and scan; nothing to repair
		}

		shortfall := target - len(active)
		if shortfall <= 0 {
			continue
		}

		excluding := make(map[string]bool, len(f.ReplicaNodeIDs))
		for _, nodeID := range f.ReplicaNodeIDs {
			excluding[nodeID] = true
		}

		candidates, err := l.engine.SelectNodes(f.SizeBytes, excluding)
		if err != nil && !errors.Is(err, placement.ErrNoCapacity) {
			continue
		}
		if len(candidates) > shortfall {
			candidates = candidates[:shortfall]
		}

		footprint := placement.PerReplicaMB(f.SizeBytes, target)
		added := make([]string, 0, len(candidates))
		for _, nodeID := range candidates {
			if err := l.registry.Reserve(nodeID, footprint); err != nil {
				continue
			}
			added = append(added, nodeID)
		}

		dropped := missing(f.ReplicaNodeIDs, active)
		if len(added) == 0 && len(dropped) == 0 {
			continue
		}

		replicas := append(append([]string(nil), active...), added...)
		if err := l.catalog.SetReplicas(f.ID, replicas); err != nil {
			continue
		}

		repairs = append(repairs, Repair{
			FileID:  f.ID,
			Dropped: dropped,
			Added:   added,
		})
	}

	return repairs
}

// missing returns the members of all that are not in keep, preserving order.
func missing(all, keep []string) []string {
	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	var out []string
	for _, id := range all {
		if !kept[id] {
			out = append(out, id)
		}
	}
	return out
}
