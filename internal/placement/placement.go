package placement

import (
	"errors"

	"golang.org/x/exp/slices"

	"github.com/dreamware/repstore/internal/registry"
)

// BytesPerMB converts byte sizes to the MB units used for capacity accounting.
const BytesPerMB = 1 << 20

// ErrNoCapacity is returned when no active node exists to hold any replica.
var ErrNoCapacity = errors.New("no active node available for placement")

// Engine selects replica sets for file placement. Decisions are deterministic
// given the current health and capacity snapshot: no retries or backoff, a
// single snapshot-based decision per call.
type Engine struct {
	registry          *registry.Registry
	replicationFactor int
}

// NewEngine creates a placement engine over the given registry.
func NewEngine(reg *registry.Registry, replicationFactor int) *Engine {
	return &Engine{
		registry:          reg,
		replicationFactor: replicationFactor,
	}
}

// ReplicationFactor returns the target replica count per file.
func (e *Engine) ReplicationFactor() int {
	return e.replicationFactor
}

// SelectNodes picks up to the replication factor of node IDs to hold replicas
// of a file of the given size. Nodes in excluding are never candidates.
//
// Selection:
//  1. Filter to Active nodes not in excluding.
//  2. Rank by descending remaining capacity; ties keep registry order.
//  3. Primary pass takes nodes whose remaining capacity covers the
//     per-replica footprint (size divided across the intended replica count,
//     not the count finally achieved).
//  4. If the primary pass yields zero nodes, fall back to the top-ranked
//     active nodes regardless of sufficiency, overcommitting them.
//
// Returns ErrNoCapacity only when no active candidate exists at all. A result
// shorter than the replication factor is not an error; it means availability
// capped the replica set.
func (e *Engine) SelectNodes(sizeBytes int64, excluding map[string]bool) ([]string, error) {
	var candidates []registry.Node
	for _, n := range e.registry.Nodes() {
		if n.Health != registry.HealthActive {
			continue
		}
		if excluding[n.ID] {
			continue
		}
		candidates = append(candidates, n)
	}
	if len(candidates) == 0 {
		return nil, ErrNoCapacity
	}

	// Stable sort so equal remaining capacity keeps registry order.
	slices.SortStableFunc(candidates, func(a, b registry.Node) int {
		switch {
		case a.RemainingMB() > b.RemainingMB():
			return -1
		case a.RemainingMB() < b.RemainingMB():
			return 1
		default:
			return 0
		}
	})

	footprint := PerReplicaMB(sizeBytes, e.replicationFactor)

	selected := make([]string, 0, e.replicationFactor)
	for _, n := range candidates {
		if len(selected) == e.replicationFactor {
			break
		}
		if n.RemainingMB() >= footprint {
			selected = append(selected, n.ID)
		}
	}

	// Capacity pressure: no node can take a full footprint, so overcommit
	// the largest nodes rather than refuse placement outright.
	if len(selected) == 0 {
		for _, n := range candidates {
			if len(selected) == e.replicationFactor {
				break
			}
			selected = append(selected, n.ID)
		}
	}

	return selected, nil
}

// SizeMB converts a byte size to MB.
func SizeMB(sizeBytes int64) float64 {
	return float64(sizeBytes) / BytesPerMB
}

// PerReplicaMB is the per-replica capacity footprint for a file: its size in
// MB divided evenly across the intended replica count.
func PerReplicaMB(sizeBytes int64, replicationFactor int) float64 {
	return SizeMB(sizeBytes) / float64(replicationFactor)
}
