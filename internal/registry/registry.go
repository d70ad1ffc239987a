package registry

import (
	"fmt"
	"math/rand"
)

// Health is the availability state of a storage node.
type Health string

const (
	// HealthActive means the node is eligible for reads and new placements.
	HealthActive Health = "active"
	// HealthFailed means the node is down and serves nothing until the next
	// health refresh brings it back.
	HealthFailed Health = "failed"
)

// Node is the resource-accounting record for one storage node. A node is not
// a network peer in this simulation; it only tracks capacity and health.
//
// UsedMB staying at or below CapacityMB is a soft target: fallback placement
// may overcommit a node under capacity pressure, and that is accepted rather
// than corrected.
type Node struct {
	ID         string  `json:"id"`
	CapacityMB float64 `json:"capacityMB"`
	UsedMB     float64 `json:"usedMB"`
	Health     Health  `json:"health"`
}

// RemainingMB returns the node's remaining capacity. May be negative for an
// overcommitted node.
func (n Node) RemainingMB() float64 {
	return n.CapacityMB - n.UsedMB
}

// Spec describes a node at registry creation time.
type Spec struct {
	ID         string
	CapacityMB float64
}

// Registry owns the fixed set of storage nodes and applies the periodic
// random health transitions.
//
// The registry is not self-locking: the cluster facade is the single mutation
// point and serializes all access (see internal/cluster).
type Registry struct {
	nodes              []*Node // fixed registry order, set at creation
	index              map[string]*Node
	failureProbability float64
	rng                *rand.Rand
}

// New creates a registry from node specs. Every node starts Active with zero
// used capacity. The random source drives health transitions and must be
// seeded by the caller; tests inject a scripted source for reproducibility.
func New(specs []Spec, failureProbability float64, rng *rand.Rand) *Registry {
	r := &Registry{
		nodes:              make([]*Node, 0, len(specs)),
		index:              make(map[string]*Node, len(specs)),
		failureProbability: failureProbability,
		rng:                rng,
	}
	for _, s := range specs {
		n := &Node{
			ID:         s.ID,
			CapacityMB: s.CapacityMB,
			Health:     HealthActive,
		}
		r.nodes = append(r.nodes, n)
		r.index[n.ID] = n
	}
	return r
}

// RefreshHealth re-rolls the health of every node: each node independently
// goes Failed with the configured probability and Active otherwise.
//
// Post-condition: at least one node is Active. If the independent draws fail
// every node, one node chosen uniformly at random is forced back to Active so
// the cluster is never fully unreachable. UsedMB is never touched here.
func (r *Registry) RefreshHealth() []Node {
	for _, n := range r.nodes {
		if r.rng.Float64() < r.failureProbability {
			n.Health = HealthFailed
		} else {
			n.Health = HealthActive
		}
	}

	if len(r.nodes) > 0 && r.activeCount() == 0 {
		r.nodes[r.rng.Intn(len(r.nodes))].Health = HealthActive
	}

	return r.Nodes()
}

// SetHealth sets a single node's health directly. Used to inject specific
// failures (scenario tests, admin fault injection).
func (r *Registry) SetHealth(nodeID string, h Health) error {
	n, ok := r.index[nodeID]
	if !ok {
		return fmt.Errorf("unknown node %q", nodeID)
	}
	n.Health = h
	return nil
}

// Reserve adds deltaMB to a node's used capacity. There is no ceiling:
// placement's fallback policy may push a node past its capacity.
func (r *Registry) Reserve(nodeID string, deltaMB float64) error {
	n, ok := r.index[nodeID]
	if !ok {
		return fmt.Errorf("unknown node %q", nodeID)
	}
	n.UsedMB += deltaMB
	return nil
}

// Release subtracts deltaMB from a node's used capacity, clamping at zero.
// The clamp absorbs benign floating-point drift rather than raising it.
// Unknown node IDs are a no-op.
func (r *Registry) Release(nodeID string, deltaMB float64) {
	n, ok := r.index[nodeID]
	if !ok {
		return
	}
	n.UsedMB -= deltaMB
	if n.UsedMB < 0 {
		n.UsedMB = 0
	}
}

// Get returns a copy of the node with the given ID.
func (r *Registry) Get(nodeID string) (Node, bool) {
	n, ok := r.index[nodeID]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// IsActive reports whether the node exists and is currently Active.
func (r *Registry) IsActive(nodeID string) bool {
	n, ok := r.index[nodeID]
	return ok && n.Health == HealthActive
}

// Nodes returns copies of all nodes in registry order.
func (r *Registry) Nodes() []Node {
	out := make([]Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, *n)
	}
	return out
}

// ActiveNodes returns copies of the currently Active nodes in registry order.
func (r *Registry) ActiveNodes() []Node {
	var out []Node
	for _, n := range r.nodes {
		if n.Health == HealthActive {
			out = append(out, *n)
		}
	}
	return out
}

// Len returns the number of nodes in the registry.
func (r *Registry) Len() int {
	return len(r.nodes)
}

func (r *Registry) activeCount() int {
	count := 0
	for _, n := range r.nodes {
		if n.Health == HealthActive {
			count++
		}
	}
	return count
}
