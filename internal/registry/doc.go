// Package registry tracks the fixed set of storage nodes in the repstore
// cluster: their capacity, used space, and health.
//
// Health transitions are driven by an injected random source so failure
// injection is reproducible: on every refresh each node independently fails
// with the configured probability, with the guarantee that at least one node
// always remains active. Capacity bookkeeping clamps used space at a floor of
// zero and places no ceiling, since fallback placement may overcommit.
//
// The registry does no locking of its own; the cluster facade serializes all
// access through a single mutation point.
package registry
