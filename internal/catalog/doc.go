// Package catalog is the authoritative mapping from file ID to metadata for
// the repstore cluster, plus the blob store holding each file's content.
//
// Creating a file selects its replica set through the placement engine and
// reserves capacity across the replicas obtained; deleting releases that
// capacity on every node still in the replica set and is a no-op for unknown
// IDs. Files iterate in insertion order, which fixes listing and reconcile
// order.
//
// Content is an opaque blob: the catalog never inspects bytes, and the
// simulation keeps a single logical copy per file (replicas are capacity
// records, not byte copies).
package catalog
