package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dreamware/repstore/internal/placement"
	"github.com/dreamware/repstore/internal/registry"
)

var (
	// ErrFileNotFound is returned when a file ID is unknown.
	ErrFileNotFound = errors.New("file not found")

	// ErrPlacementFailed wraps a placement error during file creation.
	ErrPlacementFailed = errors.New("placement failed")
)

// File is the metadata record for one stored file.
//
// ReplicaNodeIDs is an ordered slice treated as a set: no node appears twice,
// and the target cardinality is the cluster's replication factor. It may
// legitimately be shorter when too few healthy nodes exist.
type File struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SizeBytes      int64     `json:"sizeBytes"`
	OwnerID        string    `json:"ownerId"`
	CreatedAt      time.Time `json:"createdAt"`
	ReplicaNodeIDs []string  `json:"replicaNodeIds"`
}

// Catalog is the authoritative mapping from file ID to metadata, plus the
// blob store holding each file's content. Files are tracked in insertion
// order, which fixes listing and reconcile order.
//
// Like the registry, the catalog is not self-locking; the cluster facade
// serializes all access.
type Catalog struct {
	files    map[string]*File
	order    []string // file IDs in insertion order
	blobs    BlobStore
	registry *registry.Registry
	engine   *placement.Engine
}

// New creates an empty catalog backed by the given blob store.
func New(reg *registry.Registry, engine *placement.Engine, blobs BlobStore) *Catalog {
	return &Catalog{
		files:    make(map[string]*File),
		blobs:    blobs,
		registry: reg,
		engine:   engine,
	}
}

// Create places a new file on the cluster and records it.
//
// Placement selects the replica set; the file's size is then reserved evenly
// across the replicas actually obtained, which can be fewer than the
// replication target. Recovery reserves per the target instead.
//
// Returns ErrPlacementFailed wrapping the selection error when no replica can
// be placed. No capacity is reserved in that case.
func (c *Catalog) Create(name string, sizeBytes int64, ownerID string, content []byte) (File, error) {
	selected, err := c.engine.SelectNodes(sizeBytes, nil)
	if err != nil {
		return File{}, fmt.Errorf("%w: %w", ErrPlacementFailed, err)
	}

	perReplicaMB := placement.SizeMB(sizeBytes) / float64(len(selected))
	for _, nodeID := range selected {
		if err := c.registry.Reserve(nodeID, perReplicaMB); err != nil {
			return File{}, fmt.Errorf("%w: %w", ErrPlacementFailed, err)
		}
	}

	f := &File{
		ID:             uuid.NewString(),
		Name:           name,
		SizeBytes:      sizeBytes,
		OwnerID:        ownerID,
		CreatedAt:      time.Now(),
		ReplicaNodeIDs: selected,
	}

	if err := c.blobs.Put(f.ID, content); err != nil {
		// Undo the reservation; the file was never recorded.
		for _, nodeID := range selected {
			c.registry.Release(nodeID, perReplicaMB)
		}
		return File{}, fmt.Errorf("%w: %w", ErrPlacementFailed, err)
	}

	c.files[f.ID] = f
	c.order = append(c.order, f.ID)
	return f.clone(), nil
}

// Get returns the metadata for a file.
// Returns ErrFileNotFound if the ID is unknown.
func (c *Catalog) Get(fileID string) (File, error) {
	f, ok := c.files[fileID]
	if !ok {
		return File{}, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
	}
	return f.clone(), nil
}

// Content returns a copy of the file's stored blob.
func (c *Catalog) Content(fileID string) ([]byte, error) {
	return c.blobs.Get(fileID)
}

// Delete removes a file, releasing its capacity share on every node still in
// its replica set. An unknown ID is a no-op, not an error.
func (c *Catalog) Delete(fileID string) {
	f, ok := c.files[fileID]
	if !ok {
		return
	}

	if len(f.ReplicaNodeIDs) > 0 {
		perReplicaMB := placement.SizeMB(f.SizeBytes) / float64(len(f.ReplicaNodeIDs))
		for _, nodeID := range f.ReplicaNodeIDs {
			c.registry.Release(nodeID, perReplicaMB)
		}
	}

	_ = c.blobs.Delete(fileID)
	delete(c.files, fileID)
	for i, id := range c.order {
		if id == fileID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// ReadableReplicas returns the file's replica nodes that are currently
// Active, in replica-set order.
func (c *Catalog) ReadableReplicas(fileID string) ([]string, error) {
	f, ok := c.files[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
	}

	var readable []string
	for _, nodeID := range f.ReplicaNodeIDs {
		if c.registry.IsActive(nodeID) {
			readable = append(readable, nodeID)
		}
	}
	return readable, nil
}

// SetReplicas replaces a file's replica set. Used by the recovery loop after
// it has reserved capacity on the new nodes.
func (c *Catalog) SetReplicas(fileID string, replicas []string) error {
	f, ok := c.files[fileID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
	}
	f.ReplicaNodeIDs = append([]string(nil), replicas...)
	return nil
}

// Files returns copies of all file records in insertion order.
func (c *Catalog) Files() []File {
	out := make([]File, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.files[id].clone())
	}
	return out
}

// Len returns the number of files in the catalog.
func (c *Catalog) Len() int {
	return len(c.files)
}

// clone returns a copy with its own replica slice, safe to hand out.
func (f *File) clone() File {
	out := *f
	out.ReplicaNodeIDs = append([]string(nil), f.ReplicaNodeIDs...)
	return out
}
