package catalog

import (
	"errors"
	"sync"
)

// ErrBlobNotFound is returned when no content exists for a file ID.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore holds opaque file content keyed by file ID. The simulation keeps
// one logical copy of each blob here; per-node replicas are capacity records
// in the registry, not byte copies.
type BlobStore interface {
	// Get retrieves a blob by file ID.
	// Returns ErrBlobNotFound if no content exists.
	Get(fileID string) ([]byte, error)

	// Put stores a blob, overwriting any existing content for the ID.
	Put(fileID string, content []byte) error

	// Delete removes a blob. No error if the ID doesn't exist.
	Delete(fileID string) error

	// Stats returns blob storage statistics.
	Stats() BlobStats
}

// BlobStats contains statistics about stored content.
type BlobStats struct {
	Blobs int // Number of blobs
	Bytes int // Total size of all blobs in bytes
}

// MemoryBlobStore implements BlobStore with in-memory storage.
// Uses sync.RWMutex for thread-safe concurrent access.
type MemoryBlobStore struct {
	mu   sync.RWMutex      // Protects concurrent access
	data map[string][]byte // fileID -> content
}

// NewMemoryBlobStore creates a new in-memory blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		data: make(map[string][]byte),
	}
}

// Get retrieves a blob by file ID.
// Returns a copy of the content to prevent external modification.
func (m *MemoryBlobStore) Get(fileID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	content, exists := m.data[fileID]
	if !exists {
		return nil, ErrBlobNotFound
	}

	// Return a copy to prevent external modification
	result := make([]byte, len(content))
	copy(result, content)
	return result, nil
}

// Put stores a blob for the given file ID.
// Makes a copy of the content to prevent external modification.
func (m *MemoryBlobStore) Put(fileID string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(content))
	copy(stored, content)
	m.data[fileID] = stored

	return nil
}

// Delete removes a blob.
// No error if the ID doesn't exist (idempotent).
func (m *MemoryBlobStore) Delete(fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, fileID)
	return nil
}

// Stats returns blob storage statistics.
func (m *MemoryBlobStore) Stats() BlobStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totalBytes := 0
	for _, content := range m.data {
		totalBytes += len(content)
	}

	return BlobStats{
		Blobs: len(m.data),
		Bytes: totalBytes,
	}
}
