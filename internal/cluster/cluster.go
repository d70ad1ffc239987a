package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dreamware/repstore/internal/catalog"
	"github.com/dreamware/repstore/internal/config"
	"github.com/dreamware/repstore/internal/placement"
	"github.com/dreamware/repstore/internal/recovery"
	"github.com/dreamware/repstore/internal/registry"
)

var (
	// ErrAllReplicasDown is returned when every node holding a file's
	// replicas is currently failed.
	ErrAllReplicasDown = errors.New("all replicas down")

	// ErrContentUnavailable is returned when a file's content blob is
	// missing. Defensive: should not occur in normal operation.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrContentRead is returned when reading upload content fails before
	// placement. No capacity is reserved in that case.
	ErrContentRead = errors.New("reading upload content failed")
)

// Cluster is the single entry point for all operations against the simulated
// cluster: upload, download, delete, status, and the periodic tick.
//
// One mutex serializes every operation, so no caller ever observes a
// partially-updated node or file set and the tick cycle never overlaps an
// in-flight upload or delete. The inner components (registry, catalog,
// placement, recovery) rely on this and do no locking of their own.
type Cluster struct {
	mu sync.Mutex

	cfg      config.Config
	registry *registry.Registry
	engine   *placement.Engine
	catalog  *catalog.Catalog
	recovery *recovery.Loop
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a cluster from the given configuration. A zero Seed means the
// health-transition randomness is seeded from the wall clock.
func New(cfg config.Config, logger *log.Logger) (*Cluster, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewWithRand(cfg, rand.New(rand.NewSource(seed)), logger)
}

// NewWithRand creates a cluster with an injected random source. Tests use
// this to script health outcomes; see the registry package.
func NewWithRand(cfg config.Config, rng *rand.Rand, logger *log.Logger) (*Cluster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	specs := make([]registry.Spec, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		specs = append(specs, registry.Spec{ID: n.ID, CapacityMB: n.CapacityMB})
	}

	reg := registry.New(specs, cfg.FailureProbability, rng)
	engine := placement.NewEngine(reg, cfg.ReplicationFactor)
	cat := catalog.New(reg, engine, catalog.NewMemoryBlobStore())

	ctx, cancel := context.WithCancel(context.Background())
	return &Cluster{
		cfg:      cfg,
		registry: reg,
		engine:   engine,
		catalog:  cat,
		recovery: recovery.NewLoop(reg, cat, engine),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Upload places a new file on the cluster.
// Propagates catalog.ErrPlacementFailed (wrapping placement.ErrNoCapacity
// when no active node exists at all).
func (c *Cluster) Upload(ownerID, name string, content []byte) (catalog.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.catalog.Create(name, int64(len(content)), ownerID, content)
	if err != nil {
		c.logger.Warn("upload rejected", "name", name, "owner", ownerID, "err", err)
		return catalog.File{}, err
	}

	c.logger.Info("file uploaded",
		"file", f.ID,
		"name", f.Name,
		"sizeBytes", f.SizeBytes,
		"replicas", f.ReplicaNodeIDs)
	return f, nil
}

// UploadFrom reads the full content from r, then uploads it. The read is the
// only step that may block on external input and it completes before any
// placement decision; a read failure returns ErrContentRead and reserves
// nothing.
func (c *Cluster) UploadFrom(ownerID, name string, r io.Reader) (catalog.File, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return catalog.File{}, fmt.Errorf("%w: %w", ErrContentRead, err)
	}
	return c.Upload(ownerID, name, content)
}

// Download returns a file's metadata and content.
//
// Fails with catalog.ErrFileNotFound for an unknown ID, ErrAllReplicasDown
// when no replica-holding node is active, and ErrContentUnavailable if the
// blob is missing. Never mutates cluster state.
func (c *Cluster) Download(fileID string) (catalog.File, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.catalog.Get(fileID)
	if err != nil {
		return catalog.File{}, nil, err
	}

	readable, err := c.catalog.ReadableReplicas(fileID)
	if err != nil {
		return catalog.File{}, nil, err
	}
	if len(readable) == 0 {
		return catalog.File{}, nil, fmt.Errorf("%w: file %s", ErrAllReplicasDown, fileID)
	}

	content, err := c.catalog.Content(fileID)
	if err != nil {
		return catalog.File{}, nil, fmt.Errorf("%w: file %s", ErrContentUnavailable, fileID)
	}

	return f, content, nil
}

// Delete removes a file and releases its capacity. Idempotent: deleting an
// unknown ID succeeds with no state change.
func (c *Cluster) Delete(fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog.Delete(fileID)
	c.logger.Info("file deleted", "file", fileID)
}

// FailNode forces a node into the failed state until the next health
// refresh re-rolls it. Fault injection for tests and operators.
func (c *Cluster) FailNode(nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.SetHealth(nodeID, registry.HealthFailed); err != nil {
		return err
	}
	c.logger.Warn("node failure injected", "node", nodeID)
	return nil
}

// ReviveNode forces a node back to active. Its used capacity is carried
// forward as-is, not recomputed from current occupancy.
func (c *Cluster) ReviveNode(nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.SetHealth(nodeID, registry.HealthActive); err != nil {
		return err
	}
	c.logger.Info("node revived", "node", nodeID)
	return nil
}

// Status returns a read-only snapshot of all nodes and files for display.
func (c *Cluster) Status() ([]registry.Node, []catalog.File) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.registry.Nodes(), c.catalog.Files()
}

// Tick runs one health-check cycle: refresh every node's health, then
// reconcile replication shortfalls. The whole cycle is one indivisible step
// relative to uploads and deletes.
func (c *Cluster) Tick() []recovery.Repair {
	c.mu.Lock()
	defer c.mu.Unlock()

	nodes := c.registry.RefreshHealth()
	failed := 0
	for _, n := range nodes {
		if n.Health == registry.HealthFailed {
			failed++
		}
	}

	repairs := c.recovery.Reconcile()

	c.logger.Debug("tick complete",
		"nodes", len(nodes),
		"failed", failed,
		"repairs", len(repairs))
	for _, r := range repairs {
		c.logger.Info("file re-replicated",
			"file", r.FileID,
			"dropped", r.Dropped,
			"added", r.Added)
	}

	return repairs
}
