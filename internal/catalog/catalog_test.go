package catalog

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/repstore/internal/placement"
	"github.com/dreamware/repstore/internal/registry"
)

const mb = placement.BytesPerMB

type fixture struct {
	reg     *registry.Registry
	engine  *placement.Engine
	catalog *Catalog
}

func newFixture(replicationFactor int, specs ...registry.Spec) *fixture {
	reg := registry.New(specs, 0.15, rand.New(rand.NewSource(1)))
	engine := placement.NewEngine(reg, replicationFactor)
	return &fixture{
		reg:     reg,
		engine:  engine,
		catalog: New(reg, engine, NewMemoryBlobStore()),
	}
}

func sixNodeFixture(replicationFactor int) *fixture {
	return newFixture(replicationFactor,
		registry.Spec{ID: "node-1", CapacityMB: 10000},
		registry.Spec{ID: "node-2", CapacityMB: 15000},
		registry.Spec{ID: "node-3", CapacityMB: 20000},
		registry.Spec{ID: "node-4", CapacityMB: 12000},
		registry.Spec{ID: "node-5", CapacityMB: 18000},
		registry.Spec{ID: "node-6", CapacityMB: 25000},
	)
}

func (fx *fixture) usedMB(t *testing.T, nodeID string) float64 {
	t.Helper()
	n, ok := fx.reg.Get(nodeID)
	require.True(t, ok, "node %s missing", nodeID)
	return n.UsedMB
}

func TestCreatePlacesOnRoomiestNodes(t *testing.T) {
	fx := sixNodeFixture(4)

	content := make([]byte, 4*mb)
	f, err := fx.catalog.Create("report.pdf", int64(len(content)), "user-1", content)
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "report.pdf", f.Name)
	assert.Equal(t, int64(4*mb), f.SizeBytes)
	assert.Equal(t, "user-1", f.OwnerID)
	assert.False(t, f.CreatedAt.IsZero())

	// Four distinct replicas on the nodes with greatest remaining capacity.
	assert.Equal(t, []string{"node-6", "node-3", "node-5", "node-2"}, f.ReplicaNodeIDs)

	// 4 MB split across the 4 achieved replicas: 1 MB each.
	for _, nodeID := range f.ReplicaNodeIDs {
		assert.InDelta(t, 1.0, fx.usedMB(t, nodeID), 1e-9)
	}
	assert.Zero(t, fx.usedMB(t, "node-1"))
	assert.Zero(t, fx.usedMB(t, "node-4"))
}

func TestCreateSplitsAcrossAchievedReplicas(t *testing.T) {
	// Replication target is 4 but only two nodes are up: the reservation is
	// divided by the achieved count (2), not the target.
	fx := sixNodeFixture(4)
	for _, id := range []string{"node-1", "node-2", "node-3", "node-4"} {
		require.NoError(t, fx.reg.SetHealth(id, registry.HealthFailed))
	}

	content := make([]byte, 8*mb)
	f, err := fx.catalog.Create("big.bin", int64(len(content)), "user-1", content)
	require.NoError(t, err)

	require.Len(t, f.ReplicaNodeIDs, 2)
	for _, nodeID := range f.ReplicaNodeIDs {
		assert.InDelta(t, 4.0, fx.usedMB(t, nodeID), 1e-9)
	}
}

func TestCreateFailsWithoutActiveNodes(t *testing.T) {
	fx := sixNodeFixture(4)
	for _, n := range fx.reg.Nodes() {
		require.NoError(t, fx.reg.SetHealth(n.ID, registry.HealthFailed))
	}

	_, err := fx.catalog.Create("doomed.txt", 100, "user-1", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlacementFailed)
	assert.ErrorIs(t, err, placement.ErrNoCapacity)

	// Nothing recorded, nothing reserved.
	assert.Zero(t, fx.catalog.Len())
	for _, n := range fx.reg.Nodes() {
		assert.Zero(t, n.UsedMB)
	}
}

func TestGet(t *testing.T) {
	fx := sixNodeFixture(4)

	f, err := fx.catalog.Create("a.txt", 100, "user-1", []byte("hello"))
	require.NoError(t, err)

	got, err := fx.catalog.Get(f.ID)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	_, err = fx.catalog.Get("no-such-id")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestContent(t *testing.T) {
	fx := sixNodeFixture(4)

	f, err := fx.catalog.Create("a.txt", 5, "user-1", []byte("hello"))
	require.NoError(t, err)

	content, err := fx.catalog.Content(f.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content)
}

func TestDeleteReleasesCapacity(t *testing.T) {
	fx := sixNodeFixture(4)

	before := make(map[string]float64)
	for _, n := range fx.reg.Nodes() {
		before[n.ID] = n.UsedMB
	}

	content := make([]byte, 7*mb)
	f, err := fx.catalog.Create("tmp.bin", int64(len(content)), "user-1", content)
	require.NoError(t, err)

	fx.catalog.Delete(f.ID)

	for _, n := range fx.reg.Nodes() {
		assert.InDelta(t, before[n.ID], n.UsedMB, 1e-9,
			"node %s should return to its pre-upload usage", n.ID)
	}
	assert.Zero(t, fx.catalog.Len())

	_, err = fx.catalog.Content(f.ID)
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestDeleteUnknownIsNoop(t *testing.T) {
	fx := sixNodeFixture(4)

	_, err := fx.catalog.Create("keep.txt", 2*mb, "user-1", make([]byte, 2*mb))
	require.NoError(t, err)

	nodesBefore := fx.reg.Nodes()
	filesBefore := fx.catalog.Files()

	fx.catalog.Delete("no-such-id")

	assert.Equal(t, nodesBefore, fx.reg.Nodes())
	assert.Equal(t, filesBefore, fx.catalog.Files())
}

func TestReadableReplicas(t *testing.T) {
	fx := sixNodeFixture(4)

	f, err := fx.catalog.Create("x.bin", 4*mb, "user-1", make([]byte, 4*mb))
	require.NoError(t, err)
	require.Equal(t, []string{"node-6", "node-3", "node-5", "node-2"}, f.ReplicaNodeIDs)

	readable, err := fx.catalog.ReadableReplicas(f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ReplicaNodeIDs, readable)

	require.NoError(t, fx.reg.SetHealth("node-3", registry.HealthFailed))
	require.NoError(t, fx.reg.SetHealth("node-2", registry.HealthFailed))

	readable, err = fx.catalog.ReadableReplicas(f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"node-6", "node-5"}, readable)

	_, err = fx.catalog.ReadableReplicas("no-such-id")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSetReplicas(t *testing.T) {
	fx := sixNodeFixture(4)

	f, err := fx.catalog.Create("x.bin", mb, "user-1", make([]byte, mb))
	require.NoError(t, err)

	replicas := []string{"node-1", "node-4"}
	require.NoError(t, fx.catalog.SetReplicas(f.ID, replicas))

	got, err := fx.catalog.Get(f.ID)
	require.NoError(t, err)
	assert.Equal(t, replicas, got.ReplicaNodeIDs)

	// The catalog keeps its own copy of the slice.
	replicas[0] = "node-6"
	got, err = fx.catalog.Get(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "node-1", got.ReplicaNodeIDs[0])

	assert.ErrorIs(t, fx.catalog.SetReplicas("no-such-id", replicas), ErrFileNotFound)
}

func TestFilesInsertionOrder(t *testing.T) {
	fx := sixNodeFixture(2)

	names := []string{"first", "second", "third"}
	for _, name := range names {
		_, err := fx.catalog.Create(name, 10, "user-1", []byte("data"))
		require.NoError(t, err)
	}

	files := fx.catalog.Files()
	require.Len(t, files, 3)
	for i, f := range files {
		assert.Equal(t, names[i], f.Name)
	}

	// Deleting the middle file keeps the order of the rest.
	fx.catalog.Delete(files[1].ID)
	files = fx.catalog.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "first", files[0].Name)
	assert.Equal(t, "third", files[1].Name)
}
