package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/dreamware/repstore/internal/registry"
)

// TestRunnerTicks tests that the loop actually fires: with a failure
// probability of 1, every tick fails all nodes and forces a single survivor,
// which is observable from the status snapshot.
func TestRunnerTicks(t *testing.T) {
	cfg := threeNodeConfig(2)
	cfg.FailureProbability = 1
	cfg.TickInterval = 5 * time.Millisecond

	c := newTestCluster(t, cfg)

	go c.Start(nil)
	time.Sleep(50 * time.Millisecond)
	c.Stop()

	active := 0
	nodes, _ := c.Status()
	for _, n := range nodes {
		if n.Health == registry.HealthActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("Expected exactly 1 active node after ticks ran, got %d", active)
	}
}

// TestRunnerStopsOnContext tests that cancelling the caller's context ends
// the loop.
func TestRunnerStopsOnContext(t *testing.T) {
	cfg := threeNodeConfig(2)
	cfg.TickInterval = 5 * time.Millisecond

	c := newTestCluster(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

// TestRunnerStopWithoutStart tests that Stop on a never-started cluster
// returns immediately.
func TestRunnerStopWithoutStart(t *testing.T) {
	c := newTestCluster(t, threeNodeConfig(2))

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop hung without a running loop")
	}
}
