package cluster

import (
	"context"
	"time"
)

// Start begins the periodic tick loop in the current goroutine, firing a
// health refresh + reconcile cycle on the configured interval. It blocks
// until the passed context or the cluster's own context is canceled, so it is
// normally invoked as:
//
//	go c.Start(ctx)
//
// No tick runs immediately at start; the first cycle fires one interval in.
func (c *Cluster) Start(ctx context.Context) {
	c.wg.Add(1)
	defer c.wg.Done()

	if ctx == nil {
		ctx = c.ctx
	}

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	c.logger.Info("tick loop started", "interval", c.cfg.TickInterval)

	for {
		select {
		case <-ticker.C:
			c.Tick()
		case <-ctx.Done():
			c.logger.Info("tick loop stopping")
			return
		case <-c.ctx.Done():
			c.logger.Info("tick loop stopping")
			return
		}
	}
}

// Stop shuts down the tick loop and waits for it to exit. In-flight ticks
// complete; nothing is canceled mid-cycle.
func (c *Cluster) Stop() {
	c.cancel()
	c.wg.Wait()
}
