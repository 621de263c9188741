// Package collectors feeds the metrics package from the running node.
package collectors

import (
	"context"
	"time"

	"github.com/smazurov/panelnode/internal/logging"
	"github.com/smazurov/panelnode/internal/metrics"
	"github.com/smazurov/panelnode/internal/node"
)

// TaskSource is the part of the node the kernel collector reads.
type TaskSource interface {
	Tasks() []node.TaskStatus
}

// KernelCollector samples the task table on an interval.
type KernelCollector struct {
	logger   logging.Logger
	source   TaskSource
	clock    func() time.Duration
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewKernelCollector creates a collector over source. clock reports kernel
// time and may be nil.
func NewKernelCollector(source TaskSource, clock func() time.Duration) *KernelCollector {
	return &KernelCollector{
		logger:   logging.GetLogger("metrics"),
		source:   source,
		clock:    clock,
		interval: time.Second,
	}
}

// Start begins collecting task metrics.
func (c *KernelCollector) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run()
	return nil
}

// Stop stops the collector and waits for the loop to exit.
func (c *KernelCollector) Stop() error {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	return nil
}

func (c *KernelCollector) run() {
	defer close(c.done)
	c.logger.Info("Starting task metrics collection", "interval", c.interval)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.Collect()
		}
	}
}

// Collect takes one sample.
func (c *KernelCollector) Collect() {
	for _, t := range c.source.Tasks() {
		metrics.SetTaskState(t.Name, t.State, t.State == "suspended")
		metrics.SetTaskFaults(t.Name, float64(t.Faults))
	}
	if c.clock != nil {
		metrics.SetKernelUptime(c.clock().Seconds())
	}
}
