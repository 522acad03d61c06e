package bridge

import (
	"context"
	"time"

	"github.com/debughub/probe/observability"
)

// timerLoop drives the heartbeat, flush, and recovery timers while the
// connection is up. Each timer dispatches onto this single goroutine, so
// no two timer-driven actions ever run concurrently for one connection.
func (c *Client) timerLoop(ctx context.Context) {
	heartbeat := time.NewTicker(c.opts.heartbeatInterval)
	defer heartbeat.Stop()
	flush := time.NewTicker(c.opts.flushInterval)
	defer flush.Stop()
	recovery := time.NewTicker(c.opts.recoveryTickPeriod)
	defer recovery.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			c.sendHeartbeat(ctx)
		case <-flush.C:
			c.flushEvents(ctx)
		case <-recovery.C:
			c.recoveryTick(ctx)
		}
	}
}

func (c *Client) sendHeartbeat(ctx context.Context) {
	if c.State() != StateRegistered {
		return
	}
	frame, err := encodeFrame(FrameHeartbeat, nil)
	if err != nil {
		return
	}
	if err := c.writeFrame(ctx, frame); err == nil {
		c.obs.HeartbeatSent()
	}
}

// flushEvents implements the flush policy: peek up to batch_size
// from the bus; if registered, send and removeFirst on success; otherwise
// spill to persistence if enabled. A single in-flight flush guard
// prevents pipelining duplicates.
func (c *Client) flushEvents(ctx context.Context) {
	c.mu.Lock()
	if c.isFlushing {
		c.mu.Unlock()
		return
	}
	c.isFlushing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.isFlushing = false
		c.mu.Unlock()
	}()

	if c.deps.Bus == nil {
		return
	}

	if c.State() == StateRegistered {
		batch := c.deps.Bus.Peek(c.opts.batchSize)
		if len(batch) == 0 {
			c.obs.Flush(observability.FlushResultEmpty, 0)
			return
		}
		frame, err := encodeFrame(FrameEvents, EventsPayload(batch))
		if err != nil {
			c.obs.Flush(observability.FlushResultError, 0)
			return
		}
		if err := c.writeFrame(ctx, frame); err != nil {
			c.obs.Flush(observability.FlushResultError, 0)
			return
		}
		c.deps.Bus.RemoveFirst(len(batch))
		c.obs.Flush(observability.FlushResultSent, len(batch))
		return
	}

	if c.opts.enablePersistence && c.deps.Persistence != nil {
		drained := c.deps.Bus.DequeueAll()
		if len(drained) == 0 {
			return
		}
		if err := c.deps.Persistence.Enqueue(drained); err == nil {
			c.obs.Flush(observability.FlushResultSpilled, len(drained))
		} else {
			c.obs.Flush(observability.FlushResultError, 0)
		}
	}
}

// recoveryTick drains persisted batches into the uplink while registered
// and the queue is non-empty, via the recovery timer.
func (c *Client) recoveryTick(ctx context.Context) {
	if c.State() != StateRegistered || c.deps.Persistence == nil {
		return
	}
	if c.deps.Persistence.QueueCount() == 0 {
		return
	}
	batch, err := c.deps.Persistence.DequeueBatch(c.opts.recoveryBatchSize)
	if err != nil || len(batch) == 0 {
		return
	}
	frame, err := encodeFrame(FrameEvents, EventsPayload(batch))
	if err != nil {
		return
	}
	if err := c.writeFrame(ctx, frame); err != nil {
		// Put the batch back by re-enqueuing; best-effort, preserves
		// at-most-once-per-attempt rather than guaranteeing order.
		_ = c.deps.Persistence.Enqueue(batch)
	}
}
