package spillqueue

import (
	"context"

	"github.com/debughub/probe/event"
)

// Drainer feeds a Queue from an intake channel on its own goroutine, so a
// slow disk never blocks the caller enqueuing events.
type Drainer struct {
	queue  *Queue
	intake chan []event.DebugEvent
	stopCh chan struct{}
	doneCh chan struct{}
	onErr  func(error)
}

// NewDrainer starts a background goroutine that drains intake into queue.
// onErr, if non-nil, is called for every write failure; the drainer keeps
// running afterward so a transient disk error does not wedge the pipeline.
func NewDrainer(queue *Queue, bufferSize int, onErr func(error)) *Drainer {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if onErr == nil {
		onErr = func(error) {}
	}
	d := &Drainer{
		queue:  queue,
		intake: make(chan []event.DebugEvent, bufferSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		onErr:  onErr,
	}
	go d.run()
	return d
}

// Submit enqueues a batch for background spilling. It blocks only if the
// intake channel is full, which bounds how far the drainer can lag.
func (d *Drainer) Submit(ctx context.Context, batch []event.DebugEvent) error {
	select {
	case d.intake <- batch:
		return nil
	case <-d.stopCh:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Drainer) run() {
	defer close(d.doneCh)
	for {
		select {
		case <-d.stopCh:
			d.drainRemaining()
			return
		case batch := <-d.intake:
			if err := d.queue.Enqueue(batch); err != nil {
				d.onErr(err)
			}
		}
	}
}

// drainRemaining flushes whatever is already buffered in the intake
// channel at shutdown, best-effort.
func (d *Drainer) drainRemaining() {
	for {
		select {
		case batch := <-d.intake:
			if err := d.queue.Enqueue(batch); err != nil {
				d.onErr(err)
			}
		default:
			return
		}
	}
}

// Stop signals the drainer to flush pending work and exit, then waits for
// it to finish.
func (d *Drainer) Stop() {
	close(d.stopCh)
	<-d.doneCh
}
