// Package eventbus implements the bounded, single-writer buffer that every
// capture site feeds and the bridge client drains: C2 in the probe design.
package eventbus

import (
	"sync"

	"github.com/debughub/probe/event"
	"github.com/debughub/probe/observability"
)

// Handler receives events delivered to a subscriber. It is invoked outside
// the bus lock, so it may itself call back into the bus without deadlocking.
type Handler func(ev event.DebugEvent)

// Bus is a bounded in-memory queue with a configurable overflow policy.
//
// All mutating operations are serialized by mu (single-writer discipline);
// subscriber notification happens after the lock is released.
type Bus struct {
	mu       sync.Mutex
	events   []event.DebugEvent
	maxSize  int
	policy   DropPolicy
	subs     map[int]Handler
	nextSub  int
	obs      observability.BusObserver
}

// New returns a Bus bounded to maxSize events under the given drop policy.
func New(maxSize int, policy DropPolicy) *Bus {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Bus{
		maxSize: maxSize,
		policy:  policy,
		subs:    make(map[int]Handler),
		obs:     observability.NoopBus,
	}
}

// SetObserver attaches a metrics observer; nil restores the no-op observer.
func (b *Bus) SetObserver(obs observability.BusObserver) {
	b.mu.Lock()
	if obs == nil {
		obs = observability.NoopBus
	}
	b.obs = obs
	b.mu.Unlock()
}

// SetMaxSize changes the bound. A shrink does not evict at once; the next
// overflow check trims the oldest events down to the new bound before the
// drop policy is applied to the incoming event.
func (b *Bus) SetMaxSize(n int) {
	if n <= 0 {
		n = 1
	}
	b.mu.Lock()
	b.maxSize = n
	b.mu.Unlock()
}

// SetPolicy replaces the drop policy used on overflow.
func (b *Bus) SetPolicy(p DropPolicy) {
	b.mu.Lock()
	b.policy = p
	b.mu.Unlock()
}

// Enqueue appends a single event, applying the drop policy on overflow. It
// never blocks.
func (b *Bus) Enqueue(ev event.DebugEvent) {
	b.EnqueueBatch([]event.DebugEvent{ev})
}

// EnqueueBatch appends a batch of events in order, applying the drop policy
// to each element as it would be applied individually.
func (b *Bus) EnqueueBatch(batch []event.DebugEvent) {
	if len(batch) == 0 {
		return
	}
	b.mu.Lock()
	dropped := make(map[observability.DropReason]int)
	enqueued := 0
	for _, ev := range batch {
		if b.tryAppendLocked(ev, dropped) {
			enqueued++
		}
	}
	length := len(b.events)
	obs := b.obs
	toNotify := b.snapshotNewLocked(enqueued)
	b.mu.Unlock()

	if enqueued > 0 {
		obs.Enqueued(enqueued)
	}
	for reason, n := range dropped {
		obs.Dropped(reason, n)
	}
	obs.Length(length)
	b.notify(toNotify)
}

// tryAppendLocked applies the overflow policy and appends ev if retained.
// Must be called with mu held.
func (b *Bus) tryAppendLocked(ev event.DebugEvent, dropped map[observability.DropReason]int) bool {
	if len(b.events) < b.maxSize {
		b.events = append(b.events, ev)
		return true
	}
	// After a shrink more than maxSize events may be buffered; trim the
	// oldest down to maxSize before applying the policy to ev.
	if excess := len(b.events) - b.maxSize; excess > 0 {
		b.events = append(b.events[:0:0], b.events[excess:]...)
		dropped[observability.DropReasonOldest] += excess
	}
	switch b.policy.Kind {
	case DropNewest:
		dropped[observability.DropReasonNewest]++
		return false
	case DropSample:
		if randFloat64() > b.policy.Rate {
			dropped[observability.DropReasonSample]++
			return false
		}
		b.evictHeadLocked()
		b.events = append(b.events, ev)
		return true
	case DropOldest:
		fallthrough
	default:
		b.evictHeadLocked()
		b.events = append(b.events, ev)
		dropped[observability.DropReasonOldest]++
		return true
	}
}

func (b *Bus) evictHeadLocked() {
	if len(b.events) == 0 {
		return
	}
	b.events = append(b.events[:0:0], b.events[1:]...)
}

// snapshotNewLocked returns copies of the last n buffered events (the ones
// the current batch appended, as far as they are still buffered), which
// EnqueueBatch delivers to subscribers after releasing the lock.
func (b *Bus) snapshotNewLocked(n int) []event.DebugEvent {
	if n <= 0 {
		return nil
	}
	if n > len(b.events) {
		n = len(b.events)
	}
	out := make([]event.DebugEvent, n)
	copy(out, b.events[len(b.events)-n:])
	return out
}

func (b *Bus) notify(evs []event.DebugEvent) {
	if len(evs) == 0 {
		return
	}
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		for _, ev := range evs {
			h(ev)
		}
	}
}

// Peek returns a snapshot of the first n events without removing them.
func (b *Bus) Peek(n int) []event.DebugEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > len(b.events) {
		n = len(b.events)
	}
	out := make([]event.DebugEvent, n)
	copy(out, b.events[:n])
	return out
}

// RemoveFirst drops up to n head elements.
func (b *Bus) RemoveFirst(n int) {
	b.mu.Lock()
	if n > len(b.events) {
		n = len(b.events)
	}
	if n > 0 {
		b.events = append(b.events[:0:0], b.events[n:]...)
	}
	length := len(b.events)
	obs := b.obs
	b.mu.Unlock()
	obs.Length(length)
}

// DequeueAll atomically takes and clears every buffered event.
func (b *Bus) DequeueAll() []event.DebugEvent {
	b.mu.Lock()
	out := b.events
	b.events = nil
	obs := b.obs
	b.mu.Unlock()
	obs.Length(0)
	return out
}

// Len returns the current buffered length.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Subscribe registers handler as a side-channel observer of enqueued events
// and returns an id usable with Unsubscribe.
func (b *Bus) Subscribe(h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = h
	return id
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}
