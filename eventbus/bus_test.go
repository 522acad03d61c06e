package eventbus

import (
	"testing"

	"github.com/debughub/probe/event"
	"github.com/debughub/probe/observability"
	"github.com/stretchr/testify/require"
)

func logEvent(msg string) event.DebugEvent {
	return event.Log(event.LogEvent{Message: msg})
}

func TestEnqueueUnderCapacity(t *testing.T) {
	b := New(3, Oldest())
	b.Enqueue(logEvent("a"))
	b.Enqueue(logEvent("b"))

	require.Equal(t, 2, b.Len())
	got := b.Peek(10)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Log.Message)
	require.Equal(t, "b", got[1].Log.Message)
}

func TestDropOldestEvictsHead(t *testing.T) {
	b := New(2, Oldest())
	b.Enqueue(logEvent("a"))
	b.Enqueue(logEvent("b"))
	b.Enqueue(logEvent("c"))

	got := b.Peek(10)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].Log.Message)
	require.Equal(t, "c", got[1].Log.Message)
}

func TestDropNewestKeepsHead(t *testing.T) {
	b := New(2, Newest())
	b.Enqueue(logEvent("a"))
	b.Enqueue(logEvent("b"))
	b.Enqueue(logEvent("c"))

	got := b.Peek(10)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Log.Message)
	require.Equal(t, "b", got[1].Log.Message)
}

func TestDropSampleRejectsOverflowAtZeroRate(t *testing.T) {
	orig := randFloat64
	defer func() { randFloat64 = orig }()
	randFloat64 = func() float64 { return 1 }

	b := New(1, Sample(0.0001))
	b.Enqueue(logEvent("a"))
	b.Enqueue(logEvent("b"))

	got := b.Peek(10)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].Log.Message)
}

func TestRemoveFirst(t *testing.T) {
	b := New(5, Oldest())
	b.Enqueue(logEvent("a"))
	b.Enqueue(logEvent("b"))
	b.Enqueue(logEvent("c"))

	b.RemoveFirst(2)
	got := b.Peek(10)
	require.Len(t, got, 1)
	require.Equal(t, "c", got[0].Log.Message)
}

func TestDequeueAllClearsBuffer(t *testing.T) {
	b := New(5, Oldest())
	b.Enqueue(logEvent("a"))
	b.Enqueue(logEvent("b"))

	drained := b.DequeueAll()
	require.Len(t, drained, 2)
	require.Equal(t, 0, b.Len())
}

func TestSetMaxSizeShrink(t *testing.T) {
	b := New(5, Oldest())
	for _, m := range []string{"a", "b", "c", "d"} {
		b.Enqueue(logEvent(m))
	}
	require.Equal(t, 4, b.Len())

	b.SetMaxSize(2)
	b.Enqueue(logEvent("e"))

	require.LessOrEqual(t, b.Len(), 2)
}

func TestSubscribeReceivesEnqueuedEvents(t *testing.T) {
	b := New(5, Oldest())
	received := make([]string, 0)
	id := b.Subscribe(func(ev event.DebugEvent) {
		received = append(received, ev.Log.Message)
	})

	b.Enqueue(logEvent("a"))
	b.Unsubscribe(id)
	b.Enqueue(logEvent("b"))

	require.Equal(t, []string{"a"}, received)
}

type countingObserver struct {
	enqueuedTotal int
	droppedTotal  int
	lastLength    int
}

func (c *countingObserver) Length(n int)   { c.lastLength = n }
func (c *countingObserver) Enqueued(n int) { c.enqueuedTotal += n }
func (c *countingObserver) Dropped(reason observability.DropReason, n int) {
	c.droppedTotal += n
}

func TestSetObserverReceivesLengthUpdates(t *testing.T) {
	b := New(5, Oldest())
	obs := &countingObserver{}
	b.SetObserver(obs)

	b.Enqueue(logEvent("a"))
	b.Enqueue(logEvent("b"))

	require.Equal(t, 2, obs.enqueuedTotal)
	require.Equal(t, 2, obs.lastLength)
}

func TestSetObserverReceivesDroppedCount(t *testing.T) {
	b := New(1, Oldest())
	obs := &countingObserver{}
	b.SetObserver(obs)

	b.Enqueue(logEvent("a"))
	b.Enqueue(logEvent("b"))

	require.Equal(t, 1, obs.droppedTotal)
}
