package eventbus

import "math/rand"

// DropKind selects the overflow behavior for Bus.Enqueue.
type DropKind string

const (
	DropOldest DropKind = "dropOldest"
	DropNewest DropKind = "dropNewest"
	DropSample DropKind = "sample"
)

// DropPolicy governs what happens when an enqueue would exceed max buffer size.
type DropPolicy struct {
	Kind DropKind
	// Rate is used only by DropSample, and must be in (0, 1].
	Rate float64
}

func Oldest() DropPolicy { return DropPolicy{Kind: DropOldest} }
func Newest() DropPolicy { return DropPolicy{Kind: DropNewest} }

// Sample returns a DropPolicy that, when the buffer is full, retains an
// incoming event (evicting the head) with probability rate and drops it
// otherwise. Events arriving below capacity are always retained.
func Sample(rate float64) DropPolicy {
	if rate <= 0 {
		rate = 0.0001
	}
	if rate > 1 {
		rate = 1
	}
	return DropPolicy{Kind: DropSample, Rate: rate}
}

// randFloat64 is overridable in tests to make sampling deterministic.
var randFloat64 = rand.Float64
