// Package observability defines the metrics hooks consulted by the bus,
// bridge, and pipeline: small result-tagged interfaces, a no-op default,
// and an atomically swappable wrapper so a host can attach metrics after
// construction without synchronizing with the hot path.
package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// DropReason tags why the event bus discarded an event.
type DropReason string

const (
	DropReasonOldest DropReason = "oldest"
	DropReasonNewest DropReason = "newest"
	DropReasonSample DropReason = "sample"
)

// ConnState mirrors the bridge's connection state machine for metrics.
type ConnState string

const (
	ConnDisconnected ConnState = "disconnected"
	ConnConnecting   ConnState = "connecting"
	ConnConnected    ConnState = "connected"
	ConnRegistered   ConnState = "registered"
)

// FlushResult tags the outcome of a single bridge flush attempt.
type FlushResult string

const (
	FlushResultSent    FlushResult = "sent"
	FlushResultSpilled FlushResult = "spilled"
	FlushResultEmpty   FlushResult = "empty"
	FlushResultError   FlushResult = "error"
)

// BusObserver receives event-bus metric events.
type BusObserver interface {
	Length(n int)
	Enqueued(n int)
	Dropped(reason DropReason, n int)
}

// BridgeObserver receives bridge-client metric events.
type BridgeObserver interface {
	StateChange(s ConnState)
	Flush(result FlushResult, n int)
	ReconnectScheduled(attempt int, after time.Duration)
	HeartbeatSent()
}

// PipelineObserver receives interception-pipeline metric events.
type PipelineObserver interface {
	RequestCompleted(outcome string, d time.Duration)
	BreakpointHit(phase string)
	ChaosFired(kind string)
	MockMatched(target string)
}

type noopBus struct{}

func (noopBus) Length(int)              {}
func (noopBus) Enqueued(int)            {}
func (noopBus) Dropped(DropReason, int) {}

type noopBridge struct{}

func (noopBridge) StateChange(ConnState)                 {}
func (noopBridge) Flush(FlushResult, int)                {}
func (noopBridge) ReconnectScheduled(int, time.Duration) {}
func (noopBridge) HeartbeatSent()                        {}

type noopPipeline struct{}

func (noopPipeline) RequestCompleted(string, time.Duration) {}
func (noopPipeline) BreakpointHit(string)                   {}
func (noopPipeline) ChaosFired(string)                      {}
func (noopPipeline) MockMatched(string)                     {}

// NoopBus is a zero-cost observer used when bus metrics are disabled.
var NoopBus BusObserver = noopBus{}

// NoopBridge is a zero-cost observer used when bridge metrics are disabled.
var NoopBridge BridgeObserver = noopBridge{}

// NoopPipeline is a zero-cost observer used when pipeline metrics are disabled.
var NoopPipeline PipelineObserver = noopPipeline{}

// AtomicBus swaps its delegate at runtime.
type AtomicBus struct {
	once sync.Once
	v    atomic.Value
}

type busHolder struct{ obs BusObserver }

// NewAtomicBus returns an initialized atomic observer.
func NewAtomicBus() *AtomicBus {
	a := &AtomicBus{}
	a.init()
	return a
}

func (a *AtomicBus) init() {
	a.once.Do(func() { a.v.Store(&busHolder{obs: NoopBus}) })
}

// Set replaces the delegate, falling back to the no-op observer on nil.
func (a *AtomicBus) Set(obs BusObserver) {
	if obs == nil {
		obs = NoopBus
	}
	a.init()
	a.v.Store(&busHolder{obs: obs})
}

func (a *AtomicBus) load() BusObserver {
	a.init()
	return a.v.Load().(*busHolder).obs
}

func (a *AtomicBus) Length(n int)                { a.load().Length(n) }
func (a *AtomicBus) Enqueued(n int)              { a.load().Enqueued(n) }
func (a *AtomicBus) Dropped(r DropReason, n int) { a.load().Dropped(r, n) }

// AtomicBridge swaps its delegate at runtime.
type AtomicBridge struct {
	once sync.Once
	v    atomic.Value
}

type bridgeHolder struct{ obs BridgeObserver }

// NewAtomicBridge returns an initialized atomic observer.
func NewAtomicBridge() *AtomicBridge {
	a := &AtomicBridge{}
	a.init()
	return a
}

func (a *AtomicBridge) init() {
	a.once.Do(func() { a.v.Store(&bridgeHolder{obs: NoopBridge}) })
}

// Set replaces the delegate, falling back to the no-op observer on nil.
func (a *AtomicBridge) Set(obs BridgeObserver) {
	if obs == nil {
		obs = NoopBridge
	}
	a.init()
	a.v.Store(&bridgeHolder{obs: obs})
}

func (a *AtomicBridge) load() BridgeObserver {
	a.init()
	return a.v.Load().(*bridgeHolder).obs
}

func (a *AtomicBridge) StateChange(s ConnState)   { a.load().StateChange(s) }
func (a *AtomicBridge) Flush(r FlushResult, n int) { a.load().Flush(r, n) }
func (a *AtomicBridge) ReconnectScheduled(attempt int, after time.Duration) {
	a.load().ReconnectScheduled(attempt, after)
}
func (a *AtomicBridge) HeartbeatSent() { a.load().HeartbeatSent() }

// AtomicPipeline swaps its delegate at runtime.
type AtomicPipeline struct {
	once sync.Once
	v    atomic.Value
}

type pipelineHolder struct{ obs PipelineObserver }

// NewAtomicPipeline returns an initialized atomic observer.
func NewAtomicPipeline() *AtomicPipeline {
	a := &AtomicPipeline{}
	a.init()
	return a
}

func (a *AtomicPipeline) init() {
	a.once.Do(func() { a.v.Store(&pipelineHolder{obs: NoopPipeline}) })
}

// Set replaces the delegate, falling back to the no-op observer on nil.
func (a *AtomicPipeline) Set(obs PipelineObserver) {
	if obs == nil {
		obs = NoopPipeline
	}
	a.init()
	a.v.Store(&pipelineHolder{obs: obs})
}

func (a *AtomicPipeline) load() PipelineObserver {
	a.init()
	return a.v.Load().(*pipelineHolder).obs
}

func (a *AtomicPipeline) RequestCompleted(outcome string, d time.Duration) {
	a.load().RequestCompleted(outcome, d)
}
func (a *AtomicPipeline) BreakpointHit(phase string) { a.load().BreakpointHit(phase) }
func (a *AtomicPipeline) ChaosFired(kind string)     { a.load().ChaosFired(kind) }
func (a *AtomicPipeline) MockMatched(target string)  { a.load().MockMatched(target) }
