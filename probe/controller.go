package probe

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/debughub/probe/bridge"
	"github.com/debughub/probe/event"
	"github.com/debughub/probe/eventbus"
	"github.com/debughub/probe/internal/defaults"
	"github.com/debughub/probe/pipeline"
	"github.com/debughub/probe/probeerr"
	"github.com/debughub/probe/rules"
	"github.com/debughub/probe/spillqueue"
)

// Controller is C8: it owns the bus, rule engines, persistence queue,
// pipeline, and bridge client, and implements bridge.CaptureToggler so
// the hub's toggleCapture command reaches the capture gates directly.
type Controller struct {
	cfg Config

	Bus        *eventbus.Bus
	Mock       *rules.MockEngine
	Breakpoint *rules.BreakpointEngine
	Chaos      *rules.ChaosEngine
	Pipeline   *pipeline.Pipeline
	Bridge     *bridge.Client
	Persist    *spillqueue.Queue

	log *zap.SugaredLogger

	networkEnabled atomic.Bool
	logEnabled     atomic.Bool

	mu      sync.Mutex
	started bool
}

// Options supplies the host-provided collaborators a Controller cannot
// construct on its own: the capture boundary, and optionally replay/DB
// execution.
type Options struct {
	Capture      pipeline.Capture
	Replayer     bridge.Replayer
	DBExecutor   bridge.DBExecutor
	StateDir     string
	BridgeOption []bridge.Option
	// Logger receives structured diagnostic logging for the controller's
	// own lifecycle (start/stop, persistence, breakpoint delivery
	// failures) — distinct from the LogEvent capture pipeline, which
	// carries a host's own application logs to the hub. A nil Logger
	// gets a no-op logger.
	Logger *zap.SugaredLogger
}

// New builds a Controller from cfg and opts, wiring C2-C6 together per
// one another. It does not start network I/O; call Start for that.
func New(cfg Config, opts Options) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	bus := eventbus.New(cfg.MaxBufferSize, eventbus.Oldest())
	mock := rules.NewMockEngine()
	chaos := rules.NewChaosEngine()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &Controller{cfg: cfg, Bus: bus, Mock: mock, Chaos: chaos, log: logger}

	// The breakpoint engine's hit notifier forwards to c.Bridge, which is
	// not yet constructed; by the time any request actually suspends, New
	// has returned and c.Bridge is set.
	breakpoint := rules.NewBreakpointEngine(defaults.BreakpointTimeout, c.notifyBreakpointHit)
	c.Breakpoint = breakpoint
	pl := pipeline.New(bus, mock, breakpoint, chaos, opts.Capture)
	c.Pipeline = pl

	var persist *spillqueue.Queue
	if cfg.EnablePersistence {
		dir := opts.StateDir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "debughub-probe")
		}
		q, err := spillqueue.Open(spillqueue.Config{
			Path:            filepath.Join(dir, "spillqueue.jsonl"),
			MaxSize:         cfg.MaxPersistenceQueueSize,
			RetentionPeriod: daysToDuration(cfg.PersistenceRetentionDays),
		})
		if err != nil {
			logger.Errorw("failed to open persistence queue", "path", dir, "error", err)
			return nil, probeerr.New(probeerr.DomainController, probeerr.StageOpen, probeerr.CodeInternal, err)
		}
		persist = q
		logger.Infow("persistence queue opened", "path", dir, "maxSize", cfg.MaxPersistenceQueueSize)
	}
	c.Persist = persist

	c.networkEnabled.Store(cfg.EnableNetworkCapture && cfg.NetworkCaptureMode == CaptureModeAutomatic)
	c.logEnabled.Store(cfg.EnableLogCapture && cfg.NetworkCaptureMode == CaptureModeAutomatic)

	bridgeOpts := append([]bridge.Option{
		bridge.WithReconnectInterval(cfg.Bridge.ReconnectInterval),
		bridge.WithMaxReconnectInterval(cfg.Bridge.MaxReconnectInterval),
		bridge.WithMaxReconnectAttempts(cfg.Bridge.MaxReconnectAttempts),
		bridge.WithHeartbeatInterval(cfg.Bridge.HeartbeatInterval),
		bridge.WithBatchSize(cfg.Bridge.BatchSize),
		bridge.WithFlushInterval(cfg.Bridge.FlushInterval),
		bridge.WithRecoveryBatchSize(cfg.Bridge.RecoveryBatchSize),
	}, opts.BridgeOption...)

	client, err := bridge.New(cfg.HubURL, cfg.Token, bridge.Deps{
		Bus: bus, Mock: mock, Breakpoint: breakpoint, Chaos: chaos,
		Replayer: opts.Replayer, DBExecutor: opts.DBExecutor, Toggler: c,
		Persistence: persist,
	}, bridgeOpts...)
	if err != nil {
		return nil, err
	}
	c.Bridge = client

	return c, nil
}

// Start begins the bridge's connect/reconnect loop.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.log.Infow("controller starting", "hubURL", c.cfg.HubURL)
	c.Bridge.Start(ctx)
}

// Stop disconnects the bridge and closes the persistence queue.
func (c *Controller) Stop() {
	c.mu.Lock()
	started := c.started
	c.started = false
	c.mu.Unlock()
	if started {
		c.log.Infow("controller stopping")
		c.Bridge.Stop()
	}
	if c.Persist != nil {
		if err := c.Persist.Close(); err != nil {
			c.log.Warnw("failed to close persistence queue", "error", err)
		}
	}
}

// SetCapture implements bridge.CaptureToggler for the hub's
// toggleCapture command.
func (c *Controller) SetCapture(network, log bool) {
	c.networkEnabled.Store(network)
	c.logEnabled.Store(log)
}

// NetworkCaptureEnabled reports whether network capture is currently
// active (manual mode starts disabled until a toggleCapture arrives).
func (c *Controller) NetworkCaptureEnabled() bool {
	return c.networkEnabled.Load()
}

// LogCaptureEnabled reports whether log capture is currently active.
func (c *Controller) LogCaptureEnabled() bool {
	return c.logEnabled.Load()
}

// scopeAllows reports whether the configured network_capture_scope
// includes the given traffic kind.
func (c *Controller) scopeAllows(scope CaptureScope) bool {
	return c.cfg.NetworkCaptureScope == CaptureScopeAll || c.cfg.NetworkCaptureScope == scope
}

// InterceptHTTP runs the interception pipeline for one request if HTTP
// capture is currently enabled and in scope; otherwise it returns a zero
// Result and false without consulting the pipeline, and performing the
// request is left to the host.
func (c *Controller) InterceptHTTP(ctx context.Context, requestID string, req pipeline.HTTPRequest) (pipeline.Result, bool) {
	if !c.NetworkCaptureEnabled() || !c.scopeAllows(CaptureScopeHTTP) {
		return pipeline.Result{}, false
	}
	return c.Pipeline.InterceptHTTP(ctx, requestID, req), true
}

// RecordSessionCreated records a new WebSocket session if capture is
// enabled and in scope.
func (c *Controller) RecordSessionCreated(session event.WSSession) {
	if !c.NetworkCaptureEnabled() || !c.scopeAllows(CaptureScopeWebSocket) {
		return
	}
	c.Pipeline.RecordSessionCreated(session)
}

// RecordSessionClosed records a WebSocket session close if capture is
// enabled and in scope.
func (c *Controller) RecordSessionClosed(session event.WSSession) {
	if !c.NetworkCaptureEnabled() || !c.scopeAllows(CaptureScopeWebSocket) {
		return
	}
	c.Pipeline.RecordSessionClosed(session)
}

// InterceptOutgoingFrame applies mock replacement and records an
// outgoing WebSocket frame if capture is enabled and in scope.
func (c *Controller) InterceptOutgoingFrame(sessionID, url string, opcode event.WSOpcode, payload []byte) []byte {
	if !c.NetworkCaptureEnabled() || !c.scopeAllows(CaptureScopeWebSocket) {
		return payload
	}
	return c.Pipeline.InterceptOutgoingFrame(sessionID, url, opcode, payload)
}

// InterceptIncomingFrame mirrors InterceptOutgoingFrame for inbound
// frames.
func (c *Controller) InterceptIncomingFrame(sessionID, url string, opcode event.WSOpcode, payload []byte) []byte {
	if !c.NetworkCaptureEnabled() || !c.scopeAllows(CaptureScopeWebSocket) {
		return payload
	}
	return c.Pipeline.InterceptIncomingFrame(sessionID, url, opcode, payload)
}

// RecordLog enqueues a log event if log capture is currently enabled.
func (c *Controller) RecordLog(ev event.LogEvent) {
	if !c.LogCaptureEnabled() {
		return
	}
	c.Bus.Enqueue(event.Log(ev))
}

func daysToDuration(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// notifyBreakpointHit is the rules.HitNotifier wired into the
// breakpoint engine; it forwards a breakpointHit frame to the hub.
func (c *Controller) notifyBreakpointHit(breakpointID, requestID string, phase rules.Phase, req rules.HTTPRequestView, resp *rules.HTTPResponseView) {
	if c.Bridge == nil {
		return
	}
	payload := bridge.BreakpointHitPayload{
		BreakpointID: breakpointID,
		RequestID:    requestID,
		Phase:        string(phase),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Request:      bridge.Snapshot{Method: req.Method, URL: req.URL, Headers: req.Headers, Body: req.Body},
	}
	if resp != nil {
		payload.Response = &bridge.Snapshot{Status: resp.StatusCode, Headers: resp.Headers, Body: resp.Body}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Bridge.NotifyBreakpointHit(ctx, payload); err != nil {
		c.log.Warnw("failed to notify hub of breakpoint hit", "requestId", requestID, "breakpointId", breakpointID, "error", err)
	}
}
