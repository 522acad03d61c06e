package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/debughub/probe/eventbus"
	"github.com/debughub/probe/observability"
	"github.com/debughub/probe/probeerr"
	"github.com/debughub/probe/realtime/ws"
	"github.com/debughub/probe/rules"
	"github.com/debughub/probe/spillqueue"
	"github.com/gorilla/websocket"
)

// Replayer executes a replayRequest command via a clean, uninstrumented
// client; its response is always discarded.
type Replayer interface {
	Do(ctx context.Context, req ReplayRequestPayload) error
}

// DBExecutor is C7's command-protocol surface, consulted for dbCommand
// frames.
type DBExecutor interface {
	Execute(ctx context.Context, cmd DBCommandPayload) DBResponsePayload
}

// CaptureToggler receives toggleCapture commands; normally the lifecycle
// controller (C8).
type CaptureToggler interface {
	SetCapture(network, log bool)
}

// Deps wires in everything the bridge consults but does not own.
type Deps struct {
	Bus         *eventbus.Bus
	Mock        *rules.MockEngine
	Breakpoint  *rules.BreakpointEngine
	Chaos       *rules.ChaosEngine
	Replayer    Replayer
	DBExecutor  DBExecutor
	Toggler     CaptureToggler
	Persistence *spillqueue.Queue
}

// Client is the duplex protocol component to the hub: register, heartbeat,
// batched event upload, command dispatch, reconnect with backoff, and
// persistence recovery.
type Client struct {
	hubURL string
	token  string
	opts   options
	deps   Deps
	obs    observability.BridgeObserver

	mu              sync.Mutex
	state           ConnState
	conn            *ws.Conn
	sessionID       string
	manuallyClosed  bool
	currentInterval time.Duration
	reconnectAttempt int
	isFlushing      bool

	// writeMu serializes writes to conn; gorilla/websocket forbids
	// concurrent writers, and dbCommand replies can race heartbeat/flush.
	writeMu sync.Mutex

	stopCh chan struct{}
	doneCh chan struct{}
}

// New returns a Client configured to connect to hubURL with the given
// bearer token. Call Start to begin the connect/reconnect loop.
func New(hubURL, token string, deps Deps, opts ...Option) (*Client, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if deps.Toggler == nil {
		deps.Toggler = noopToggler{}
	}
	if deps.Replayer == nil {
		deps.Replayer = noopReplayer{}
	}
	if deps.DBExecutor == nil {
		deps.DBExecutor = noopDBExecutor{}
	}
	return &Client{
		hubURL:          hubURL,
		token:           token,
		opts:            cfg,
		deps:            deps,
		obs:             observability.NoopBridge,
		state:           StateDisconnected,
		currentInterval: cfg.reconnectInterval,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}, nil
}

// SetObserver attaches a metrics observer; nil restores the no-op one.
func (c *Client) SetObserver(obs observability.BridgeObserver) {
	if obs == nil {
		obs = observability.NoopBridge
	}
	c.mu.Lock()
	c.obs = obs
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	obs := c.obs
	c.mu.Unlock()
	obs.StateChange(observability.ConnState(s))
}

// Start begins the connect loop on a background goroutine.
func (c *Client) Start(ctx context.Context) {
	go c.run(ctx)
}

// Stop disconnects cleanly and suppresses reconnection.
func (c *Client) Stop() {
	c.mu.Lock()
	c.manuallyClosed = true
	conn := c.conn
	c.mu.Unlock()
	close(c.stopCh)
	if conn != nil {
		_ = conn.Close()
	}
	<-c.doneCh
}

type noopToggler struct{}

func (noopToggler) SetCapture(bool, bool) {}

type noopReplayer struct{}

func (noopReplayer) Do(context.Context, ReplayRequestPayload) error { return nil }

type noopDBExecutor struct{}

func (noopDBExecutor) Execute(context.Context, DBCommandPayload) DBResponsePayload {
	return DBResponsePayload{Success: false, Error: &DBErrorPayload{Kind: "internalError", Message: "no db executor configured"}}
}

func (c *Client) run(ctx context.Context) {
	defer close(c.doneCh)
	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := c.connectAndServe(ctx); err != nil {
			c.mu.Lock()
			manual := c.manuallyClosed
			c.mu.Unlock()
			if manual {
				return
			}
		}

		c.mu.Lock()
		manual := c.manuallyClosed
		interval := c.currentInterval
		attempt := c.reconnectAttempt
		c.reconnectAttempt++
		maxAttempts := c.opts.maxReconnectAttempts
		c.mu.Unlock()
		if manual {
			return
		}
		if maxAttempts > 0 && attempt >= maxAttempts {
			return
		}

		c.obs.ReconnectScheduled(attempt, interval)
		select {
		case <-time.After(interval):
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}

		c.mu.Lock()
		next := c.currentInterval * 2
		if next > c.opts.maxReconnectInterval {
			next = c.opts.maxReconnectInterval
		}
		c.currentInterval = next
		c.mu.Unlock()
	}
}

// connectAndServe dials the hub, registers, starts the timer loop, and
// blocks until the connection is lost or Stop is called.
func (c *Client) connectAndServe(ctx context.Context) error {
	c.setState(StateConnecting)

	header := cloneHeader(c.opts.header)
	header.Set("Authorization", "Bearer "+c.token)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := ws.Dial(dialCtx, c.hubURL, ws.DialOptions{Header: header, Dialer: c.opts.dialer})
	if err != nil {
		c.setState(StateDisconnected)
		return probeerr.New(probeerr.DomainBridge, probeerr.StageConnect, probeerr.ClassifyConnectCode(err), err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)

	if err := c.sendRegister(ctx); err != nil {
		_ = conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.setState(StateDisconnected)
		return err
	}

	loopCtx, loopCancel := context.WithCancel(ctx)
	defer loopCancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.timerLoop(loopCtx)
	}()

	err = c.readLoop(loopCtx, conn)
	loopCancel()
	wg.Wait()

	c.mu.Lock()
	c.conn = nil
	c.sessionID = ""
	c.mu.Unlock()
	c.setState(StateDisconnected)
	return err
}

func (c *Client) sendRegister(ctx context.Context) error {
	frame, err := encodeFrame(FrameRegister, RegisterPayload{Token: c.token})
	if err != nil {
		return err
	}
	return c.writeFrame(ctx, frame)
}

func (c *Client) writeFrame(ctx context.Context, frame Frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return probeerr.New(probeerr.DomainBridge, probeerr.StageSend, probeerr.CodeNotRegistered, nil)
	}
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(writeCtx, websocket.TextMessage, b); err != nil {
		return probeerr.New(probeerr.DomainBridge, probeerr.StageSend, probeerr.CodeTransport, err)
	}
	return nil
}

// NotifyBreakpointHit sends a breakpointHit frame to the hub. Its
// signature differs from rules.HitNotifier; probe.Controller's notifier
// builds the payload from the hit and calls this.
func (c *Client) NotifyBreakpointHit(ctx context.Context, payload BreakpointHitPayload) error {
	frame, err := encodeFrame(FrameBreakpointHit, payload)
	if err != nil {
		return err
	}
	return c.writeFrame(ctx, frame)
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h)+1)
	for k, v := range h {
		out[k] = append([]string(nil), v...)
	}
	return out
}
