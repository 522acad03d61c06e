package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/debughub/probe/realtime/ws"
)

// readLoop reads frames until the connection closes or ctx is canceled,
// dispatching each to handleFrame. All dispatch runs on this single
// goroutine per connection, matching the "single designated thread"
// callback delivery contract.
func (c *Client) readLoop(ctx context.Context, conn *ws.Conn) error {
	for {
		_, b, err := conn.ReadMessage(ctx)
		if err != nil {
			return err
		}
		var frame Frame
		if err := json.Unmarshal(b, &frame); err != nil {
			// Decode errors on inbound frames are dropped; they are not
			// logged or reported to the observer.
			continue
		}
		c.handleFrame(ctx, frame)
	}
}

func (c *Client) handleFrame(ctx context.Context, frame Frame) {
	switch frame.Type {
	case FrameRegistered:
		c.handleRegistered(frame.Payload)
	case FrameToggleCapture:
		var p ToggleCapturePayload
		if json.Unmarshal(frame.Payload, &p) == nil {
			c.deps.Toggler.SetCapture(p.Network, p.Log)
		}
	case FrameUpdateMockRules:
		c.handleUpdateMockRules(frame.Payload)
	case FrameUpdateBreakpointRules:
		c.handleUpdateBreakpointRules(frame.Payload)
	case FrameUpdateChaosRules:
		c.handleUpdateChaosRules(frame.Payload)
	case FrameReplayRequest:
		c.handleReplayRequest(ctx, frame.Payload)
	case FrameBreakpointResume:
		c.handleBreakpointResume(frame.Payload)
	case FrameDBCommand:
		// Runs on its own goroutine so a slow query never blocks the
		// single read loop driving every other frame.
		go c.handleDBCommand(ctx, frame.Payload)
	case FrameRequestExport:
		// The export path reads from host-owned storage outside this
		// component's scope; nothing to do at the protocol layer.
	case FrameError:
		// Protocol errors from the hub are ignored; they are neither
		// reported to the observer nor surfaced to the host.
	default:
		// Unknown inbound tags are ignored.
	}
}

func (c *Client) handleRegistered(payload []byte) {
	var p RegisteredPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	c.mu.Lock()
	c.sessionID = p.SessionID
	c.reconnectAttempt = 0
	c.currentInterval = c.opts.reconnectInterval
	c.mu.Unlock()
	c.setState(StateRegistered)
}

func (c *Client) handleUpdateMockRules(payload []byte) {
	if c.deps.Mock == nil {
		return
	}
	var rules mockRulesWire
	if json.Unmarshal(payload, &rules) == nil {
		c.deps.Mock.UpdateRules(rules.toDomain())
	}
}

func (c *Client) handleUpdateBreakpointRules(payload []byte) {
	if c.deps.Breakpoint == nil {
		return
	}
	var rules breakpointRulesWire
	if json.Unmarshal(payload, &rules) == nil {
		c.deps.Breakpoint.UpdateRules(rules.toDomain())
	}
}

func (c *Client) handleUpdateChaosRules(payload []byte) {
	if c.deps.Chaos == nil {
		return
	}
	var rules chaosRulesWire
	if json.Unmarshal(payload, &rules) == nil {
		c.deps.Chaos.UpdateRules(rules.toDomain())
	}
}

func (c *Client) handleReplayRequest(ctx context.Context, payload []byte) {
	var p ReplayRequestPayload
	if json.Unmarshal(payload, &p) != nil {
		return
	}
	replayCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	// The response, if any, is intentionally discarded: replay upload
	// is not implemented.
	_ = c.deps.Replayer.Do(replayCtx, p)
}

func (c *Client) handleBreakpointResume(payload []byte) {
	if c.deps.Breakpoint == nil {
		return
	}
	var p BreakpointResumePayload
	if json.Unmarshal(payload, &p) != nil {
		return
	}
	c.deps.Breakpoint.Resolve(p.RequestID, p.toRuleAction())
}

func (c *Client) handleDBCommand(ctx context.Context, payload []byte) {
	var cmd DBCommandPayload
	if json.Unmarshal(payload, &cmd) != nil {
		return
	}
	resp := c.deps.DBExecutor.Execute(ctx, cmd)
	resp.RequestID = cmd.RequestID
	frame, err := encodeFrame(FrameDBResponse, resp)
	if err != nil {
		return
	}
	_ = c.writeFrame(ctx, frame)
}
