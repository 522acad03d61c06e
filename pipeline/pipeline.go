package pipeline

import (
	"context"
	"time"

	"github.com/debughub/probe/event"
	"github.com/debughub/probe/eventbus"
	"github.com/debughub/probe/observability"
	"github.com/debughub/probe/rules"
)

// Pipeline runs the 8-step interception protocol against a Capture
// implementation, consulting the three rule engines synchronously on
// every request and recording the outcome on the event bus.
type Pipeline struct {
	bus        *eventbus.Bus
	mock       *rules.MockEngine
	breakpoint *rules.BreakpointEngine
	chaos      *rules.ChaosEngine
	capture    Capture
	obs        observability.PipelineObserver
	sleep      func(d time.Duration)
}

// New returns a Pipeline wired to the given bus, engines, and host
// network implementation.
func New(bus *eventbus.Bus, mock *rules.MockEngine, breakpoint *rules.BreakpointEngine, chaos *rules.ChaosEngine, capture Capture) *Pipeline {
	return &Pipeline{
		bus:        bus,
		mock:       mock,
		breakpoint: breakpoint,
		chaos:      chaos,
		capture:    capture,
		obs:        observability.NoopPipeline,
		sleep:      time.Sleep,
	}
}

// SetObserver attaches a metrics observer; nil restores the no-op one.
func (p *Pipeline) SetObserver(obs observability.PipelineObserver) {
	if obs == nil {
		obs = observability.NoopPipeline
	}
	p.obs = obs
}

// InterceptHTTP runs the full request/response protocol for one captured
// request, recording the terminal event on the bus and returning the
// final state.
func (p *Pipeline) InterceptHTTP(ctx context.Context, requestID string, req HTTPRequest) Result {
	start := time.Now()

	// Step 2: chaos on the request.
	chaosResult := p.chaos.Evaluate(toRulesRequest(req))
	switch chaosResult.Kind {
	case rules.ChaosResultDrop:
		p.obs.ChaosFired("drop")
		return p.finish(requestID, req, nil, StateChaosDropped, OutcomeDropped, false, "", start)
	case rules.ChaosResultTimeout:
		p.obs.ChaosFired("timeout")
		return p.finish(requestID, req, nil, StateChaosFailed, OutcomeTimeout, false, "", start)
	case rules.ChaosResultReset:
		p.obs.ChaosFired("connectionReset")
		return p.finish(requestID, req, nil, StateChaosFailed, OutcomeReset, false, "", start)
	case rules.ChaosResultError:
		p.obs.ChaosFired("errorResponse")
		resp := &HTTPResponse{StatusCode: chaosResult.Status}
		return p.finish(requestID, req, resp, StateChaosFailed, OutcomeReported, false, chaosResult.MatchedRuleID, start)
	case rules.ChaosResultDelay:
		p.obs.ChaosFired("delay")
		p.sleep(time.Duration(chaosResult.DelayMS) * time.Millisecond)
	}

	// Step 3: request breakpoint.
	workingReq := req
	var mockResp *HTTPResponse
	if p.breakpoint.HasRequestBreakpoint(toRulesRequest(req)) {
		p.obs.BreakpointHit("request")
		action, err := p.breakpoint.CheckRequestBreakpoint(ctx, requestID, toRulesRequest(req))
		if err != nil {
			return p.finish(requestID, req, nil, StateAborted, OutcomeAborted, false, "", start)
		}
		switch action.Kind {
		case rules.ActionAbort:
			return p.finish(requestID, req, nil, StateAborted, OutcomeAborted, false, "", start)
		case rules.ActionModify:
			if action.ModifiedRequest != nil {
				workingReq = fromRulesRequest(*action.ModifiedRequest)
			}
		case rules.ActionMockResponse:
			if action.MockResponse != nil {
				mockResp = &HTTPResponse{
					StatusCode: action.MockResponse.StatusCode,
					Headers:    action.MockResponse.Headers,
					Body:       action.MockResponse.Body,
				}
			}
		}
	}

	matchedRuleID := ""
	mocked := mockResp != nil

	// Step 4: mock rules, unless a breakpoint already produced a response.
	if mockResp == nil {
		modifiedReq, mr, ruleID := p.mock.ProcessHTTPRequest(toRulesRequest(workingReq))
		workingReq = fromRulesRequest(modifiedReq)
		if mr != nil {
			mockResp = &HTTPResponse{StatusCode: mr.StatusCode, Headers: mr.Headers, Body: mr.Body}
			matchedRuleID = ruleID
			mocked = true
			p.obs.MockMatched(ruleID)
		}
	}

	var resp HTTPResponse
	if mockResp != nil {
		resp = *mockResp
	} else {
		// Step 5: the real network call.
		networkResp, err := p.capture.Do(ctx, workingReq)
		if err != nil {
			return p.finish(requestID, workingReq, nil, StateChaosFailed, OutcomeReset, mocked, matchedRuleID, start)
		}
		resp = networkResp
	}

	// Step 6: response breakpoint.
	if p.breakpoint.HasResponseBreakpoint(toRulesRequest(workingReq)) {
		p.obs.BreakpointHit("response")
		action, err := p.breakpoint.CheckResponseBreakpoint(ctx, requestID, toRulesRequest(workingReq), toRulesResponse(resp))
		if err == nil {
			switch action.Kind {
			case rules.ActionModify:
				if action.ModifiedResponse != nil {
					resp = fromRulesResponse(*action.ModifiedResponse)
				}
			case rules.ActionAbort:
				resp = HTTPResponse{StatusCode: 0, Body: []byte("aborted by breakpoint")}
			case rules.ActionMockResponse:
				if action.MockResponse != nil {
					resp = HTTPResponse{StatusCode: action.MockResponse.StatusCode, Headers: action.MockResponse.Headers, Body: action.MockResponse.Body}
				}
			}
		}
	}

	// Step 7: response-side chaos (corruption only).
	corruption := p.chaos.EvaluateResponse(toRulesRequest(workingReq), toRulesResponse(resp))
	if corruption.Kind == rules.ChaosResultCorrupted {
		resp.Body = corruption.Corrupted
		p.obs.ChaosFired("corruptResponse")
	}

	return p.finish(requestID, workingReq, &resp, StateReported, OutcomeReported, mocked, matchedRuleID, start)
}

func (p *Pipeline) finish(requestID string, req HTTPRequest, resp *HTTPResponse, state State, outcome Outcome, mocked bool, matchedRuleID string, start time.Time) Result {
	duration := time.Since(start)
	p.recordEvent(requestID, req, resp, outcome, mocked, matchedRuleID, start, duration)
	p.obs.RequestCompleted(string(outcome), duration)
	return Result{
		RequestID:     requestID,
		State:         state,
		Outcome:       outcome,
		Response:      resp,
		Mocked:        mocked,
		MatchedRuleID: matchedRuleID,
		StartedAt:     start,
		Duration:      duration,
	}
}

func (p *Pipeline) recordEvent(requestID string, req HTTPRequest, resp *HTTPResponse, outcome Outcome, mocked bool, matchedRuleID string, start time.Time, duration time.Duration) {
	ev := event.HTTPEvent{
		RequestID: requestID,
		Request: event.HTTPRequest{
			Method:  req.Method,
			URL:     req.URL,
			Headers: req.Headers,
			Body:    req.Body,
		},
		Timing:        event.Timing{StartedAt: start, Duration: duration},
		Mocked:        mocked,
		MatchedRuleID: matchedRuleID,
	}
	if resp != nil {
		ev.Response = &event.HTTPResponse{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			Body:       resp.Body,
			Duration:   duration,
		}
	}
	p.bus.Enqueue(event.HTTP(ev))
}

func toRulesRequest(r HTTPRequest) rules.HTTPRequestView {
	return rules.HTTPRequestView{Method: r.Method, URL: r.URL, Headers: r.Headers, Body: r.Body}
}

func fromRulesRequest(r rules.HTTPRequestView) HTTPRequest {
	return HTTPRequest{Method: r.Method, URL: r.URL, Headers: r.Headers, Body: r.Body}
}

func toRulesResponse(r HTTPResponse) rules.HTTPResponseView {
	return rules.HTTPResponseView{StatusCode: r.StatusCode, Headers: r.Headers, Body: r.Body}
}

func fromRulesResponse(r rules.HTTPResponseView) HTTPResponse {
	return HTTPResponse{StatusCode: r.StatusCode, Headers: r.Headers, Body: r.Body}
}
