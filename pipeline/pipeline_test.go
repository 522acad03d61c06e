package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/debughub/probe/eventbus"
	"github.com/debughub/probe/rules"
	"github.com/stretchr/testify/require"
)

type stubCapture struct {
	resp HTTPResponse
	err  error
	calls int
	lastReq HTTPRequest
}

func (s *stubCapture) Do(ctx context.Context, req HTTPRequest) (HTTPResponse, error) {
	s.calls++
	s.lastReq = req
	return s.resp, s.err
}

func newTestPipeline(capture Capture) (*Pipeline, *eventbus.Bus) {
	bus := eventbus.New(100, eventbus.Oldest())
	mock := rules.NewMockEngine()
	bp := rules.NewBreakpointEngine(2*time.Second, nil)
	chaos := rules.NewChaosEngine()
	return New(bus, mock, bp, chaos, capture), bus
}

func TestMockHitSkipsNetwork(t *testing.T) {
	capture := &stubCapture{resp: HTTPResponse{StatusCode: 200}}
	p, bus := newTestPipeline(capture)
	p.mock.UpdateRules([]rules.MockRule{{
		ID: "r1", Target: rules.TargetHTTPResponse, Priority: 10, Enabled: true,
		Condition: rules.Condition{URLPattern: "*/v1/ping"},
		Action:    rules.Action{MockResponseStatus: 418},
	}})

	result := p.InterceptHTTP(context.Background(), "req-1", HTTPRequest{
		Method: "GET", URL: "https://api.example.com/v1/ping",
	})

	require.Equal(t, 0, capture.calls)
	require.Equal(t, 418, result.Response.StatusCode)
	require.True(t, result.Mocked)
	require.Equal(t, "r1", result.MatchedRuleID)
	require.Equal(t, StateReported, result.State)

	events := bus.DequeueAll()
	require.Len(t, events, 1)
	require.Equal(t, "r1", events[0].HTTP.MatchedRuleID)
	require.True(t, events[0].HTTP.Mocked)
}

func TestChaosDropFailsRequestWithoutNetworkCall(t *testing.T) {
	capture := &stubCapture{resp: HTTPResponse{StatusCode: 200}}
	p, _ := newTestPipeline(capture)
	p.chaos.UpdateRules([]rules.ChaosRule{{
		ID: "c1", URLPattern: "*analytics*", Probability: 1.0, Chaos: rules.ChaosDropRequest, Enabled: true,
	}})

	result := p.InterceptHTTP(context.Background(), "req-1", HTTPRequest{
		Method: "POST", URL: "/analytics/x",
	})

	require.Equal(t, 0, capture.calls)
	require.Equal(t, OutcomeDropped, result.Outcome)
	require.Equal(t, StateChaosDropped, result.State)
}

func TestBreakpointModifyAppliesToOutboundRequest(t *testing.T) {
	capture := &stubCapture{resp: HTTPResponse{StatusCode: 200}}
	p, _ := newTestPipeline(capture)
	p.breakpoint.UpdateRules([]rules.BreakpointRule{{
		ID: "b1", Phase: rules.PhaseRequest, URLPattern: "/checkout", Method: "POST", Enabled: true,
	}})

	go func() {
		for p.breakpoint.PendingCount() == 0 {
			time.Sleep(time.Millisecond)
		}
		p.breakpoint.Resolve("req-1", rules.BreakpointAction{
			Kind: rules.ActionModify,
			ModifiedRequest: &rules.HTTPRequestView{
				Method: "POST", URL: "/checkout", Body: []byte(`{"qty":42}`),
			},
		})
	}()

	result := p.InterceptHTTP(context.Background(), "req-1", HTTPRequest{
		Method: "POST", URL: "/checkout", Body: []byte(`{"qty":1}`),
	})

	require.Equal(t, 1, capture.calls)
	require.Equal(t, []byte(`{"qty":42}`), capture.lastReq.Body)
	require.Equal(t, StateReported, result.State)
}

func TestNetworkErrorFailsRequest(t *testing.T) {
	capture := &stubCapture{err: context.DeadlineExceeded}
	p, _ := newTestPipeline(capture)

	result := p.InterceptHTTP(context.Background(), "req-1", HTTPRequest{Method: "GET", URL: "/x"})
	require.Equal(t, OutcomeReset, result.Outcome)
}
