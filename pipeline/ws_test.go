package pipeline

import (
	"testing"

	"github.com/debughub/probe/event"
	"github.com/debughub/probe/rules"
	"github.com/stretchr/testify/require"
)

func TestInterceptOutgoingFrameAppliesReplacement(t *testing.T) {
	p, bus := newTestPipeline(&stubCapture{})
	p.mock.UpdateRules([]rules.MockRule{{
		ID: "w1", Target: rules.TargetWSOutgoing, Priority: 1, Enabled: true,
		Action: rules.Action{WSReplacementPayload: []byte("replaced")},
	}})

	out := p.InterceptOutgoingFrame("sess-1", "wss://x.com", event.OpcodeText, []byte("original"))
	require.Equal(t, []byte("replaced"), out)

	events := bus.DequeueAll()
	require.Len(t, events, 1)
	require.True(t, events[0].WebSocket.Frame.IsMocked)
	require.Equal(t, "w1", events[0].WebSocket.Frame.MockRuleID)
}

func TestRecordSessionCreatedAndClosed(t *testing.T) {
	p, bus := newTestPipeline(&stubCapture{})
	p.RecordSessionCreated(event.WSSession{ID: "sess-1", URL: "wss://x.com"})
	p.RecordSessionClosed(event.WSSession{ID: "sess-1"})

	events := bus.DequeueAll()
	require.Len(t, events, 2)
	require.Equal(t, event.WSKindSessionCreated, events[0].WebSocket.Kind)
	require.Equal(t, event.WSKindSessionClosed, events[1].WebSocket.Kind)
}
