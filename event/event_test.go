package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPEventRoundTrip(t *testing.T) {
	ev := HTTP(HTTPEvent{
		RequestID: "req-1",
		Request: HTTPRequest{
			Method:  "GET",
			URL:     "https://api.example.com/v1/ping",
			Headers: map[string]string{"Accept": "application/json"},
		},
		Response: &HTTPResponse{StatusCode: 200, Body: []byte(`{"ok":true}`)},
		Timing:   Timing{StartedAt: time.Now().UTC(), Duration: 12 * time.Millisecond},
	})

	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var got DebugEvent
	require.NoError(t, json.Unmarshal(b, &got))

	require.Equal(t, ev.Kind, got.Kind)
	require.Equal(t, ev.HTTP.Request.URL, got.HTTP.Request.URL)
	require.Equal(t, ev.HTTP.Response.StatusCode, got.HTTP.Response.StatusCode)
	require.Equal(t, ev.HTTP.Response.Body, got.HTTP.Response.Body)
}

func TestHTTPRequestCloneIsIndependent(t *testing.T) {
	orig := HTTPRequest{
		Method:  "POST",
		URL:     "/checkout",
		Headers: map[string]string{"X-Test": "1"},
		Body:    []byte(`{"qty":1}`),
	}
	clone := orig.Clone()
	clone.Headers["X-Test"] = "mutated"
	clone.Body[0] = 'Z'

	require.Equal(t, "1", orig.Headers["X-Test"])
	require.Equal(t, byte('{'), orig.Body[0])
}

func TestWSFrameEventRoundTrip(t *testing.T) {
	ev := WS(FrameEvent(WSFrame{
		SessionID: "sess-1",
		Direction: DirectionSend,
		Opcode:    OpcodeText,
		Payload:   []byte("hello"),
	}))

	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var got DebugEvent
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, KindWebSocket, got.Kind)
	require.Equal(t, WSKindFrame, got.WebSocket.Kind)
	require.Equal(t, []byte("hello"), got.WebSocket.Frame.Payload)
}

func TestLogEventPreservesID(t *testing.T) {
	ev := Log(LogEvent{ID: "log-fixed", Message: "hello", Thread: "main"})
	require.Equal(t, "log-fixed", ev.ID)
	require.Equal(t, KindLog, ev.Kind)
}
