package probe

import (
	"context"
	"testing"
	"time"

	"github.com/debughub/probe/event"
	"github.com/debughub/probe/pipeline"
	"github.com/stretchr/testify/require"
)

type stubCapture struct{}

func (stubCapture) Do(_ context.Context, req pipeline.HTTPRequest) (pipeline.HTTPResponse, error) {
	return pipeline.HTTPResponse{StatusCode: 200, Headers: map[string]string{}, Body: []byte("ok")}, nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := Default()
	cfg.HubURL = "ws://127.0.0.1:1/" // unroutable; we never Start() in most tests
	cfg.Token = "test-token"
	cfg.EnablePersistence = false
	return cfg
}

func newTestController(t *testing.T, mutate func(*Config)) *Controller {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg, Options{Capture: stubCapture{}})
	require.NoError(t, err)
	return c
}

func TestNewDefaultsToAutomaticCaptureEnabled(t *testing.T) {
	c := newTestController(t, nil)
	require.True(t, c.NetworkCaptureEnabled())
	require.True(t, c.LogCaptureEnabled())
}

func TestNewManualModeStartsDisabled(t *testing.T) {
	c := newTestController(t, func(cfg *Config) {
		cfg.NetworkCaptureMode = CaptureModeManual
	})
	require.False(t, c.NetworkCaptureEnabled())
	require.False(t, c.LogCaptureEnabled())

	c.SetCapture(true, false)
	require.True(t, c.NetworkCaptureEnabled())
	require.False(t, c.LogCaptureEnabled())
}

func TestInterceptHTTPGatedByEnableAndScope(t *testing.T) {
	c := newTestController(t, func(cfg *Config) {
		cfg.NetworkCaptureScope = CaptureScopeWebSocket
	})
	_, ok := c.InterceptHTTP(context.Background(), "req-1", pipeline.HTTPRequest{Method: "GET", URL: "http://x/"})
	require.False(t, ok, "http scope excluded, should not intercept")

	c2 := newTestController(t, nil)
	result, ok := c2.InterceptHTTP(context.Background(), "req-2", pipeline.HTTPRequest{Method: "GET", URL: "http://x/"})
	require.True(t, ok)
	require.Equal(t, pipeline.StateReported, result.State)
}

func TestInterceptHTTPGatedByManualModeUntilToggled(t *testing.T) {
	c := newTestController(t, func(cfg *Config) {
		cfg.NetworkCaptureMode = CaptureModeManual
	})
	_, ok := c.InterceptHTTP(context.Background(), "req-1", pipeline.HTTPRequest{Method: "GET", URL: "http://x/"})
	require.False(t, ok)

	c.SetCapture(true, true)
	_, ok = c.InterceptHTTP(context.Background(), "req-2", pipeline.HTTPRequest{Method: "GET", URL: "http://x/"})
	require.True(t, ok)
}

func TestRecordLogGatedByLogCaptureEnabled(t *testing.T) {
	c := newTestController(t, func(cfg *Config) {
		cfg.NetworkCaptureMode = CaptureModeManual
	})
	received := make(chan event.DebugEvent, 4)
	subID := c.Bus.Subscribe(func(ev event.DebugEvent) { received <- ev })
	defer c.Bus.Unsubscribe(subID)

	c.RecordLog(event.LogEvent{Level: event.LevelInfo, File: "dropped"})
	select {
	case <-received:
		t.Fatal("log recorded while capture disabled")
	case <-time.After(20 * time.Millisecond):
	}

	c.SetCapture(false, true)
	c.RecordLog(event.LogEvent{Level: event.LevelInfo, File: "recorded"})
	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("expected log event after enabling capture")
	}
}

func TestWebSocketCaptureGatedByScope(t *testing.T) {
	c := newTestController(t, func(cfg *Config) {
		cfg.NetworkCaptureScope = CaptureScopeHTTP
	})
	out := c.InterceptOutgoingFrame("sess-1", "ws://x/", event.OpcodeText, []byte("payload"))
	require.Equal(t, []byte("payload"), out, "frame passes through untouched when scope excludes websocket")
}

func TestStartStopIsIdempotentAndReleasesResources(t *testing.T) {
	c := newTestController(t, func(cfg *Config) {
		cfg.Bridge.ReconnectInterval = time.Millisecond
		cfg.Bridge.MaxReconnectInterval = 2 * time.Millisecond
		cfg.Bridge.MaxReconnectAttempts = 1
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.Start(ctx)
	c.Start(ctx) // second Start is a no-op
	c.Stop()
	c.Stop() // second Stop is a no-op
}
