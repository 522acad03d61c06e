// Package event defines the tagged-union DebugEvent emitted by capture
// sites and carried unmodified from the event bus through to the bridge
// (or the persistence spill queue) and on to the hub.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies which variant of DebugEvent a value holds.
type Kind string

const (
	KindHTTP      Kind = "http"
	KindWebSocket Kind = "websocket"
	KindLog       Kind = "log"
	KindStats     Kind = "stats"
)

// DebugEvent is the immutable record produced by every capture site.
//
// Exactly one of HTTP, WebSocket, Log, Stats is non-nil, matching Kind.
type DebugEvent struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	HTTP      *HTTPEvent      `json:"http,omitempty"`
	WebSocket *WSEvent        `json:"webSocket,omitempty"`
	Log       *LogEvent       `json:"log,omitempty"`
	Stats     *StatsEvent     `json:"stats,omitempty"`
}

// NewID returns a fresh stable event identifier.
func NewID() string { return uuid.NewString() }

// HTTPEvent records a single intercepted HTTP request/response pair.
type HTTPEvent struct {
	RequestID     string        `json:"requestId"`
	Request       HTTPRequest   `json:"request"`
	Response      *HTTPResponse `json:"response,omitempty"`
	Timing        Timing        `json:"timing"`
	Mocked        bool          `json:"mocked"`
	MatchedRuleID string        `json:"matchedRuleId,omitempty"`
}

// Timing captures the wall-clock duration of a captured request.
type Timing struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"durationMs"`
}

// HTTPRequest is a case-preserving snapshot of an outgoing request.
type HTTPRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}

// HTTPResponse is a case-preserving snapshot of a received response.
type HTTPResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty"`
	Duration   time.Duration     `json:"durationMs"`
}

// Clone returns a deep copy so pipeline mutation never aliases the captured
// request shared with the event bus.
func (r HTTPRequest) Clone() HTTPRequest {
	out := HTTPRequest{Method: r.Method, URL: r.URL}
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// Clone returns a deep copy of the response.
func (r HTTPResponse) Clone() HTTPResponse {
	out := HTTPResponse{StatusCode: r.StatusCode, Duration: r.Duration}
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// LogLevel is the severity of a captured log record.
type LogLevel string

const (
	LevelVerbose LogLevel = "verbose"
	LevelDebug   LogLevel = "debug"
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// LogEvent is a captured application log record, opaque beyond its schema.
type LogEvent struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Timestamp time.Time         `json:"timestamp"`
	Level     LogLevel          `json:"level"`
	Subsystem string            `json:"subsystem,omitempty"`
	Category  string            `json:"category,omitempty"`
	Thread    string            `json:"thread"`
	File      string            `json:"file"`
	Function  string            `json:"function"`
	Line      int               `json:"line"`
	Message   string            `json:"message"`
	Tags      map[string]string `json:"tags,omitempty"`
	TraceID   string            `json:"traceId,omitempty"`
}

// StatsEvent is a reserved variant. The source application never emits it;
// it is kept so the union stays forward-compatible.
type StatsEvent struct{}

// HTTP wraps an HTTPEvent into a DebugEvent with a fresh ID and timestamp.
func HTTP(ev HTTPEvent) DebugEvent {
	return DebugEvent{ID: NewID(), Kind: KindHTTP, Timestamp: time.Now(), HTTP: &ev}
}

// WS wraps a WSEvent into a DebugEvent with a fresh ID and timestamp.
func WS(ev WSEvent) DebugEvent {
	return DebugEvent{ID: NewID(), Kind: KindWebSocket, Timestamp: time.Now(), WebSocket: &ev}
}

// Log wraps a LogEvent into a DebugEvent. It keeps ev.ID when set (a fresh
// ID is assigned otherwise) and uses ev.Timestamp as the event timestamp.
func Log(ev LogEvent) DebugEvent {
	if ev.ID == "" {
		ev.ID = NewID()
	}
	return DebugEvent{ID: ev.ID, Kind: KindLog, Timestamp: ev.Timestamp, Log: &ev}
}
