// Package bridge implements C6: the duplex protocol client that registers
// with the hub, uploads batched events, dispatches hub commands, and
// reconnects with exponential backoff across transport failures.
package bridge

import (
	"encoding/json"

	"github.com/debughub/probe/event"
	"github.com/debughub/probe/rules"
)

// FrameType tags the outer envelope of every hub-channel message.
type FrameType string

const (
	FrameRegister             FrameType = "register"
	FrameHeartbeat            FrameType = "heartbeat"
	FrameEvents                FrameType = "events"
	FrameBreakpointHit         FrameType = "breakpointHit"
	FrameRegistered            FrameType = "registered"
	FrameToggleCapture         FrameType = "toggleCapture"
	FrameUpdateMockRules       FrameType = "updateMockRules"
	FrameRequestExport         FrameType = "requestExport"
	FrameReplayRequest         FrameType = "replayRequest"
	FrameUpdateBreakpointRules FrameType = "updateBreakpointRules"
	FrameBreakpointResume      FrameType = "breakpointResume"
	FrameUpdateChaosRules      FrameType = "updateChaosRules"
	FrameDBCommand             FrameType = "dbCommand"
	FrameDBResponse            FrameType = "dbResponse"
	FrameError                 FrameType = "error"
)

// Frame is the wire envelope: { type, payload }. payload is omitted for
// heartbeat.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DeviceInfo accompanies register; its shape is owned by the host and
// passed through opaquely.
type DeviceInfo map[string]any

// RegisterPayload is the register frame payload.
type RegisterPayload struct {
	DeviceInfo DeviceInfo `json:"deviceInfo"`
	Token      string     `json:"token"`
}

// RegisteredPayload is the registered frame payload.
type RegisteredPayload struct {
	SessionID string `json:"sessionId"`
}

// EventsPayload is the events frame payload: a batch of debug events.
type EventsPayload []event.DebugEvent

// Snapshot is a base64-transparent request/response snapshot carried in
// breakpointHit and breakpointResume payloads. json.RawMessage-free byte
// fields round-trip through encoding/json's built-in []byte<->base64.
type Snapshot struct {
	Method  string            `json:"method,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
	Status  int               `json:"status,omitempty"`
}

// BreakpointHitPayload is the breakpointHit frame payload.
type BreakpointHitPayload struct {
	BreakpointID string    `json:"breakpointId"`
	RequestID    string    `json:"requestId"`
	Phase        string    `json:"phase"`
	Timestamp    string    `json:"timestamp"`
	Request      Snapshot  `json:"request"`
	Response     *Snapshot `json:"response,omitempty"`
}

// ToggleCapturePayload is the toggleCapture frame payload.
type ToggleCapturePayload struct {
	Network bool `json:"network"`
	Log     bool `json:"log"`
}

// RequestExportPayload is the requestExport frame payload.
type RequestExportPayload struct {
	TimeFrom string   `json:"timeFrom"`
	TimeTo   string   `json:"timeTo"`
	Types    []string `json:"types"`
}

// ReplayRequestPayload is the replayRequest frame payload.
type ReplayRequestPayload struct {
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    []byte            `json:"body,omitempty"`
}

// BreakpointResumeAction mirrors the wire string enum for resume actions.
type BreakpointResumeAction string

const (
	ResumeActionContinue BreakpointResumeAction = "continue"
	ResumeActionResume   BreakpointResumeAction = "resume"
	ResumeActionAbort    BreakpointResumeAction = "abort"
	ResumeActionModify   BreakpointResumeAction = "modify"
	ResumeActionMock     BreakpointResumeAction = "mockResponse"
)

// BreakpointResumePayload is the breakpointResume frame payload.
type BreakpointResumePayload struct {
	BreakpointID     string                 `json:"breakpointId"`
	RequestID        string                 `json:"requestId"`
	Action           BreakpointResumeAction `json:"action"`
	ModifiedRequest  *Snapshot              `json:"modifiedRequest,omitempty"`
	ModifiedResponse *Snapshot              `json:"modifiedResponse,omitempty"`
}

// toRuleAction translates the wire action into a rules.BreakpointAction
// continue/resume -> resume, abort -> abort, modify -> modify
// (snapshot from payload), mockResponse -> mockResponse, anything else ->
// resume.
func (p BreakpointResumePayload) toRuleAction() rules.BreakpointAction {
	switch p.Action {
	case ResumeActionAbort:
		return rules.BreakpointAction{Kind: rules.ActionAbort}
	case ResumeActionModify:
		if p.ModifiedRequest != nil {
			return rules.BreakpointAction{Kind: rules.ActionModify, ModifiedRequest: &rules.HTTPRequestView{
				Method: p.ModifiedRequest.Method, URL: p.ModifiedRequest.URL,
				Headers: p.ModifiedRequest.Headers, Body: p.ModifiedRequest.Body,
			}}
		}
		if p.ModifiedResponse != nil {
			return rules.BreakpointAction{Kind: rules.ActionModify, ModifiedResponse: &rules.HTTPResponseView{
				StatusCode: p.ModifiedResponse.Status, Headers: p.ModifiedResponse.Headers, Body: p.ModifiedResponse.Body,
			}}
		}
		return rules.Resume()
	case ResumeActionMock:
		if p.ModifiedResponse != nil {
			return rules.BreakpointAction{Kind: rules.ActionMockResponse, MockResponse: &rules.MockResponse{
				StatusCode: p.ModifiedResponse.Status, Headers: p.ModifiedResponse.Headers, Body: p.ModifiedResponse.Body,
			}}
		}
		return rules.Resume()
	case ResumeActionContinue, ResumeActionResume:
		return rules.Resume()
	default:
		return rules.Resume()
	}
}

// ErrorPayload is the error frame payload.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func encodeFrame(t FrameType, payload any) (Frame, error) {
	if payload == nil {
		return Frame{Type: t}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Payload: b}, nil
}
