package rules

import (
	"bytes"
	"strings"
)

// MockResponse is the synthesized response produced by a matched
// httpResponse mock rule.
type MockResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// MockEngine evaluates MockRule lists against HTTP requests/responses and
// WS frames.
type MockEngine struct {
	store *snapshotStore[MockRule]
}

// NewMockEngine returns an empty MockEngine.
func NewMockEngine() *MockEngine {
	return &MockEngine{store: newSnapshotStore(
		func(r MockRule) int { return r.Priority },
		func(r MockRule) string { return r.ID },
	)}
}

func (e *MockEngine) UpdateRules(rules []MockRule) { e.store.update(rules) }
func (e *MockEngine) AddRule(rule MockRule)        { e.store.add(rule) }
func (e *MockEngine) RemoveRule(id string)         { e.store.remove(id) }
func (e *MockEngine) ClearRules()                  { e.store.clear() }
func (e *MockEngine) GetRules() []MockRule         { return e.store.get() }

// HTTPRequestView is the minimal request shape the engine needs to match
// and mutate, decoupled from event.HTTPRequest so rules can be tested
// without importing the event package.
type HTTPRequestView struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// HTTPResponseView is the minimal response shape used for httpResponse
// condition matching.
type HTTPResponseView struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func conditionMatchesRequest(c Condition, req HTTPRequestView) bool {
	if !matchURLPattern(c.URLPattern, req.URL) {
		return false
	}
	if !matchMethod(c.Method, req.Method) {
		return false
	}
	if !headersContain(c.HeaderContains, req.Headers) {
		return false
	}
	if c.BodyContains != "" && !bytes.Contains(req.Body, []byte(c.BodyContains)) {
		return false
	}
	return true
}

func conditionMatchesResponse(c Condition, resp *HTTPResponseView) bool {
	if resp == nil {
		return false
	}
	if c.StatusCode != 0 && c.StatusCode != resp.StatusCode {
		return false
	}
	if !headersContain(c.HeaderContains, resp.Headers) {
		return false
	}
	if c.BodyContains != "" && !bytes.Contains(resp.Body, []byte(c.BodyContains)) {
		return false
	}
	return true
}

func headersContain(want, have map[string]string) bool {
	for k, v := range want {
		hv, ok := have[k]
		if !ok || !strings.Contains(hv, v) {
			return false
		}
	}
	return true
}

// ProcessHTTPRequest walks the rule list filtered to httpRequest and
// httpResponse targets, applying header/body overrides cumulatively from
// matching httpRequest rules and stopping at the first matching
// httpResponse rule, which yields a full mock response.
func (e *MockEngine) ProcessHTTPRequest(req HTTPRequestView) (modified HTTPRequestView, mockResp *MockResponse, matchedRuleID string) {
	modified = req
	modified.Headers = cloneHeaders(req.Headers)
	modified.Body = append([]byte(nil), req.Body...)

	for _, rule := range e.store.load() {
		if !rule.Enabled {
			continue
		}
		switch rule.Target {
		case TargetHTTPRequest:
			if !conditionMatchesRequest(rule.Condition, modified) {
				continue
			}
			applyRequestOverrides(&modified, rule.Action)
		case TargetHTTPResponse:
			if !conditionMatchesRequest(rule.Condition, modified) {
				continue
			}
			mockResp = &MockResponse{
				StatusCode: rule.Action.MockResponseStatus,
				Headers:    cloneHeaders(rule.Action.MockResponseHeaders),
				Body:       append([]byte(nil), rule.Action.MockResponseBody...),
			}
			return modified, mockResp, rule.ID
		}
	}
	return modified, nil, ""
}

func applyRequestOverrides(req *HTTPRequestView, action Action) {
	if len(action.HeaderOverrides) > 0 {
		if req.Headers == nil {
			req.Headers = make(map[string]string, len(action.HeaderOverrides))
		}
		for k, v := range action.HeaderOverrides {
			req.Headers[k] = v
		}
	}
	if action.BodyOverride != nil {
		req.Body = append([]byte(nil), action.BodyOverride...)
	}
}

func cloneHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// ProcessWSOutgoingFrame returns the first replacement payload found among
// enabled wsOutgoing rules whose condition matches, or nil if none match.
func (e *MockEngine) ProcessWSOutgoingFrame(payload []byte, sessionID, url string) ([]byte, string) {
	return e.processWSFrame(TargetWSOutgoing, payload, url)
}

// ProcessWSIncomingFrame mirrors ProcessWSOutgoingFrame for inbound frames.
func (e *MockEngine) ProcessWSIncomingFrame(payload []byte, sessionID, url string) ([]byte, string) {
	return e.processWSFrame(TargetWSIncoming, payload, url)
}

func (e *MockEngine) processWSFrame(target Target, payload []byte, url string) ([]byte, string) {
	for _, rule := range e.store.load() {
		if !rule.Enabled || rule.Target != target {
			continue
		}
		if !matchURLPattern(rule.Condition.URLPattern, url) {
			continue
		}
		if rule.Condition.PayloadContains != "" && !bytes.Contains(payload, []byte(rule.Condition.PayloadContains)) {
			continue
		}
		if rule.Action.WSReplacementPayload != nil {
			return append([]byte(nil), rule.Action.WSReplacementPayload...), rule.ID
		}
	}
	return nil, ""
}
