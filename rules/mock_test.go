package rules

import "testing"

func TestMockHttpResponseHit(t *testing.T) {
	e := NewMockEngine()
	e.UpdateRules([]MockRule{{
		ID:     "r1",
		Target: TargetHTTPResponse,
		Condition: Condition{URLPattern: "*/v1/ping"},
		Action:    Action{MockResponseStatus: 418},
		Priority:  10,
		Enabled:   true,
	}})

	_, mock, ruleID := e.ProcessHTTPRequest(HTTPRequestView{
		Method: "GET",
		URL:    "https://api.example.com/v1/ping",
	})
	if mock == nil {
		t.Fatal("expected mock response")
	}
	if mock.StatusCode != 418 {
		t.Fatalf("status = %d, want 418", mock.StatusCode)
	}
	if ruleID != "r1" {
		t.Fatalf("matched rule id = %q, want r1", ruleID)
	}
}

func TestMockRequestOverridesAreCumulative(t *testing.T) {
	e := NewMockEngine()
	e.UpdateRules([]MockRule{
		{ID: "a", Target: TargetHTTPRequest, Priority: 20, Enabled: true,
			Action: Action{HeaderOverrides: map[string]string{"X-A": "1"}}},
		{ID: "b", Target: TargetHTTPRequest, Priority: 10, Enabled: true,
			Action: Action{HeaderOverrides: map[string]string{"X-B": "2"}}},
	})

	modified, mock, _ := e.ProcessHTTPRequest(HTTPRequestView{Method: "GET", URL: "/x"})
	if mock != nil {
		t.Fatal("expected no mock response")
	}
	if modified.Headers["X-A"] != "1" || modified.Headers["X-B"] != "2" {
		t.Fatalf("headers = %v, want both overrides applied", modified.Headers)
	}
}

func TestMockDisabledRuleDoesNotMatch(t *testing.T) {
	e := NewMockEngine()
	e.UpdateRules([]MockRule{{ID: "r1", Target: TargetHTTPResponse, Priority: 1, Enabled: false}})

	_, mock, _ := e.ProcessHTTPRequest(HTTPRequestView{Method: "GET", URL: "/x"})
	if mock != nil {
		t.Fatal("expected disabled rule to be skipped")
	}
}

func TestMockWSOutgoingReplacement(t *testing.T) {
	e := NewMockEngine()
	e.UpdateRules([]MockRule{{
		ID: "w1", Target: TargetWSOutgoing, Priority: 1, Enabled: true,
		Action: Action{WSReplacementPayload: []byte("replaced")},
	}})

	payload, ruleID := e.ProcessWSOutgoingFrame([]byte("original"), "sess-1", "wss://x.com")
	if string(payload) != "replaced" {
		t.Fatalf("payload = %q, want replaced", payload)
	}
	if ruleID != "w1" {
		t.Fatalf("ruleID = %q, want w1", ruleID)
	}
}

func TestMockPriorityOrderHigherFirst(t *testing.T) {
	e := NewMockEngine()
	e.UpdateRules([]MockRule{
		{ID: "low", Target: TargetHTTPResponse, Priority: 1, Enabled: true, Action: Action{MockResponseStatus: 200}},
		{ID: "high", Target: TargetHTTPResponse, Priority: 100, Enabled: true, Action: Action{MockResponseStatus: 500}},
	})

	_, mock, ruleID := e.ProcessHTTPRequest(HTTPRequestView{Method: "GET", URL: "/x"})
	if ruleID != "high" || mock.StatusCode != 500 {
		t.Fatalf("expected high priority rule to win, got %q status %d", ruleID, mock.StatusCode)
	}
}
