package bridge

import "github.com/debughub/probe/rules"

// The update*Rules frame payloads are plain JSON arrays of the
// corresponding rule objects. These wire mirrors exist so the
// bridge can unmarshal hub-issued rule lists without the rules package
// needing JSON tags of its own.

type mockRuleWire struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Target    string            `json:"target"`
	Priority  int               `json:"priority"`
	Enabled   bool              `json:"enabled"`
	Condition struct {
		URLPattern      string            `json:"urlPattern"`
		Method          string            `json:"method"`
		StatusCode      int               `json:"statusCode"`
		HeaderContains  map[string]string `json:"headerContains"`
		BodyContains    string            `json:"bodyContains"`
		PayloadContains string            `json:"payloadContains"`
	} `json:"condition"`
	Action struct {
		HeaderOverrides      map[string]string `json:"headerOverrides"`
		BodyOverride         []byte            `json:"bodyOverride"`
		MockResponseStatusCode int             `json:"mockResponseStatusCode"`
		MockResponseHeaders  map[string]string `json:"mockResponseHeaders"`
		MockResponseBody     []byte            `json:"mockResponseBody"`
		WSReplacementPayload []byte            `json:"wsReplacementPayload"`
		DelayMS              int               `json:"delayMs"`
	} `json:"action"`
}

type mockRulesWire []mockRuleWire

func (w mockRulesWire) toDomain() []rules.MockRule {
	out := make([]rules.MockRule, 0, len(w))
	for _, r := range w {
		out = append(out, rules.MockRule{
			ID:       r.ID,
			Name:     r.Name,
			Target:   rules.Target(r.Target),
			Priority: r.Priority,
			Enabled:  r.Enabled,
			Condition: rules.Condition{
				URLPattern:      r.Condition.URLPattern,
				Method:          r.Condition.Method,
				StatusCode:      r.Condition.StatusCode,
				HeaderContains:  r.Condition.HeaderContains,
				BodyContains:    r.Condition.BodyContains,
				PayloadContains: r.Condition.PayloadContains,
			},
			Action: rules.Action{
				HeaderOverrides:      r.Action.HeaderOverrides,
				BodyOverride:         r.Action.BodyOverride,
				MockResponseStatus:   r.Action.MockResponseStatusCode,
				MockResponseHeaders:  r.Action.MockResponseHeaders,
				MockResponseBody:     r.Action.MockResponseBody,
				WSReplacementPayload: r.Action.WSReplacementPayload,
				DelayMS:              r.Action.DelayMS,
			},
		})
	}
	return out
}

type breakpointRuleWire struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URLPattern string `json:"urlPattern"`
	Method     string `json:"method"`
	Phase      string `json:"phase"`
	Priority   int    `json:"priority"`
	Enabled    bool   `json:"enabled"`
}

type breakpointRulesWire []breakpointRuleWire

func (w breakpointRulesWire) toDomain() []rules.BreakpointRule {
	out := make([]rules.BreakpointRule, 0, len(w))
	for _, r := range w {
		out = append(out, rules.BreakpointRule{
			ID: r.ID, Name: r.Name, URLPattern: r.URLPattern, Method: r.Method,
			Phase: rules.Phase(r.Phase), Priority: r.Priority, Enabled: r.Enabled,
		})
	}
	return out
}

type chaosRuleWire struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	URLPattern       string  `json:"urlPattern"`
	Method           string  `json:"method"`
	Probability      float64 `json:"probability"`
	Chaos            string  `json:"chaos"`
	LatencyMinMS     int     `json:"latencyMinMs"`
	LatencyMaxMS     int     `json:"latencyMaxMs"`
	RandomErrorCodes []int   `json:"randomErrorCodes"`
	SlowNetworkBPS   int     `json:"slowNetworkBps"`
	Priority         int     `json:"priority"`
	Enabled          bool    `json:"enabled"`
}

type chaosRulesWire []chaosRuleWire

func (w chaosRulesWire) toDomain() []rules.ChaosRule {
	out := make([]rules.ChaosRule, 0, len(w))
	for _, r := range w {
		out = append(out, rules.ChaosRule{
			ID: r.ID, Name: r.Name, URLPattern: r.URLPattern, Method: r.Method,
			Probability: r.Probability, Chaos: rules.ChaosKind(r.Chaos),
			LatencyMinMS: r.LatencyMinMS, LatencyMaxMS: r.LatencyMaxMS,
			RandomErrorCodes: r.RandomErrorCodes, SlowNetworkBPS: r.SlowNetworkBPS,
			Priority: r.Priority, Enabled: r.Enabled,
		})
	}
	return out
}
