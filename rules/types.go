package rules

// Target selects which traffic direction a MockRule condition applies to.
type Target string

const (
	TargetHTTPRequest  Target = "httpRequest"
	TargetHTTPResponse Target = "httpResponse"
	TargetWSOutgoing   Target = "wsOutgoing"
	TargetWSIncoming   Target = "wsIncoming"
)

// Condition gates whether a MockRule's action applies to a given request,
// response, or frame.
type Condition struct {
	URLPattern      string
	Method          string
	StatusCode      int
	HeaderContains  map[string]string
	BodyContains    string
	PayloadContains string
}

// Action carries the overrides a matched MockRule applies.
type Action struct {
	HeaderOverrides     map[string]string
	BodyOverride        []byte
	MockResponseStatus  int
	MockResponseHeaders map[string]string
	MockResponseBody    []byte
	WSReplacementPayload []byte
	DelayMS             int
}

// MockRule overrides request or response bytes without touching the
// network.
type MockRule struct {
	ID        string
	Name      string
	Target    Target
	Condition Condition
	Action    Action
	Priority  int
	Enabled   bool
}

// Phase selects when a BreakpointRule may suspend a request.
type Phase string

const (
	PhaseRequest  Phase = "request"
	PhaseResponse Phase = "response"
	PhaseBoth     Phase = "both"
)

// BreakpointRule suspends a matching request until the hub resumes it.
type BreakpointRule struct {
	ID         string
	Name       string
	URLPattern string
	Method     string
	Phase      Phase
	Priority   int
	Enabled    bool
}

// ChaosKind enumerates the fault a ChaosRule injects.
type ChaosKind string

const (
	ChaosLatency        ChaosKind = "latency"
	ChaosTimeout        ChaosKind = "timeout"
	ChaosConnectionReset ChaosKind = "connectionReset"
	ChaosRandomError    ChaosKind = "randomError"
	ChaosCorruptResponse ChaosKind = "corruptResponse"
	ChaosSlowNetwork    ChaosKind = "slowNetwork"
	ChaosDropRequest    ChaosKind = "dropRequest"
)

// ChaosRule deterministically configures, and probabilistically fires, a
// request fault.
type ChaosRule struct {
	ID          string
	Name        string
	URLPattern  string
	Method      string
	Probability float64
	Chaos       ChaosKind
	LatencyMinMS int
	LatencyMaxMS int
	RandomErrorCodes []int
	SlowNetworkBPS   int
	Priority    int
	Enabled     bool
}
