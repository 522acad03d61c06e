package rules

import (
	"math/rand"
)

// ChaosResultKind tags the outcome of a ChaosEngine evaluation.
type ChaosResultKind string

const (
	ChaosNone            ChaosResultKind = "none"
	ChaosResultDelay     ChaosResultKind = "delay"
	ChaosResultTimeout   ChaosResultKind = "timeout"
	ChaosResultReset     ChaosResultKind = "connectionReset"
	ChaosResultError     ChaosResultKind = "errorResponse"
	ChaosResultCorrupted ChaosResultKind = "corruptedData"
	ChaosResultDrop      ChaosResultKind = "drop"
)

// ChaosResult is the outcome of evaluating a request or response against
// the chaos rule list.
type ChaosResult struct {
	Kind       ChaosResultKind
	DelayMS    int
	Status     int
	Corrupted  []byte
	MatchedRuleID string
}

// ChaosEngine evaluates ChaosRule lists. A matching rule only
// fires if a uniform draw falls within its probability.
type ChaosEngine struct {
	store      *snapshotStore[ChaosRule]
	randFloat64 func() float64
}

// NewChaosEngine returns an empty ChaosEngine.
func NewChaosEngine() *ChaosEngine {
	return &ChaosEngine{
		store: newSnapshotStore(
			func(r ChaosRule) int { return r.Priority },
			func(r ChaosRule) string { return r.ID },
		),
		randFloat64: rand.Float64,
	}
}

func (e *ChaosEngine) UpdateRules(rules []ChaosRule) { e.store.update(rules) }
func (e *ChaosEngine) AddRule(rule ChaosRule)        { e.store.add(rule) }
func (e *ChaosEngine) RemoveRule(id string)          { e.store.remove(id) }
func (e *ChaosEngine) ClearRules()                   { e.store.clear() }
func (e *ChaosEngine) GetRules() []ChaosRule         { return e.store.get() }

// Evaluate walks enabled rules in priority order and returns the outcome
// of the first one that matches and fires. slowNetwork degrades to a
// 1000-5000ms delay; corruptResponse is not evaluated here (see
// EvaluateResponse).
func (e *ChaosEngine) Evaluate(req HTTPRequestView) ChaosResult {
	for _, rule := range e.store.load() {
		if !rule.Enabled || rule.Chaos == ChaosCorruptResponse {
			continue
		}
		if !matchMethod(rule.Method, req.Method) {
			continue
		}
		if !matchURLPattern(rule.URLPattern, req.URL) {
			continue
		}
		if e.randFloat64() > rule.Probability {
			continue
		}
		return e.fire(rule)
	}
	return ChaosResult{Kind: ChaosNone}
}

func (e *ChaosEngine) fire(rule ChaosRule) ChaosResult {
	switch rule.Chaos {
	case ChaosLatency:
		return ChaosResult{Kind: ChaosResultDelay, DelayMS: sampleRange(e.randFloat64, rule.LatencyMinMS, rule.LatencyMaxMS), MatchedRuleID: rule.ID}
	case ChaosSlowNetwork:
		return ChaosResult{Kind: ChaosResultDelay, DelayMS: sampleRange(e.randFloat64, 1000, 5000), MatchedRuleID: rule.ID}
	case ChaosTimeout:
		return ChaosResult{Kind: ChaosResultTimeout, MatchedRuleID: rule.ID}
	case ChaosConnectionReset:
		return ChaosResult{Kind: ChaosResultReset, MatchedRuleID: rule.ID}
	case ChaosRandomError:
		status := 500
		if len(rule.RandomErrorCodes) > 0 {
			idx := int(e.randFloat64() * float64(len(rule.RandomErrorCodes)))
			if idx >= len(rule.RandomErrorCodes) {
				idx = len(rule.RandomErrorCodes) - 1
			}
			status = rule.RandomErrorCodes[idx]
		}
		return ChaosResult{Kind: ChaosResultError, Status: status, MatchedRuleID: rule.ID}
	case ChaosDropRequest:
		return ChaosResult{Kind: ChaosResultDrop, MatchedRuleID: rule.ID}
	default:
		return ChaosResult{Kind: ChaosNone}
	}
}

func sampleRange(randFloat64 func() float64, min, max int) int {
	if max <= min {
		return min
	}
	return min + int(randFloat64()*float64(max-min))
}

// EvaluateResponse evaluates only corruptResponse rules against the
// response body, flipping approximately 1% of bytes (minimum one byte) on
// a match.
func (e *ChaosEngine) EvaluateResponse(req HTTPRequestView, resp HTTPResponseView) ChaosResult {
	for _, rule := range e.store.load() {
		if !rule.Enabled || rule.Chaos != ChaosCorruptResponse {
			continue
		}
		if !matchMethod(rule.Method, req.Method) {
			continue
		}
		if !matchURLPattern(rule.URLPattern, req.URL) {
			continue
		}
		if e.randFloat64() > rule.Probability {
			continue
		}
		return ChaosResult{Kind: ChaosResultCorrupted, Corrupted: corruptBytes(e.randFloat64, resp.Body), MatchedRuleID: rule.ID}
	}
	return ChaosResult{Kind: ChaosNone}
}

func corruptBytes(randFloat64 func() float64, body []byte) []byte {
	out := append([]byte(nil), body...)
	if len(out) == 0 {
		return out
	}
	flips := len(out) / 100
	if flips < 1 {
		flips = 1
	}
	for i := 0; i < flips; i++ {
		idx := int(randFloat64() * float64(len(out)))
		if idx >= len(out) {
			idx = len(out) - 1
		}
		out[idx] ^= 0xFF
	}
	return out
}
