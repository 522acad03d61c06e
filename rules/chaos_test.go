package rules

import "testing"

func TestChaosDropFiresAtProbabilityOne(t *testing.T) {
	e := NewChaosEngine()
	e.UpdateRules([]ChaosRule{{
		ID: "c1", URLPattern: "*analytics*", Probability: 1.0, Chaos: ChaosDropRequest, Enabled: true,
	}})

	result := e.Evaluate(HTTPRequestView{Method: "POST", URL: "/analytics/x"})
	if result.Kind != ChaosResultDrop {
		t.Fatalf("kind = %v, want drop", result.Kind)
	}
}

func TestChaosNeverFiresAtProbabilityZero(t *testing.T) {
	e := NewChaosEngine()
	e.randFloat64 = func() float64 { return 0.0001 }
	e.UpdateRules([]ChaosRule{{
		ID: "c1", URLPattern: "*analytics*", Probability: 0, Chaos: ChaosDropRequest, Enabled: true,
	}})

	result := e.Evaluate(HTTPRequestView{Method: "POST", URL: "/analytics/x"})
	if result.Kind != ChaosNone {
		t.Fatalf("kind = %v, want none", result.Kind)
	}
}

func TestChaosSlowNetworkDegradesToDelayRange(t *testing.T) {
	e := NewChaosEngine()
	e.randFloat64 = func() float64 { return 0.5 }
	e.UpdateRules([]ChaosRule{{
		ID: "c1", Probability: 1, Chaos: ChaosSlowNetwork, Enabled: true,
	}})

	result := e.Evaluate(HTTPRequestView{Method: "GET", URL: "/x"})
	if result.Kind != ChaosResultDelay {
		t.Fatalf("kind = %v, want delay", result.Kind)
	}
	if result.DelayMS < 1000 || result.DelayMS > 5000 {
		t.Fatalf("delay = %d, want within [1000,5000]", result.DelayMS)
	}
}

func TestChaosCorruptResponseFlipsAtLeastOneByte(t *testing.T) {
	e := NewChaosEngine()
	e.UpdateRules([]ChaosRule{{
		ID: "c1", Probability: 1, Chaos: ChaosCorruptResponse, Enabled: true,
	}})

	body := []byte("0123456789")
	result := e.EvaluateResponse(HTTPRequestView{Method: "GET", URL: "/x"}, HTTPResponseView{Body: body})
	if result.Kind != ChaosResultCorrupted {
		t.Fatalf("kind = %v, want corruptedData", result.Kind)
	}
	if string(result.Corrupted) == string(body) {
		t.Fatal("expected at least one byte to differ")
	}
	if len(result.Corrupted) != len(body) {
		t.Fatalf("length changed: got %d want %d", len(result.Corrupted), len(body))
	}
}

func TestChaosCorruptResponseNotFiredByEvaluate(t *testing.T) {
	e := NewChaosEngine()
	e.UpdateRules([]ChaosRule{{
		ID: "c1", Probability: 1, Chaos: ChaosCorruptResponse, Enabled: true,
	}})

	result := e.Evaluate(HTTPRequestView{Method: "GET", URL: "/x"})
	if result.Kind != ChaosNone {
		t.Fatalf("kind = %v, want none (corruptResponse only fires via EvaluateResponse)", result.Kind)
	}
}
