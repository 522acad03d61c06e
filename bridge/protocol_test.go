package bridge

import (
	"encoding/json"
	"testing"

	"github.com/debughub/probe/rules"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	frame, err := encodeFrame(FrameRegister, RegisterPayload{Token: "secret"})
	require.NoError(t, err)

	b, err := json.Marshal(frame)
	require.NoError(t, err)

	var got Frame
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, FrameRegister, got.Type)

	var payload RegisterPayload
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	require.Equal(t, "secret", payload.Token)
}

func TestHeartbeatFrameHasNoPayload(t *testing.T) {
	frame, err := encodeFrame(FrameHeartbeat, nil)
	require.NoError(t, err)
	require.Nil(t, frame.Payload)
}

func TestSnapshotBodyRoundTripsThroughBase64(t *testing.T) {
	snap := Snapshot{Method: "POST", URL: "/checkout", Body: []byte(`{"qty":1}`)}
	b, err := json.Marshal(snap)
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, snap.Body, got.Body)
}

func TestBreakpointResumeActionTranslation(t *testing.T) {
	cases := []struct {
		name string
		p    BreakpointResumePayload
		want rules.BreakpointActionKind
	}{
		{"continue", BreakpointResumePayload{Action: ResumeActionContinue}, rules.ActionResume},
		{"resume", BreakpointResumePayload{Action: ResumeActionResume}, rules.ActionResume},
		{"abort", BreakpointResumePayload{Action: ResumeActionAbort}, rules.ActionAbort},
		{"unknown", BreakpointResumePayload{Action: "bogus"}, rules.ActionResume},
		{"modify", BreakpointResumePayload{Action: ResumeActionModify, ModifiedRequest: &Snapshot{Body: []byte("x")}}, rules.ActionModify},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.p.toRuleAction()
			require.Equal(t, c.want, got.Kind)
		})
	}
}
