package pipeline

import (
	"github.com/debughub/probe/event"
)

// RecordSessionCreated records a WS session open event directly; sessions
// bypass the rule engines entirely.
func (p *Pipeline) RecordSessionCreated(session event.WSSession) {
	p.bus.Enqueue(event.WS(event.SessionCreated(session)))
}

// RecordSessionClosed records a WS session close event.
func (p *Pipeline) RecordSessionClosed(session event.WSSession) {
	p.bus.Enqueue(event.WS(event.SessionClosed(session)))
}

// InterceptOutgoingFrame runs an outgoing WS frame through the mock
// engine and records the resulting frame event.
func (p *Pipeline) InterceptOutgoingFrame(sessionID, url string, opcode event.WSOpcode, payload []byte) []byte {
	return p.interceptFrame(sessionID, url, event.DirectionSend, opcode, payload, p.mock.ProcessWSOutgoingFrame)
}

// InterceptIncomingFrame mirrors InterceptOutgoingFrame for inbound
// frames.
func (p *Pipeline) InterceptIncomingFrame(sessionID, url string, opcode event.WSOpcode, payload []byte) []byte {
	return p.interceptFrame(sessionID, url, event.DirectionReceive, opcode, payload, p.mock.ProcessWSIncomingFrame)
}

func (p *Pipeline) interceptFrame(sessionID, url string, direction event.WSDirection, opcode event.WSOpcode, payload []byte, match func([]byte, string, string) ([]byte, string)) []byte {
	replacement, ruleID := match(payload, sessionID, url)
	effective := payload
	mocked := false
	if replacement != nil {
		effective = replacement
		mocked = true
		p.obs.MockMatched(ruleID)
	}

	p.bus.Enqueue(event.WS(event.FrameEvent(event.WSFrame{
		SessionID:  sessionID,
		Direction:  direction,
		Opcode:     opcode,
		Payload:    effective,
		IsMocked:   mocked,
		MockRuleID: ruleID,
	})))

	return effective
}
